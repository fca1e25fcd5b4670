package service

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/llmhelper/internal/app"
	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/infra/recordstore"
)

// SegmentSource is the local side of an archive run
type SegmentSource interface {
	Segments(ctx context.Context, category string) ([]recordstore.SegmentInfo, error)
	ReadSegment(ctx context.Context, category, name string) ([]byte, error)
}

// ArchiveOptions controls one archive run
type ArchiveOptions struct {
	Category      string
	IncludeActive bool              // also upload the segment still being appended to
	Metadata      map[string]string // attached to every uploaded object
}

// ArchiveResult reports what an archive run did
type ArchiveResult struct {
	Uploaded []*output.SegmentObject
	Skipped  []string // already archived with the same size
	Active   string   // active segment left out of the run, if any
}

// ArchiveService copies history segments to a storage gateway
type ArchiveService struct {
	source  SegmentSource
	storage output.StorageGateway
}

// NewArchiveService creates a new archive service
func NewArchiveService(source SegmentSource, storage output.StorageGateway) *ArchiveService {
	return &ArchiveService{source: source, storage: storage}
}

// Archive uploads every closed segment of the category that the gateway does
// not hold yet. A remote object whose size differs from the local segment is
// uploaded again.
func (s *ArchiveService) Archive(ctx context.Context, opts ArchiveOptions) (*ArchiveResult, error) {
	segments, err := s.source.Segments(ctx, opts.Category)
	if err != nil {
		return nil, fmt.Errorf("list local segments: %w", err)
	}

	remote, err := s.storage.ListSegments(ctx, opts.Category)
	if err != nil {
		return nil, fmt.Errorf("list archived segments: %w", err)
	}
	archived := make(map[string]int64, len(remote))
	for _, obj := range remote {
		archived[obj.Name] = obj.Size
	}

	result := &ArchiveResult{}
	for _, seg := range segments {
		if seg.Active && !opts.IncludeActive {
			result.Active = seg.Name
			continue
		}
		if size, ok := archived[seg.Name]; ok && size == seg.Size {
			result.Skipped = append(result.Skipped, seg.Name)
			continue
		}

		content, err := s.source.ReadSegment(ctx, opts.Category, seg.Name)
		if err != nil {
			return result, err
		}
		obj, err := s.storage.SaveSegment(ctx, output.SaveSegmentRequest{
			Category: opts.Category,
			Name:     seg.Name,
			Content:  content,
			Metadata: opts.Metadata,
		})
		if err != nil {
			return result, fmt.Errorf("archive %s: %w", seg.Name, err)
		}
		app.GetLogger().Info("archived %s to %s (%d bytes)", seg.Name, obj.StoragePath, obj.Size)
		result.Uploaded = append(result.Uploaded, obj)
	}
	return result, nil
}

// List returns the archived segments of a category
func (s *ArchiveService) List(ctx context.Context, category string) ([]*output.SegmentObject, error) {
	return s.storage.ListSegments(ctx, category)
}
