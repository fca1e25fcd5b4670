package output

import (
	"context"
	"time"
)

// StorageGateway is the interface for remote storage of history segments
type StorageGateway interface {
	// SaveSegment uploads one segment file
	SaveSegment(ctx context.Context, req SaveSegmentRequest) (*SegmentObject, error)

	// ListSegments lists the archived segments of a category
	ListSegments(ctx context.Context, category string) ([]*SegmentObject, error)
}

// SaveSegmentRequest represents a request to upload a segment
type SaveSegmentRequest struct {
	Category string            // Record store category (e.g. history)
	Name     string            // Segment file name
	Content  []byte            // Segment content
	Metadata map[string]string // Additional metadata
}

// SegmentObject describes an archived segment
type SegmentObject struct {
	Category    string    // Record store category
	Name        string    // Segment file name
	StoragePath string    // Storage path (e.g., s3://bucket/key)
	Size        int64     // Size in bytes
	Checksum    string    // sha256 of the content, hex
	UploadedAt  time.Time // Upload timestamp
}
