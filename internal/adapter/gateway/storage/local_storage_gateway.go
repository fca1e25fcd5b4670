package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
)

// LocalStorageGateway implements StorageGateway using a local directory
// Directory structure: <baseDir>/<category>/<segment name>
type LocalStorageGateway struct {
	fs      afero.Fs
	baseDir string // Backup directory (e.g., /mnt/backup/llmhelper)
}

// NewLocalStorageGateway creates a new directory-based storage gateway
func NewLocalStorageGateway(fs afero.Fs, baseDir string) (*LocalStorageGateway, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := fs.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &LocalStorageGateway{fs: fs, baseDir: baseDir}, nil
}

// SaveSegment copies a segment into the backup directory
func (g *LocalStorageGateway) SaveSegment(ctx context.Context, req output.SaveSegmentRequest) (*output.SegmentObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dst := filepath.Join(g.baseDir, req.Category, req.Name)
	if err := writeFileAtomic(g.fs, dst, req.Content); err != nil {
		return nil, err
	}
	return &output.SegmentObject{
		Category:    req.Category,
		Name:        req.Name,
		StoragePath: dst,
		Size:        int64(len(req.Content)),
		Checksum:    checksumOf(req.Content),
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// ListSegments lists the backed-up segments of a category
func (g *LocalStorageGateway) ListSegments(ctx context.Context, category string) ([]*output.SegmentObject, error) {
	dir := filepath.Join(g.baseDir, category)
	exists, err := afero.DirExists(g.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("stat backup directory: %w", err)
	}
	if !exists {
		return nil, nil
	}

	infos, err := afero.ReadDir(g.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list backup directory: %w", err)
	}

	var segments []*output.SegmentObject
	for _, fi := range infos {
		if fi.IsDir() || filepath.Ext(fi.Name()) != ".jsonl" {
			continue
		}
		p := filepath.Join(dir, fi.Name())
		content, err := afero.ReadFile(g.fs, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		segments = append(segments, &output.SegmentObject{
			Category:    category,
			Name:        fi.Name(),
			StoragePath: p,
			Size:        fi.Size(),
			Checksum:    checksumOf(content),
			UploadedAt:  fi.ModTime().UTC(),
		})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Name < segments[j].Name })
	return segments, nil
}

// writeFileAtomic writes data next to path and renames it into place, so a
// reader never sees a partially copied segment
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer fs.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}
