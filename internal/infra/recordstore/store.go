// Package recordstore persists records as JSON lines in size-bounded
// segment files, one directory per category:
//
//	<root>/<category>/<category>_0.jsonl
//	<root>/<category>/<category>_1.jsonl
//	...
//
// Records are only ever appended. The highest-numbered segment is the active
// one; once it has grown to MaxSegmentBytes the next append opens a new
// segment.
package recordstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/llmhelper/internal/app"
)

// DefaultMaxSegmentBytes is the segment size threshold (15 MiB)
const DefaultMaxSegmentBytes int64 = 15 * 1024 * 1024

const segmentExt = ".jsonl"

// maxLineBytes bounds a single record line when reading
const maxLineBytes = 64 * 1024 * 1024

// Entry is one stored record annotated with where it came from
type Entry struct {
	Segment string          // segment file name, e.g. history_0.jsonl
	Line    int             // 1-based line number within the segment
	Data    json.RawMessage // the record as written
}

// Decode unmarshals the record into v
func (e Entry) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s:%d: %w", e.Segment, e.Line, err)
	}
	return nil
}

// SegmentInfo describes one segment file
type SegmentInfo struct {
	Name   string
	Path   string
	Index  int
	Size   int64
	Active bool
}

// Store is an append-only segmented JSONL store
type Store struct {
	fs              afero.Fs
	root            string
	maxSegmentBytes int64
	strictFsync     bool
	mu              sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithMaxSegmentBytes sets the size at which a new segment is started
func WithMaxSegmentBytes(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSegmentBytes = n
		}
	}
}

// WithStrictFsync turns fsync failures into append errors
func WithStrictFsync(strict bool) Option {
	return func(s *Store) {
		s.strictFsync = strict
	}
}

// New creates a store rooted at root on fs
func New(fs afero.Fs, root string, opts ...Option) *Store {
	s := &Store{
		fs:              fs,
		root:            root,
		maxSegmentBytes: DefaultMaxSegmentBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory holding all categories
func (s *Store) Root() string {
	return s.root
}

// MaxSegmentBytes returns the configured segment threshold
func (s *Store) MaxSegmentBytes() int64 {
	return s.maxSegmentBytes
}

// Append writes record as one JSON line to the active segment of category
func (s *Store) Append(ctx context.Context, category string, record interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.categoryDir(category)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path, err := s.activeSegmentPath(category)
	if err != nil {
		return err
	}

	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open segment %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write segment %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush segment %s: %w", path, err)
	}

	if err := f.Sync(); err != nil {
		if s.strictFsync {
			return fmt.Errorf("fsync segment %s: %w", path, err)
		}
		app.GetLogger().Warn("failed to fsync %s: %v", path, err)
	}
	return nil
}

// ReadAll returns every record of category, segment by segment in index
// order and line by line within a segment. A missing category is empty.
func (s *Store) ReadAll(ctx context.Context, category string) ([]Entry, error) {
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	segments, err := s.Segments(ctx, category)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segEntries, err := s.readSegment(seg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, segEntries...)
	}
	return entries, nil
}

// Segments lists the segment files of category in index order
func (s *Store) Segments(ctx context.Context, category string) ([]SegmentInfo, error) {
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	dir := s.categoryDir(category)
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list segments in %s: %w", dir, err)
	}

	var segments []SegmentInfo
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		idx, ok := parseSegmentIndex(category, fi.Name())
		if !ok {
			continue
		}
		segments = append(segments, SegmentInfo{
			Name:  fi.Name(),
			Path:  filepath.Join(dir, fi.Name()),
			Index: idx,
			Size:  fi.Size(),
		})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })
	if n := len(segments); n > 0 {
		segments[n-1].Active = true
	}
	return segments, nil
}

// ReadSegment returns the raw bytes of one segment of category
func (s *Store) ReadSegment(ctx context.Context, category, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if _, ok := parseSegmentIndex(category, name); !ok {
		return nil, fmt.Errorf("invalid segment name %q for category %s", name, category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, filepath.Join(s.categoryDir(category), name))
	if err != nil {
		return nil, fmt.Errorf("read segment %s: %w", name, err)
	}
	return data, nil
}

// SegmentName returns the file name of segment idx of category
func SegmentName(category string, idx int) string {
	return fmt.Sprintf("%s_%d%s", category, idx, segmentExt)
}

func (s *Store) categoryDir(category string) string {
	return filepath.Join(s.root, category)
}

func (s *Store) activeSegmentPath(category string) (string, error) {
	segments, err := s.Segments(context.Background(), category)
	if err != nil {
		return "", err
	}
	next := 0
	if n := len(segments); n > 0 {
		active := segments[n-1]
		if active.Size < s.maxSegmentBytes {
			return active.Path, nil
		}
		next = active.Index + 1
	}
	return filepath.Join(s.categoryDir(category), SegmentName(category, next)), nil
}

func (s *Store) readSegment(seg SegmentInfo) ([]Entry, error) {
	f, err := s.fs.Open(seg.Path)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", seg.Path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("segment %s line %d: invalid JSON", seg.Name, lineNum)
		}
		data := make(json.RawMessage, len(raw))
		copy(data, raw)
		entries = append(entries, Entry{Segment: seg.Name, Line: lineNum, Data: data})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read segment %s: %w", seg.Name, err)
	}
	return entries, nil
}

func parseSegmentIndex(category, name string) (int, bool) {
	prefix := category + "_"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, segmentExt) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), segmentExt))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func validateCategory(category string) error {
	if category == "" {
		return fmt.Errorf("category is required")
	}
	if strings.ContainsAny(category, `/\`) || category == "." || category == ".." {
		return fmt.Errorf("invalid category: %q", category)
	}
	return nil
}
