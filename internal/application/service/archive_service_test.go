package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/llmhelper/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	"github.com/YoshitsuguKoike/llmhelper/internal/infra/recordstore"
)

type record struct {
	Text string `json:"text"`
}

func newStoreWithSegments(t *testing.T, n int) *recordstore.Store {
	t.Helper()
	// each record is larger than the threshold, so every append opens a new segment
	store := recordstore.New(afero.NewMemMapFs(), "/data", recordstore.WithMaxSegmentBytes(8))
	for i := 0; i < n; i++ {
		require.NoError(t, store.Append(context.Background(), "history", record{Text: "0123456789"}))
	}
	return store
}

func TestArchiveService_SkipsActiveSegment(t *testing.T) {
	store := newStoreWithSegments(t, 3)
	mockClient := storage.NewMockS3Client()
	svc := NewArchiveService(store, storage.NewS3StorageGatewayWithClient(mockClient, "bucket", "llmhelper"))

	result, err := svc.Archive(context.Background(), ArchiveOptions{Category: "history"})
	require.NoError(t, err)

	require.Len(t, result.Uploaded, 2)
	assert.Equal(t, "history_0.jsonl", result.Uploaded[0].Name)
	assert.Equal(t, "history_1.jsonl", result.Uploaded[1].Name)
	assert.Equal(t, "history_2.jsonl", result.Active)
	assert.Equal(t, 2, mockClient.GetObjectCount())
}

func TestArchiveService_IncludeActiveAndIdempotent(t *testing.T) {
	store := newStoreWithSegments(t, 2)
	gateway, err := storage.NewLocalStorageGateway(afero.NewMemMapFs(), "/backup")
	require.NoError(t, err)
	svc := NewArchiveService(store, gateway)
	ctx := context.Background()

	first, err := svc.Archive(ctx, ArchiveOptions{Category: "history", IncludeActive: true})
	require.NoError(t, err)
	assert.Len(t, first.Uploaded, 2)
	assert.Empty(t, first.Active)

	second, err := svc.Archive(ctx, ArchiveOptions{Category: "history", IncludeActive: true})
	require.NoError(t, err)
	assert.Empty(t, second.Uploaded)
	assert.Equal(t, []string{"history_0.jsonl", "history_1.jsonl"}, second.Skipped)

	listed, err := svc.List(ctx, "history")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestArchiveService_ReuploadsChangedSegment(t *testing.T) {
	store := recordstore.New(afero.NewMemMapFs(), "/data")
	gateway, err := storage.NewLocalStorageGateway(afero.NewMemMapFs(), "/backup")
	require.NoError(t, err)
	svc := NewArchiveService(store, gateway)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "history", record{Text: "a"}))
	_, err = svc.Archive(ctx, ArchiveOptions{Category: "history", IncludeActive: true})
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "history", record{Text: "b"}))
	result, err := svc.Archive(ctx, ArchiveOptions{Category: "history", IncludeActive: true})
	require.NoError(t, err)
	require.Len(t, result.Uploaded, 1)
	assert.Equal(t, "history_0.jsonl", result.Uploaded[0].Name)
}

type failingGateway struct{}

func (failingGateway) SaveSegment(context.Context, output.SaveSegmentRequest) (*output.SegmentObject, error) {
	return nil, errors.New("access denied")
}

func (failingGateway) ListSegments(context.Context, string) ([]*output.SegmentObject, error) {
	return nil, nil
}

func TestArchiveService_UploadError(t *testing.T) {
	store := newStoreWithSegments(t, 2)
	svc := NewArchiveService(store, failingGateway{})

	_, err := svc.Archive(context.Background(), ArchiveOptions{Category: "history"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive history_0.jsonl")
}
