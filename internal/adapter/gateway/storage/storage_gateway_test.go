package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
)

func TestS3StorageGateway_SaveAndListSegments(t *testing.T) {
	mockClient := NewMockS3Client()
	gateway := NewS3StorageGatewayWithClient(mockClient, "test-bucket", "/test-prefix/")
	ctx := context.Background()

	content := []byte("{\"n\":1}\n")
	obj, err := gateway.SaveSegment(ctx, output.SaveSegmentRequest{
		Category: "history",
		Name:     "history_0.jsonl",
		Content:  content,
		Metadata: map[string]string{"host": "laptop"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://test-bucket/test-prefix/history/history_0.jsonl", obj.StoragePath)
	assert.Equal(t, int64(len(content)), obj.Size)
	assert.Len(t, obj.Checksum, 64)

	stored, metadata, ok := mockClient.GetObjectForTest("test-prefix/history/history_0.jsonl")
	require.True(t, ok)
	assert.Equal(t, content, stored)
	assert.Equal(t, "laptop", metadata["host"])
	assert.Equal(t, obj.Checksum, metadata["checksum"])

	_, err = gateway.SaveSegment(ctx, output.SaveSegmentRequest{Category: "other", Name: "other_0.jsonl", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, 2, mockClient.GetObjectCount())

	list, err := gateway.ListSegments(ctx, "history")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "history_0.jsonl", list[0].Name)
	assert.Equal(t, int64(len(content)), list[0].Size)
	assert.Equal(t, obj.Checksum, list[0].Checksum)
}

func TestS3StorageGateway_ChecksumCannotBeOverridden(t *testing.T) {
	mockClient := NewMockS3Client()
	gateway := NewS3StorageGatewayWithClient(mockClient, "bucket", "")
	ctx := context.Background()

	obj, err := gateway.SaveSegment(ctx, output.SaveSegmentRequest{
		Category: "history", Name: "history_0.jsonl", Content: []byte("{}"),
		Metadata: map[string]string{"checksum": "forged"},
	})
	require.NoError(t, err)
	assert.Equal(t, checksumOf([]byte("{}")), obj.Checksum)

	list, err := gateway.ListSegments(ctx, "history")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, obj.Checksum, list[0].Checksum)
}

func TestS3StorageGateway_ListWithoutChecksumMetadata(t *testing.T) {
	mockClient := NewMockS3Client()
	_, err := mockClient.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String("bucket"),
		Key:    aws.String("history/history_0.jsonl"),
		Body:   strings.NewReader("{}"),
	})
	require.NoError(t, err)

	gateway := NewS3StorageGatewayWithClient(mockClient, "bucket", "")
	list, err := gateway.ListSegments(context.Background(), "history")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Checksum)
	assert.Equal(t, int64(2), list[0].Size)
}

func TestS3StorageGateway_NoPrefix(t *testing.T) {
	mockClient := NewMockS3Client()
	gateway := NewS3StorageGatewayWithClient(mockClient, "bucket", "")

	_, err := gateway.SaveSegment(context.Background(), output.SaveSegmentRequest{
		Category: "history", Name: "history_3.jsonl", Content: []byte("{}"),
	})
	require.NoError(t, err)

	_, _, ok := mockClient.GetObjectForTest("history/history_3.jsonl")
	assert.True(t, ok)
}

func TestS3StorageGateway_ListsEveryPage(t *testing.T) {
	mockClient := NewMockS3Client()
	gateway := NewS3StorageGatewayWithClient(mockClient, "bucket", "archive")
	gateway.pageSize = 2
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := gateway.SaveSegment(ctx, output.SaveSegmentRequest{
			Category: "history", Name: fmt.Sprintf("history_%d.jsonl", i), Content: []byte("{}"),
		})
		require.NoError(t, err)
	}

	list, err := gateway.ListSegments(ctx, "history")
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "history_0.jsonl", list[0].Name)
	assert.Equal(t, "history_4.jsonl", list[4].Name)
	assert.Equal(t, 3, mockClient.ListCalls())
}

func TestLocalStorageGateway_SaveAndListSegments(t *testing.T) {
	fs := afero.NewMemMapFs()
	gateway, err := NewLocalStorageGateway(fs, "/backup")
	require.NoError(t, err)
	ctx := context.Background()

	empty, err := gateway.ListSegments(ctx, "history")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, name := range []string{"history_1.jsonl", "history_0.jsonl"} {
		_, err := gateway.SaveSegment(ctx, output.SaveSegmentRequest{
			Category: "history", Name: name, Content: []byte(name),
		})
		require.NoError(t, err)
	}

	data, err := afero.ReadFile(fs, "/backup/history/history_0.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "history_0.jsonl", string(data))

	list, err := gateway.ListSegments(ctx, "history")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "history_0.jsonl", list[0].Name)
	assert.Equal(t, "history_1.jsonl", list[1].Name)
	assert.Equal(t, checksumOf([]byte("history_0.jsonl")), list[0].Checksum)

	// no temp files are left behind
	infos, err := afero.ReadDir(fs, "/backup/history")
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestNewLocalStorageGateway_RequiresDir(t *testing.T) {
	_, err := NewLocalStorageGateway(afero.NewMemMapFs(), "")
	assert.Error(t, err)
}
