package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MockS3Client keeps uploaded segments in memory and serves paginated
// listings of them
type MockS3Client struct {
	mu        sync.RWMutex
	objects   map[string]*mockS3Object // key -> object
	listCalls int
}

// mockS3Object represents an S3 object stored in memory
type mockS3Object struct {
	content      []byte
	contentType  string
	metadata     map[string]string
	lastModified time.Time
}

// NewMockS3Client creates a new mock S3 client
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{
		objects: make(map[string]*mockS3Object),
	}
}

// PutObject simulates uploading an object to S3
func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	key := aws.ToString(params.Key)
	m.objects[key] = &mockS3Object{
		content:      content,
		contentType:  aws.ToString(params.ContentType),
		metadata:     params.Metadata,
		lastModified: time.Now().UTC(),
	}

	return &s3.PutObjectOutput{}, nil
}

// ListObjectsV2 lists keys under Prefix in key order. MaxKeys splits the
// listing into pages chained by ContinuationToken, like S3 does.
func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	prefix := aws.ToString(params.Prefix)
	after := aws.ToString(params.ContinuationToken)
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) && key > after {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if limit := int(aws.ToInt32(params.MaxKeys)); limit > 0 && len(keys) > limit {
		keys = keys[:limit]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[limit-1])
	}
	for _, key := range keys {
		obj := m.objects[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.content))),
			LastModified: aws.Time(obj.lastModified),
		})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}

// HeadObject returns the size and metadata of a stored object, or
// *types.NotFound
func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("no such key: " + aws.ToString(params.Key))}
	}
	metadata := make(map[string]string, len(obj.metadata))
	for k, v := range obj.metadata {
		metadata[k] = v
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.content))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.lastModified),
		Metadata:      metadata,
	}, nil
}

// ListCalls returns how many list requests were served
func (m *MockS3Client) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

// GetObjectCount returns the number of stored objects (for testing)
func (m *MockS3Client) GetObjectCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// GetObjectForTest returns the content and metadata stored under key (for testing)
func (m *MockS3Client) GetObjectForTest(key string) ([]byte, map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, exists := m.objects[key]
	if !exists {
		return nil, nil, false
	}
	return obj.content, obj.metadata, true
}
