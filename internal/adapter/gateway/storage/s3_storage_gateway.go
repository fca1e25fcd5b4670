package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
)

// checksumMetadataKey holds the hex sha256 of a segment in its object metadata
const checksumMetadataKey = "checksum"

// S3StorageGateway implements StorageGateway using AWS S3
// Bucket structure: s3://<bucket>/<prefix>/<category>/<segment name>
type S3StorageGateway struct {
	client     S3API // Use interface for testability
	bucketName string
	prefix     string // Optional prefix for all keys (e.g., "llmhelper/laptop")
	pageSize   int32  // keys per list request; 0 lets S3 decide
}

// S3Config holds S3 storage gateway configuration
type S3Config struct {
	BucketName string // S3 bucket name
	Prefix     string // Optional key prefix
	Region     string // AWS region (optional, uses default if empty)
	PageSize   int32  // Keys per list request (optional)
}

// NewS3StorageGateway creates a new S3-based storage gateway
func NewS3StorageGateway(ctx context.Context, cfg S3Config) (*S3StorageGateway, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	// Load AWS configuration
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	// Override region if specified
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}

	g := NewS3StorageGatewayWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.Prefix)
	g.pageSize = cfg.PageSize
	return g, nil
}

// NewS3StorageGatewayWithClient creates a new S3-based storage gateway with custom S3 client
// This is primarily used for testing with mock S3 clients
func NewS3StorageGatewayWithClient(client S3API, bucketName, prefix string) *S3StorageGateway {
	return &S3StorageGateway{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}
}

// SaveSegment uploads a segment to S3
func (g *S3StorageGateway) SaveSegment(ctx context.Context, req output.SaveSegmentRequest) (*output.SegmentObject, error) {
	key := g.buildKey(req.Category, req.Name)
	checksum := checksumOf(req.Content)
	uploadedAt := time.Now().UTC()

	// Prepare metadata as S3 object metadata
	s3Metadata := make(map[string]string, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		s3Metadata[k] = v
	}
	s3Metadata["category"] = req.Category
	s3Metadata[checksumMetadataKey] = checksum
	s3Metadata["uploaded-at"] = uploadedAt.Format(time.RFC3339)

	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(req.Content),
		ContentType: aws.String("application/x-ndjson"),
		Metadata:    s3Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to S3: %w", err)
	}

	return &output.SegmentObject{
		Category:    req.Category,
		Name:        req.Name,
		StoragePath: fmt.Sprintf("s3://%s/%s", g.bucketName, key),
		Size:        int64(len(req.Content)),
		Checksum:    checksum,
		UploadedAt:  uploadedAt,
	}, nil
}

// ListSegments lists the archived segments of a category
func (g *S3StorageGateway) ListSegments(ctx context.Context, category string) ([]*output.SegmentObject, error) {
	prefix := g.buildKey(category) + "/"

	var segments []*output.SegmentObject
	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucketName),
		Prefix: aws.String(prefix),
	}, func(o *s3.ListObjectsV2PaginatorOptions) {
		if g.pageSize > 0 {
			o.Limit = g.pageSize
		}
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			checksum, err := g.checksumOfObject(ctx, key)
			if err != nil {
				return nil, err
			}
			segments = append(segments, &output.SegmentObject{
				Category:    category,
				Name:        name,
				StoragePath: fmt.Sprintf("s3://%s/%s", g.bucketName, key),
				Size:        aws.ToInt64(obj.Size),
				Checksum:    checksum,
				UploadedAt:  aws.ToTime(obj.LastModified),
			})
		}
	}
	return segments, nil
}

// checksumOfObject reads the sha256 SaveSegment stored in the object
// metadata. Objects uploaded by other tools have none.
func (g *S3StorageGateway) checksumOfObject(ctx context.Context, key string) (string, error) {
	head, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("head S3 object %s: %w", key, err)
	}
	return head.Metadata[checksumMetadataKey], nil
}

// buildKey builds an S3 key with the configured prefix
func (g *S3StorageGateway) buildKey(parts ...string) string {
	if g.prefix != "" {
		parts = append([]string{g.prefix}, parts...)
	}
	return path.Join(parts...)
}

func checksumOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
