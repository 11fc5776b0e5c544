package storage

import (
	"context"
	"io"

	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
)

// s3Uploader is the part of pkg/aws.S3Client this backend needs.
type s3Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Storage keeps images in an S3 bucket. When baseURL is set (a CDN or the
// bucket website) it is used for returned URLs instead of the upload location.
type S3Storage struct {
	client  s3Uploader
	baseURL string
}

func NewS3Storage(client *awspkg.S3Client, baseURL string) *S3Storage {
	return &S3Storage{client: client, baseURL: baseURL}
}

func (s *S3Storage) Put(ctx context.Context, key, contentType string, r io.Reader, _ int64) (string, error) {
	location, err := s.client.Upload(ctx, key, contentType, r)
	if err != nil {
		return "", err
	}
	if s.baseURL != "" {
		return publicURL(s.baseURL, key), nil
	}
	return location, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, key)
}
