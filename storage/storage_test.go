package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	uploaded map[string][]byte
	deleted  []string
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(body)
	if f.uploaded == nil {
		f.uploaded = map[string][]byte{}
	}
	f.uploaded[key] = b
	return "https://bucket.s3.amazonaws.com/" + key, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func TestS3Storage_PutUsesLocationWithoutBaseURL(t *testing.T) {
	up := &fakeUploader{}
	s := &S3Storage{client: up}

	url, err := s.Put(context.Background(), "products/a.png", "image/png", bytes.NewReader([]byte("png")), 3)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/products/a.png", url)
	assert.Equal(t, []byte("png"), up.uploaded["products/a.png"])
}

func TestS3Storage_PutPrefersBaseURL(t *testing.T) {
	s := &S3Storage{client: &fakeUploader{}, baseURL: "https://cdn.example.com/"}

	url, err := s.Put(context.Background(), "products/a.png", "image/png", bytes.NewReader(nil), 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/products/a.png", url)
}

func TestS3Storage_PutError(t *testing.T) {
	s := &S3Storage{client: &fakeUploader{err: errors.New("denied")}}

	_, err := s.Put(context.Background(), "k", "image/png", bytes.NewReader(nil), 0)
	assert.Error(t, err)
}

func TestS3Storage_Delete(t *testing.T) {
	up := &fakeUploader{}
	s := &S3Storage{client: up}

	require.NoError(t, s.Delete(context.Background(), "products/a.png"))
	assert.Equal(t, []string{"products/a.png"}, up.deleted)
}

func TestNewMinIO_RequiresConfig(t *testing.T) {
	_, err := NewMinIO(context.Background(), MinIOConfig{})
	assert.EqualError(t, err, "minio endpoint is required")

	_, err = NewMinIO(context.Background(), MinIOConfig{Endpoint: "localhost:9000"})
	assert.EqualError(t, err, "minio credentials are required")

	_, err = NewMinIO(context.Background(), MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.EqualError(t, err, "minio bucket is required")
}
