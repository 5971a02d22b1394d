package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore uploads report images and contact attachments to GCS_BUCKET.
// The underlying client is created on first use and shared afterwards.
type GCSStore struct {
	Bucket string

	mu     sync.Mutex
	client *storage.Client
}

func NewGCSStore() *GCSStore {
	return &GCSStore{Bucket: strings.TrimSpace(os.Getenv("GCS_BUCKET"))}
}

// getGoogleClient initializes a Google Cloud Storage client.
// ADC is preferred; GCS_CREDENTIALS_JSON overrides it for local runs.
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

func (s *GCSStore) getClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	c, err := getGoogleClient(ctx)
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}

// Put uploads data under objectKey and returns the public access URL.
func (s *GCSStore) Put(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	if s.Bucket == "" {
		return "", errors.New("GCS_BUCKET is required")
	}
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	wc := client.Bucket(s.Bucket).Object(objectKey).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to upload bytes to Google Cloud Storage: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}
	return BuildObjectAccessURL(objectKey), nil
}

// Delete removes objectKey; a missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, objectKey string) error {
	if s.Bucket == "" {
		return errors.New("GCS_BUCKET is required")
	}
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	err = client.Bucket(s.Bucket).Object(objectKey).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (s *GCSStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
