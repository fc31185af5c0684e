package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

var (
	// ErrInvalidURI is returned for anything that is not gs://bucket/object.
	ErrInvalidURI = errors.New("invalid gcs uri")
	// ErrObjectNotFound is returned when the bucket or object does not exist.
	ErrObjectNotFound = errors.New("gcs object not found")
	// ErrObjectTooLarge is returned when the object exceeds the caller's size limit.
	ErrObjectTooLarge = errors.New("gcs object too large")
	// ErrObjectAccess is returned when the caller is not allowed to read the object.
	ErrObjectAccess = errors.New("gcs object access denied")
)

// ParseGCSURI splits gs://bucket/path/to/object into its bucket and object name.
func ParseGCSURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "gs://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return bucket, object, nil
}

// ObjectReader reads whole GCS objects into memory. The storage client is
// created on first use and shared by all later calls.
type ObjectReader struct {
	once    sync.Once
	client  *storage.Client
	initErr error
}

// NewObjectReader returns a reader that creates its storage client lazily.
func NewObjectReader() *ObjectReader {
	return &ObjectReader{}
}

// ReadObject downloads the object at uri. Objects larger than limit bytes are rejected
// without being read. It returns the content and the object's content type.
func (r *ObjectReader) ReadObject(ctx context.Context, uri string, limit int64) ([]byte, string, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, "", err
	}

	r.once.Do(func() {
		r.client, r.initErr = storage.NewClient(context.Background())
	})
	if r.initErr != nil {
		return nil, "", fmt.Errorf("failed to create storage client: %w", r.initErr)
	}

	reader, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, "", classifyStorageError(err, uri)
	}
	defer reader.Close()

	if reader.Attrs.Size > limit {
		return nil, "", fmt.Errorf("%w: gs://%s/%s is %d bytes (limit %d)", ErrObjectTooLarge, bucket, object, reader.Attrs.Size, limit)
	}

	data, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, classifyStorageError(err, uri))
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("%w: gs://%s/%s exceeds %d bytes", ErrObjectTooLarge, bucket, object, limit)
	}
	return data, reader.Attrs.ContentType, nil
}

// Close releases the storage client if one was created.
func (r *ObjectReader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func classifyStorageError(err error, uri string) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, uri)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 403, 401:
			slog.Error("Access to GCS object denied.", "gcsUri", uri, "code", gerr.Code, "error", gerr.Message)
			return fmt.Errorf("%w: %s", ErrObjectAccess, uri)
		case 404:
			return fmt.Errorf("%w: %s", ErrObjectNotFound, uri)
		}
	}
	return fmt.Errorf("failed to open GCS object %s: %w", uri, err)
}
