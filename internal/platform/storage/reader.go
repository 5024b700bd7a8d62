package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
	errNoClient      = errors.New("storage: client is not initialised")
)

// ErrObjectNotFound is returned when the bucket or object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// objectReader is the slice of *storage.Client the Reader needs.
type objectReader interface {
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Close() error
}

// Reader opens Cloud Storage objects for streaming reads.
type Reader struct {
	client objectReader
}

// Options configures the underlying Cloud Storage client.
type Options struct {
	// Anonymous skips credential lookup; suitable for public buckets.
	Anonymous bool
	// Endpoint overrides the API endpoint, e.g. for an emulator.
	Endpoint string
}

// NewReader dials Cloud Storage.
func NewReader(ctx context.Context, opts Options) (*Reader, error) {
	var clientOpts []option.ClientOption
	if opts.Anonymous {
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: new client: %w", err)
	}
	return &Reader{client: gcsClient{client}}, nil
}

// NewObjectReader implements catalog.ObjectOpener.
func (r *Reader) NewObjectReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	if r == nil || r.client == nil {
		return nil, errNoClient
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	object = strings.TrimPrefix(strings.TrimSpace(object), "/")
	if object == "" {
		return nil, errInvalidObject
	}
	rc, err := r.client.NewReader(ctx, bucket, object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, object)
		}
		return nil, err
	}
	return rc, nil
}

// Close releases the client.
func (r *Reader) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

type gcsClient struct {
	*storage.Client
}

func (c gcsClient) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	rc, err := c.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	return rc, nil
}
