package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

var (
	// ErrUnsupportedSource is returned for catalog locations with an unknown scheme.
	ErrUnsupportedSource = errors.New("catalog: unsupported source")

	errObjectOpenerMissing = errors.New("catalog: object storage client not configured")
)

// Source opens the raw catalog document.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// ObjectOpener reads objects from a bucket store such as Cloud Storage.
type ObjectOpener interface {
	NewObjectReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// SourceOptions supplies the clients a parsed source may need.
type SourceOptions struct {
	HTTPClient *http.Client
	Objects    ObjectOpener
}

// ParseSource maps a location to a Source: a file path, an http(s) URL or a
// gs://bucket/object reference.
func ParseSource(raw string, opts SourceOptions) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty location", ErrUnsupportedSource)
	}
	if !strings.Contains(raw, "://") {
		return FileSource{Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return FileSource{Path: filepath.FromSlash(u.Host + u.Path)}, nil
	case "http", "https":
		return HTTPSource{URL: u.String(), Client: opts.HTTPClient}, nil
	case "gs":
		object := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return nil, fmt.Errorf("%w: %q needs gs://bucket/object", ErrUnsupportedSource, raw)
		}
		return ObjectSource{Bucket: u.Host, Object: object, Opener: opts.Objects}, nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, u.Scheme)
	}
}

// FileSource reads the catalog from the local filesystem.
type FileSource struct {
	Path string
}

// Open implements Source.
func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", s.Path, err)
	}
	return f, nil
}

func (s FileSource) String() string { return s.Path }

// HTTPSource fetches the catalog over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Open implements Source.
func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %s: %w", s.URL, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("catalog: fetch %s: status %d: %s", s.URL, resp.StatusCode, drainError(resp.Body))
	}
	return resp.Body, nil
}

func (s HTTPSource) String() string { return s.URL }

// ObjectSource reads the catalog from a bucket object.
type ObjectSource struct {
	Bucket string
	Object string
	Opener ObjectOpener
}

// Open implements Source.
func (s ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Opener == nil {
		return nil, errObjectOpenerMissing
	}
	rc, err := s.Opener.NewObjectReader(ctx, s.Bucket, s.Object)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", s.String(), err)
	}
	return rc, nil
}

func (s ObjectSource) String() string { return "gs://" + s.Bucket + "/" + s.Object }

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
