package catalog

import (
	"context"
	"errors"
	"time"
)

var errSourceRequired = errors.New("catalog: source is required")

// Loader reads and decodes the catalog document from a Source.
type Loader struct {
	source  Source
	timeout time.Duration
}

// NewLoader constructs a Loader. A non-positive timeout disables the deadline.
func NewLoader(source Source, timeout time.Duration) (*Loader, error) {
	if source == nil {
		return nil, errSourceRequired
	}
	return &Loader{source: source, timeout: timeout}, nil
}

// Source returns the configured source.
func (l *Loader) Source() Source { return l.source }

// Load fetches and decodes every product. Like Decode, it may return usable
// products alongside an ErrInvalidProduct error for skipped records.
func (l *Loader) Load(ctx context.Context) ([]Product, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	rc, err := l.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Decode(rc)
}
