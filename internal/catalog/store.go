package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/MoonsunCreations/Moonsun-Store/internal/catalog"

var tracer = otel.Tracer(instrumentationName)

var errLoaderRequired = errors.New("catalog: loader is required")

// ReplaceFunc is called with the new snapshot after every successful Replace.
type ReplaceFunc func(*Catalog)

// Store holds the current catalog snapshot. Reads never block; Refresh swaps
// the snapshot atomically.
type Store struct {
	current atomic.Pointer[Catalog]
	loader  *Loader
	logger  *zap.Logger

	mu        sync.Mutex
	listeners []ReplaceFunc

	refreshes metric.Int64Counter
	products  metric.Int64Gauge
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for refresh failures.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMeter records refresh counts and catalog size on the provided meter.
func WithMeter(meter metric.Meter) StoreOption {
	return func(s *Store) {
		if meter == nil {
			return
		}
		if c, err := meter.Int64Counter("storefront.catalog.refreshes",
			metric.WithDescription("Catalog refresh attempts by result.")); err == nil {
			s.refreshes = c
		}
		if g, err := meter.Int64Gauge("storefront.catalog.products",
			metric.WithDescription("Products in the active catalog.")); err == nil {
			s.products = g
		}
	}
}

// NewStore returns a Store that starts with an empty catalog.
func NewStore(loader *Loader, opts ...StoreOption) (*Store, error) {
	if loader == nil {
		return nil, errLoaderRequired
	}
	s := &Store{
		loader: loader,
		logger: zap.NewNop(),
	}
	s.current.Store(Empty())
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Current returns the active snapshot; never nil.
func (s *Store) Current() *Catalog {
	if c := s.current.Load(); c != nil {
		return c
	}
	return Empty()
}

// OnReplace registers fn to run after each swap.
func (s *Store) OnReplace(fn ReplaceFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Replace swaps in a new snapshot.
func (s *Store) Replace(c *Catalog) {
	if c == nil {
		c = Empty()
	}
	s.current.Store(c)

	s.mu.Lock()
	listeners := append([]ReplaceFunc(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(c)
	}
}

// Refresh loads the catalog and swaps it in. On failure the previous snapshot
// stays active and the error is logged and returned. Skipped records do not
// block the swap; their ErrInvalidProduct error is still returned.
func (s *Store) Refresh(ctx context.Context) error {
	source := s.loader.Source().String()
	ctx, span := tracer.Start(ctx, "catalog.Refresh")
	span.SetAttributes(attribute.String("catalog.source", source))
	defer span.End()

	products, err := s.loader.Load(ctx)
	if err != nil && !errors.Is(err, ErrInvalidProduct) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog load failed")
		s.record(ctx, "error")
		s.logger.Error("catalog load failed",
			zap.String("source", source),
			zap.Int("products_kept", s.Current().Len()),
			zap.Error(err),
		)
		return err
	}

	next := New(products)
	s.Replace(next)
	span.SetAttributes(attribute.Int("catalog.products", next.Len()))
	if s.products != nil {
		s.products.Record(ctx, int64(next.Len()))
	}
	if err != nil {
		span.RecordError(err)
		s.record(ctx, "partial")
		s.logger.Warn("catalog loaded with skipped records",
			zap.String("source", source),
			zap.Int("products", next.Len()),
			zap.Error(err),
		)
		return err
	}
	s.record(ctx, "ok")
	s.logger.Info("catalog loaded", zap.String("source", source), zap.Int("products", next.Len()))
	return nil
}

func (s *Store) record(ctx context.Context, result string) {
	if s.refreshes == nil {
		return
	}
	s.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
