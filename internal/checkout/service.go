package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MoonsunCreations/Moonsun-Store/internal/cart"
	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
)

var tracer = otel.Tracer("github.com/MoonsunCreations/Moonsun-Store/internal/checkout")

var errCatalogRequired = errors.New("checkout service: catalog is required")

const defaultPublishTimeout = 5 * time.Second

// ServiceDeps wires the checkout service.
type ServiceDeps struct {
	Catalog     func() *catalog.Catalog
	Config      Config
	Logger      *zap.Logger
	Clock       func() time.Time
	IDGenerator func() string
	Publisher   HandoffPublisher
	// PublishTimeout bounds each background publish. Defaults to 5s.
	PublishTimeout time.Duration
}

// HandoffPublisher announces started checkouts to the merchant's back office.
type HandoffPublisher interface {
	PublishHandoff(ctx context.Context, event HandoffEvent) (string, error)
}

// HandoffEvent is the published form of a Handoff.
type HandoffEvent struct {
	Reference string      `json:"reference"`
	Channel   string      `json:"channel"`
	Lines     []EventLine `json:"lines"`
	Items     int         `json:"items"`
	Total     string      `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
}

// EventLine is one order line inside a HandoffEvent.
type EventLine struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Qty   int    `json:"qty"`
	Total string `json:"total"`
}

// Service hands carts off to the merchant's WhatsApp inbox.
type Service struct {
	catalog func() *catalog.Catalog
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	events         HandoffPublisher
	publishTimeout time.Duration
	inflight       sync.WaitGroup
}

// Handoff is the result of a started checkout.
type Handoff struct {
	Reference string
	Message   string
	URL       string
	Order     Order
	CreatedAt time.Time
}

// NewService validates deps and fills defaults.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Catalog == nil {
		return nil, errCatalogRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	timeout := deps.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Service{
		catalog:        deps.Catalog,
		cfg:            deps.Config,
		logger:         logger,
		now:            func() time.Time { return now().UTC() },
		newID:          idGen,
		events:         deps.Publisher,
		publishTimeout: timeout,
	}, nil
}

// PaymentLink returns the PayPal link for a cart total under the service config.
func (s *Service) PaymentLink(total pricing.Amount) Link {
	return PaymentLink(s.cfg, total)
}

// StartWhatsApp builds the order message for c and the wa.me link to send it.
// Every handoff gets a reference that is logged with the order summary.
func (s *Service) StartWhatsApp(ctx context.Context, c cart.Cart) (Handoff, error) {
	ctx, span := tracer.Start(ctx, "checkout.StartWhatsApp")
	defer span.End()

	products := s.catalog()
	msg, err := BuildWhatsAppMessage(products, c, s.cfg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Handoff{}, err
	}

	order := Summarize(products, c)
	handoff := Handoff{
		Reference: s.newID(),
		Message:   msg,
		URL:       WhatsAppURL(s.cfg, msg),
		Order:     order,
		CreatedAt: s.now(),
	}
	span.SetAttributes(
		attribute.String("checkout.reference", handoff.Reference),
		attribute.Int("checkout.lines", len(order.Lines)),
		attribute.Int("checkout.items", order.Count),
	)
	s.logger.Info("whatsapp checkout started",
		zap.String("reference", handoff.Reference),
		zap.Int("lines", len(order.Lines)),
		zap.Int("items", order.Count),
		zap.String("total", order.Total.String()),
		zap.Int("skipped_lines", c.Len()-len(order.Lines)),
	)
	s.publish(ctx, "whatsapp", handoff)
	return handoff, nil
}

// publish sends the handoff event in the background so a slow or unreachable
// topic never holds the visitor's redirect. Failures are only logged.
func (s *Service) publish(ctx context.Context, channel string, h Handoff) {
	if s.events == nil {
		return
	}
	event := HandoffEvent{
		Reference: h.Reference,
		Channel:   channel,
		Lines:     make([]EventLine, 0, len(h.Order.Lines)),
		Items:     h.Order.Count,
		Total:     h.Order.Total.String(),
		CreatedAt: h.CreatedAt,
	}
	for _, line := range h.Order.Lines {
		event.Lines = append(event.Lines, EventLine{ID: line.ID, Name: line.Name, Qty: line.Qty, Total: line.Total.String()})
	}

	// Detached from the request so the publish outlives the redirect, but
	// still carrying its span and logger values.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		id, err := s.events.PublishHandoff(pubCtx, event)
		if err != nil {
			trace.SpanFromContext(pubCtx).RecordError(err)
			s.logger.Warn("handoff event publish failed", zap.String("reference", h.Reference), zap.Error(err))
			return
		}
		s.logger.Debug("handoff event published", zap.String("reference", h.Reference), zap.String("message_id", id))
	}()
}

// Wait blocks until background publishes finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
