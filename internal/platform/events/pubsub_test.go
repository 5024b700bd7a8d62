package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/MoonsunCreations/Moonsun-Store/internal/checkout"
)

func TestHandoffPublisherPublishesEvent(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	opts := []option.ClientOption{
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}
	admin, err := pubsub.NewClient(ctx, "test-project", opts...)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = admin.Close()
	}()
	if _, err := admin.CreateTopic(ctx, "checkout-handoffs"); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, closeFn, err := Dial(ctx, "test-project", "checkout-handoffs", opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() {
		_ = closeFn()
	}()

	event := checkout.HandoffEvent{
		Reference: "01JREF",
		Channel:   "whatsapp",
		Lines:     []checkout.EventLine{{ID: "p1", Name: "Moonstone Ring", Qty: 2, Total: "200"}},
		Items:     2,
		Total:     "200",
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if _, err := publisher.PublishHandoff(ctx, event); err != nil {
		t.Fatalf("PublishHandoff: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var got checkout.HandoffEvent
	if err := json.Unmarshal(messages[0].Data, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.Reference != "01JREF" || len(got.Lines) != 1 || got.Lines[0].Qty != 2 {
		t.Fatalf("unexpected payload %#v", got)
	}
	attrs := messages[0].Attributes
	if attrs["reference"] != "01JREF" || attrs["channel"] != "whatsapp" || attrs["items"] != "2" {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
}

func TestHandoffPublisherRequiresTopic(t *testing.T) {
	if _, err := NewHandoffPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
	if _, _, err := Dial(context.Background(), "", "topic"); err == nil {
		t.Fatal("expected error for missing project")
	}
	var p *HandoffPublisher
	if _, err := p.PublishHandoff(context.Background(), checkout.HandoffEvent{}); err == nil {
		t.Fatal("expected error for nil publisher")
	}
}
