package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/MoonsunCreations/Moonsun-Store/internal/checkout"
)

// HandoffPublisher publishes checkout handoffs to a Pub/Sub topic.
type HandoffPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewHandoffPublisher wraps an existing topic.
func NewHandoffPublisher(topic *pubsub.Topic) (*HandoffPublisher, error) {
	if topic == nil {
		return nil, errors.New("handoff publisher: topic is required")
	}
	return &HandoffPublisher{topic: topic, marshal: json.Marshal}, nil
}

// Dial opens a Pub/Sub client for project and returns a publisher for
// topicID along with a func that flushes pending messages and closes the client.
func Dial(ctx context.Context, project, topicID string, opts ...option.ClientOption) (*HandoffPublisher, func() error, error) {
	project = strings.TrimSpace(project)
	topicID = strings.TrimSpace(topicID)
	if project == "" || topicID == "" {
		return nil, nil, errors.New("handoff publisher: project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	publisher, err := NewHandoffPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closeFn := func() error {
		topic.Stop()
		return client.Close()
	}
	return publisher, closeFn, nil
}

// PublishHandoff sends event and waits for the server-assigned message id.
func (p *HandoffPublisher) PublishHandoff(ctx context.Context, event checkout.HandoffEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("handoff publisher: not initialised")
	}
	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal handoff: %w", err)
	}

	attrs := map[string]string{"items": strconv.Itoa(event.Items)}
	setAttr(attrs, "reference", event.Reference)
	setAttr(attrs, "channel", event.Channel)
	setAttr(attrs, "total", event.Total)

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish handoff: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
