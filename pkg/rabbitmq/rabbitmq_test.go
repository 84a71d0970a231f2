package rabbitmq

import (
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

func TestNewConfig_Defaults(t *testing.T) {
	config := NewConfig()

	if config.Exchange != "nexia.events" {
		t.Errorf("expected exchange nexia.events, got %s", config.Exchange)
	}
	if config.Queue != "nexia.core.user-events" {
		t.Errorf("expected queue nexia.core.user-events, got %s", config.Queue)
	}
	if config.RoutingKey != "user.registered" {
		t.Errorf("expected routing key user.registered, got %s", config.RoutingKey)
	}
	if config.DLX == "" {
		t.Error("expected dead letter exchange to be configured")
	}
	if config.DLQ == "" {
		t.Error("expected dead letter queue to be configured")
	}
	if config.PrefetchCount != 1 {
		t.Errorf("expected prefetch count 1, got %d", config.PrefetchCount)
	}
}

func TestPublishOptions(t *testing.T) {
	opts := &PublishOptions{}

	for _, option := range []PublishOption{
		WithExchange("custom.exchange"),
		WithRoutingKey("custom.key"),
		WithMessageID("event-123"),
		WithHeaders(amqp091.Table{"x-source": "test"}),
	} {
		option(opts)
	}

	if opts.Exchange != "custom.exchange" {
		t.Errorf("expected custom exchange, got %s", opts.Exchange)
	}
	if opts.RoutingKey != "custom.key" {
		t.Errorf("expected custom routing key, got %s", opts.RoutingKey)
	}
	if opts.MessageID != "event-123" {
		t.Errorf("expected message id event-123, got %s", opts.MessageID)
	}
	if opts.Headers["x-source"] != "test" {
		t.Error("expected header x-source to be set")
	}
}
