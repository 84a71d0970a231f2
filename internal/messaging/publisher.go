package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"NexiaCore/internal/domain"
	"NexiaCore/pkg/logger"
	"NexiaCore/pkg/metrics"
	"NexiaCore/pkg/rabbitmq"
)

// publishTimeout максимальное время ожидания подтверждения брокера
const publishTimeout = 5 * time.Second

// EventPublisher интерфейс для публикации доменных событий
type EventPublisher interface {
	// PublishUserRegistered публикует событие регистрации пользователя.
	// Ошибка публикации не возвращается вызывающему: событие считается
	// best-effort, отказ фиксируется в логах и метриках.
	PublishUserRegistered(ctx context.Context, event *domain.UserRegisteredEvent)
}

// UserEventPublisher реализация EventPublisher поверх RabbitMQ
type UserEventPublisher struct {
	producer   *rabbitmq.Producer
	routingKey string
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewUserEventPublisher создает новый UserEventPublisher
func NewUserEventPublisher(producer *rabbitmq.Producer, routingKey string, log logger.Logger, m *metrics.Metrics) *UserEventPublisher {
	return &UserEventPublisher{
		producer:   producer,
		routingKey: routingKey,
		logger:     log,
		metrics:    m,
	}
}

// PublishUserRegistered публикует событие регистрации пользователя.
// Вызывается после фиксации пользователя в базе: отказ брокера не должен
// откатывать регистрацию.
func (p *UserEventPublisher) PublishUserRegistered(ctx context.Context, event *domain.UserRegisteredEvent) {
	if err := p.publish(ctx, event); err != nil {
		p.metrics.EventsPublishFailures.WithLabelValues(p.routingKey).Inc()
		p.logger.Error("failed to publish user registered event",
			logger.String("event_id", event.EventID),
			logger.String("user_id", event.UserID),
			logger.Error(err))
		return
	}

	p.metrics.EventsPublished.WithLabelValues(p.routingKey).Inc()
	p.logger.Info("user registered event published",
		logger.String("event_id", event.EventID),
		logger.String("user_id", event.UserID))
}

func (p *UserEventPublisher) publish(ctx context.Context, event *domain.UserRegisteredEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.producer.Publish(publishCtx, body,
		rabbitmq.WithRoutingKey(p.routingKey),
		rabbitmq.WithMessageID(event.EventID),
	)
}
