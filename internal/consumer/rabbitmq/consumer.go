package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"NexiaCore/internal/domain"
	"NexiaCore/internal/repository"
	"NexiaCore/pkg/logger"
	"NexiaCore/pkg/metrics"
	"NexiaCore/pkg/rabbitmq"
)

// UserEventConsumer применяет события регистрации пользователей.
// Доставка at-least-once: одно и то же событие может прийти несколько раз,
// эффект применяется ровно один раз благодаря журналу processed_messages.
type UserEventConsumer struct {
	consumer  *rabbitmq.Consumer
	processed repository.ProcessedMessageRepository
	queue     string
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// NewUserEventConsumer создает новый консьюмер событий пользователей
func NewUserEventConsumer(
	consumer *rabbitmq.Consumer,
	processed repository.ProcessedMessageRepository,
	queue string,
	log logger.Logger,
	m *metrics.Metrics,
) *UserEventConsumer {
	return &UserEventConsumer{
		consumer:  consumer,
		processed: processed,
		queue:     queue,
		logger:    log,
		metrics:   m,
	}
}

// Start регистрирует обработчик и запускает потребление.
// Блокируется до отмены контекста.
func (c *UserEventConsumer) Start(ctx context.Context) error {
	c.consumer.RegisterHandler(c.queue, c.handleUserRegistered)
	return c.consumer.Start(ctx)
}

// handleUserRegistered обрабатывает одну доставку события регистрации.
// Возврат nil приводит к ack, ошибка — к nack и повторной доставке.
func (c *UserEventConsumer) handleUserRegistered(ctx context.Context, msg amqp091.Delivery) error {
	var event domain.UserRegisteredEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		// Некорректное тело не станет корректным при повторной доставке
		c.logger.Error("failed to unmarshal user registered event",
			logger.String("message_id", msg.MessageId),
			logger.Error(err))
		return nil
	}

	if event.EventID == "" {
		c.logger.Error("user registered event without event id",
			logger.String("message_id", msg.MessageId))
		return nil
	}

	// Проверка журнала до применения эффекта: повторная доставка
	// уже примененного события подтверждается без эффекта
	alreadyProcessed, err := c.processed.IsProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event %s: %w", event.EventID, err)
	}

	if alreadyProcessed {
		c.metrics.EventsDuplicate.WithLabelValues(c.queue).Inc()
		c.logger.Info("duplicate event discarded",
			logger.String("event_id", event.EventID),
			logger.String("user_id", event.UserID))
		return nil
	}

	if err := c.apply(&event); err != nil {
		return fmt.Errorf("failed to apply event %s: %w", event.EventID, err)
	}

	if err := c.processed.MarkProcessed(ctx, event.EventID); err != nil {
		// Конкурентный консьюмер успел записать событие первым: эффект
		// уже применен другой стороной, доставку можно подтверждать
		if errors.Is(err, repository.ErrDuplicate) {
			c.metrics.EventsDuplicate.WithLabelValues(c.queue).Inc()
			c.logger.Info("event processed concurrently",
				logger.String("event_id", event.EventID))
			return nil
		}
		return fmt.Errorf("failed to mark event %s as processed: %w", event.EventID, err)
	}

	c.metrics.EventsConsumed.WithLabelValues(c.queue).Inc()

	return nil
}

// apply применяет эффект события: запись в журнал аудита регистраций
func (c *UserEventConsumer) apply(event *domain.UserRegisteredEvent) error {
	c.logger.Info("user registration recorded",
		logger.String("event_id", event.EventID),
		logger.String("user_id", event.UserID),
		logger.String("email", event.Email),
		logger.String("occurred_at", event.OccurredAt.Format("2006-01-02T15:04:05Z07:00")))

	return nil
}

// HealthCheck проверяет состояние консьюмера
func (c *UserEventConsumer) HealthCheck(ctx context.Context) error {
	return c.consumer.HealthCheck(ctx)
}
