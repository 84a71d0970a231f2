package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"NexiaCore/internal/domain"
	"NexiaCore/internal/repository"
	"NexiaCore/pkg/logger"
	"NexiaCore/pkg/metrics"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...logger.Field) {}
func (nopLogger) Info(msg string, fields ...logger.Field)  {}
func (nopLogger) Warn(msg string, fields ...logger.Field)  {}
func (nopLogger) Error(msg string, fields ...logger.Field) {}
func (nopLogger) With(fields ...logger.Field) logger.Logger {
	return nopLogger{}
}
func (nopLogger) Sync() error { return nil }

// MockProcessedMessageRepository мок журнала примененных событий
type MockProcessedMessageRepository struct {
	mock.Mock
}

func (m *MockProcessedMessageRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProcessedMessageRepository) MarkProcessed(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func newConsumer(processed repository.ProcessedMessageRepository) *UserEventConsumer {
	return NewUserEventConsumer(nil, processed, "nexia.core.user-events", nopLogger{}, metrics.NewMetrics("nexia_core_test"))
}

func delivery(t *testing.T, event *domain.UserRegisteredEvent) amqp091.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp091.Delivery{Body: body, MessageId: event.EventID}
}

func TestHandleUserRegistered_FirstDelivery(t *testing.T) {
	processed := new(MockProcessedMessageRepository)
	event := domain.NewUserRegisteredEvent("user-1", "user@example.com")

	processed.On("IsProcessed", mock.Anything, event.EventID).Return(false, nil)
	processed.On("MarkProcessed", mock.Anything, event.EventID).Return(nil)

	consumer := newConsumer(processed)

	err := consumer.handleUserRegistered(context.Background(), delivery(t, event))
	assert.NoError(t, err)

	processed.AssertExpectations(t)
}

func TestHandleUserRegistered_DuplicateDelivery(t *testing.T) {
	processed := new(MockProcessedMessageRepository)
	event := domain.NewUserRegisteredEvent("user-1", "user@example.com")

	processed.On("IsProcessed", mock.Anything, event.EventID).Return(true, nil)

	consumer := newConsumer(processed)

	// Повторная доставка подтверждается без повторного эффекта
	err := consumer.handleUserRegistered(context.Background(), delivery(t, event))
	assert.NoError(t, err)

	processed.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestHandleUserRegistered_RepeatedDeliveries(t *testing.T) {
	// Любое количество доставок одного события дает ровно одну запись
	for _, deliveries := range []int{1, 2, 5} {
		processed := new(MockProcessedMessageRepository)
		event := domain.NewUserRegisteredEvent("user-1", "user@example.com")

		processed.On("IsProcessed", mock.Anything, event.EventID).Return(false, nil).Once()
		processed.On("IsProcessed", mock.Anything, event.EventID).Return(true, nil)
		processed.On("MarkProcessed", mock.Anything, event.EventID).Return(nil).Once()

		consumer := newConsumer(processed)

		for i := 0; i < deliveries; i++ {
			err := consumer.handleUserRegistered(context.Background(), delivery(t, event))
			require.NoError(t, err)
		}

		processed.AssertNumberOfCalls(t, "MarkProcessed", 1)
	}
}

func TestHandleUserRegistered_ConcurrentMark(t *testing.T) {
	processed := new(MockProcessedMessageRepository)
	event := domain.NewUserRegisteredEvent("user-1", "user@example.com")

	// Другой консьюмер записал событие между проверкой и вставкой
	processed.On("IsProcessed", mock.Anything, event.EventID).Return(false, nil)
	processed.On("MarkProcessed", mock.Anything, event.EventID).Return(repository.ErrDuplicate)

	consumer := newConsumer(processed)

	// Доставка подтверждается: эффект применен конкурентом
	err := consumer.handleUserRegistered(context.Background(), delivery(t, event))
	assert.NoError(t, err)
}

func TestHandleUserRegistered_StorageFailure(t *testing.T) {
	processed := new(MockProcessedMessageRepository)
	event := domain.NewUserRegisteredEvent("user-1", "user@example.com")

	processed.On("IsProcessed", mock.Anything, event.EventID).Return(false, assert.AnError)

	consumer := newConsumer(processed)

	// Ошибка хранилища приводит к nack и повторной доставке
	err := consumer.handleUserRegistered(context.Background(), delivery(t, event))
	assert.Error(t, err)
}

func TestHandleUserRegistered_MalformedBody(t *testing.T) {
	processed := new(MockProcessedMessageRepository)
	consumer := newConsumer(processed)

	// Некорректное тело подтверждается: повторная доставка его не исправит
	err := consumer.handleUserRegistered(context.Background(), amqp091.Delivery{Body: []byte("{not json")})
	assert.NoError(t, err)

	processed.AssertNotCalled(t, "IsProcessed", mock.Anything, mock.Anything)
}

func TestHandleUserRegistered_MissingEventID(t *testing.T) {
	processed := new(MockProcessedMessageRepository)
	consumer := newConsumer(processed)

	event := &domain.UserRegisteredEvent{
		OccurredAt: time.Now().UTC(),
		UserID:     "user-1",
		Email:      "user@example.com",
	}

	err := consumer.handleUserRegistered(context.Background(), delivery(t, event))
	assert.NoError(t, err)

	processed.AssertNotCalled(t, "IsProcessed", mock.Anything, mock.Anything)
}
