package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Consumer представляет консьюмера сообщений
type Consumer struct {
	conn     *Connection
	config   *Config
	handlers map[string]MessageHandler
}

// MessageHandler функция для обработки сообщения.
// Возврат nil приводит к ack, ошибка — к nack с повторной доставкой.
type MessageHandler func(context.Context, amqp091.Delivery) error

// NewConsumer создает нового консьюмера
func NewConsumer(conn *Connection, config *Config) *Consumer {
	return &Consumer{
		conn:     conn,
		config:   config,
		handlers: make(map[string]MessageHandler),
	}
}

// RegisterHandler регистрирует обработчик для конкретной очереди
func (c *Consumer) RegisterHandler(queueName string, handler MessageHandler) {
	c.handlers[queueName] = handler
}

// Start запускает консьюмера для всех зарегистрированных очередей.
// Блокируется до отмены контекста.
func (c *Consumer) Start(ctx context.Context) error {
	for queueName, handler := range c.handlers {
		// Запускаем обработку для каждой очереди в отдельной горутине
		go func(queue string, h MessageHandler) {
			// Пытаемся запустить обработку с reconnect логикой
			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := c.consume(ctx, queue, h); err != nil {
						time.Sleep(c.config.ReconnectInterval)
					}
				}
			}
		}(queueName, handler)
	}

	// Ждем завершения контекста
	<-ctx.Done()
	return ctx.Err()
}

// consume обрабатывает сообщения из очереди
func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	// Проверяем, что канал инициализирован
	if c.conn.Channel() == nil {
		return fmt.Errorf("rabbitmq channel is not initialized")
	}

	// Объявляем очередь с привязкой к dead letter exchange
	args := amqp091.Table{}
	if c.config.DLX != "" {
		args["x-dead-letter-exchange"] = c.config.DLX
	}
	_, err := c.conn.Channel().QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	// Привязываем очередь к exchange, если задан
	if c.config.Exchange != "" {
		err = c.conn.Channel().QueueBind(
			queueName,
			c.config.RoutingKey,
			c.config.Exchange,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w", queueName, c.config.Exchange, err)
		}
	}

	// Получаем сообщения с ручным подтверждением
	msgs, err := c.conn.Channel().Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	// Обрабатываем сообщения
	for msg := range msgs {
		// Создаем контекст для обработки сообщения
		msgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)

		err := handler(msgCtx, msg)

		// Отправляем ack/nack в зависимости от результата.
		// Ack отправляется только после успешной обработки: падение между
		// обработкой и ack приводит к повторной доставке, которую обработчик
		// обязан переживать (дедупликация на стороне обработчика).
		if err == nil {
			_ = msg.Ack(false)
		} else {
			// Считаем количество предыдущих доставок через x-death
			retryCount := 0
			if xDeath, ok := msg.Headers["x-death"]; ok {
				if deaths, ok := xDeath.([]interface{}); ok {
					retryCount = len(deaths)
				}
			}

			// Если попыток меньше 3, возвращаем в очередь, иначе в DLQ
			if retryCount < 3 {
				_ = msg.Nack(false, true)
			} else {
				_ = msg.Nack(false, false)
			}
		}

		cancel()
	}

	return fmt.Errorf("consumer channel closed")
}

// HealthCheck проверяет состояние подключения к RabbitMQ
func (c *Consumer) HealthCheck(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("rabbitmq connection is not initialized")
	}
	return c.conn.HealthCheck()
}
