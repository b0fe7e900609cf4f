package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"blog/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitPublisher публикует события новых постов в topic exchange с ключом user.<id>
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

// DialRabbitMQ подключается, открывает канал и объявляет exchange типа topic
func DialRabbitMQ(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	logger.L.Info("RabbitMQ initialized", zap.String("exchange", exchange))
	return &RabbitPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

func routingKey(userID int64) string {
	return fmt.Sprintf("user.%d", userID)
}

// Publish отправляет событие конкретному получателю
func (p *RabbitPublisher) Publish(ctx context.Context, event FeedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey(event.UserID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Consume слушает очередь, привязанную к user.*, и передает события в sink (обычно WSConnManager)
func (p *RabbitPublisher) Consume(ctx context.Context, queueName string, sink Publisher) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, err := p.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := p.channel.QueueBind(q.Name, "user.*", p.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := p.channel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.L.Warn("RabbitMQ delivery channel closed")
					return
				}
				var event FeedEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					logger.L.Warn("Failed to unmarshal feed event", zap.Error(err))
					continue
				}
				if err := sink.Publish(ctx, event); err != nil {
					logger.L.Warn("Failed to push feed event", zap.Int64("user_id", event.UserID), zap.Error(err))
				}
			}
		}
	}()
	return nil
}

func (p *RabbitPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		logger.L.Warn("Failed to close RabbitMQ channel", zap.Error(err))
	}
	return p.conn.Close()
}
