package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RentalCars/RentalCars/internal/common/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher 把租约事件发往 topic exchange。
// 发布走熔断器：消息总线抖动时快速失败，不拖累预订主流程。
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	breaker  *middleware.CircuitBreaker
}

// NewPublisher 连接 RabbitMQ 并声明 exchange（topic，持久化）。
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		breaker:  middleware.NewCircuitBreaker("mq-publish", 5, 30*time.Second),
	}, nil
}

// PublishJSON 以 routing key 发布 JSON 消息。
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	if p == nil || p.ch == nil {
		return fmt.Errorf("publisher not initialized")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.breaker.Call(ctx, func() error {
		return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         b,
		})
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
