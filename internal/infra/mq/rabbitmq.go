package mq

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/example/embutidos/internal/config"
)

var (
	conn *amqp.Connection
	once sync.Once
)

// Init 初始化 RabbitMQ 连接；URL 为空或连接失败时返回 nil，订单事件不再发布
func Init(cfg *config.RabbitMQConfig) *amqp.Connection {
	once.Do(func() {
		if cfg.URL == "" {
			return
		}
		c, err := amqp.Dial(cfg.URL)
		if err != nil {
			zap.L().Error("failed to connect rabbitmq, order events disabled", zap.Error(err))
			return
		}
		conn = c
	})
	return conn
}

// Conn 获取 MQ 连接
func Conn() *amqp.Connection {
	return conn
}

// Publisher 向单个持久化队列投递 JSON 消息
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

type amqpPublisher struct {
	conn  *amqp.Connection
	queue string
}

// NewPublisher conn 为 nil 时返回空实现
func NewPublisher(conn *amqp.Connection, queue string) Publisher {
	if conn == nil {
		return NopPublisher{}
	}
	return &amqpPublisher{conn: conn, queue: queue}
}

func (p *amqpPublisher) Publish(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// NopPublisher 丢弃所有消息
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, any) error { return nil }

// Consume 声明队列并以手动确认模式消费
func Consume(conn *amqp.Connection, queue string) (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, nil, err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}
	return ch, msgs, nil
}
