package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/infra/mail"
	"github.com/example/embutidos/internal/infra/mq"
	"github.com/example/embutidos/internal/logger"
	"github.com/example/embutidos/internal/server"
	"github.com/example/embutidos/internal/service"
)

type orderNotifier interface {
	OrderPlaced(ctx context.Context, ev *service.OrderPlacedEvent) error
}

func main() {
	path := os.Getenv("EMBUTIDOS_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg := config.MustLoad(path)

	l, err := logger.Init(&cfg.Log)
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	conn := mq.Init(&cfg.RabbitMQ)
	if conn == nil {
		zap.L().Fatal("rabbitmq unavailable, nothing to consume")
	}
	defer conn.Close()

	svc := server.BuildServices(cfg)
	notifier := service.NewNotifier(svc.Orders, svc.Users, svc.Reports, mail.NewSender(&cfg.Mail), cfg.Mail.AdminTo)

	ch, msgs, err := mq.Consume(conn, cfg.RabbitMQ.Queue)
	if err != nil {
		zap.L().Fatal("failed to consume", zap.String("queue", cfg.RabbitMQ.Queue), zap.Error(err))
	}
	defer ch.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newConsumer(notifier)
	zap.L().Info("order notifier started, waiting for messages", zap.String("queue", cfg.RabbitMQ.Queue))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("order notifier stopping")
			return
		case d, ok := <-msgs:
			if !ok {
				zap.L().Warn("delivery channel closed")
				return
			}
			c.handle(ctx, d)
		}
	}
}

// 重新入队前的等待：从 retryBase 起翻倍，最多 retryMax
const (
	retryBase = time.Second
	retryMax  = time.Minute
)

type consumer struct {
	notifier orderNotifier
	failures int // 连续的临时失败次数
	wait     func(ctx context.Context, d time.Duration)
}

func newConsumer(n orderNotifier) *consumer {
	return &consumer{notifier: n, wait: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// backoff 第 n 次连续失败的等待时间
func backoff(n int) time.Duration {
	d := retryBase
	for i := 1; i < n; i++ {
		d *= 2
		if d >= retryMax {
			return retryMax
		}
	}
	return d
}

// handle 成功 Ack；消息本身有问题（格式错误、订单不存在）丢弃；
// 其余等待一段时间后重新入队，SMTP 故障期间不会空转
func (c *consumer) handle(ctx context.Context, d amqp.Delivery) {
	var ev service.OrderPlacedEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		zap.L().Warn("invalid message", zap.Error(err))
		service.GetMonitor().RecordNotifierFailed()
		_ = d.Nack(false, false)
		return
	}

	if err := c.notifier.OrderPlaced(ctx, &ev); err != nil {
		service.GetMonitor().RecordNotifierFailed()
		if errors.Is(err, service.ErrNotFound) {
			zap.L().Warn("order vanished, dropping message", zap.Int64("order_id", ev.OrderID), zap.Error(err))
			_ = d.Nack(false, false)
			return
		}
		c.failures++
		delay := backoff(c.failures)
		zap.L().Error("notify order failed, requeue later",
			zap.Int64("order_id", ev.OrderID),
			zap.Int("failures", c.failures),
			zap.Duration("delay", delay),
			zap.Error(err))
		c.wait(ctx, delay)
		_ = d.Nack(false, true)
		return
	}

	c.failures = 0
	service.GetMonitor().RecordNotifierProcessed()
	if err := d.Ack(false); err != nil {
		zap.L().Error("failed to ack message", zap.Int64("order_id", ev.OrderID), zap.Error(err))
	}
}
