package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/infra/mail"
	"github.com/example/embutidos/internal/logger"
	"github.com/example/embutidos/internal/server"
	"github.com/example/embutidos/internal/service"
)

type digester interface {
	InventoryDigest(ctx context.Context, now time.Time) (*service.Alerts, error)
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

	location, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		zap.L().Fatal("invalid report timezone", zap.String("timezone", cfg.Report.Timezone), zap.Error(err))
	}

	svc := server.BuildServices(cfg)
	notifier := service.NewNotifier(svc.Orders, svc.Users, svc.Reports, mail.NewSender(&cfg.Mail), cfg.Mail.AdminTo)

	s := gocron.NewScheduler(location)
	if _, err := s.Every(1).Day().At(cfg.Report.AlertAt).Do(runDigest, notifier, location); err != nil {
		zap.L().Fatal("failed to schedule inventory digest", zap.String("at", cfg.Report.AlertAt), zap.Error(err))
	}
	s.StartAsync()
	zap.L().Info("stock alert scheduler started",
		zap.String("at", cfg.Report.AlertAt),
		zap.String("timezone", cfg.Report.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	s.Stop()
	zap.L().Info("stock alert scheduler stopped")
}

// runDigest 每日任务：生成告警并发送，失败只记日志等下一轮
func runDigest(d digester, location *time.Location) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	alerts, err := d.InventoryDigest(ctx, time.Now().In(location))
	if err != nil {
		zap.L().Error("inventory digest failed", zap.Error(err))
		return
	}
	zap.L().Info("inventory digest done",
		zap.Int("low_stock", len(alerts.LowStock)),
		zap.Int("expired", len(alerts.Expired)),
		zap.Int("expiring", len(alerts.Expiring)))
}
