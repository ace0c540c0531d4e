package main

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/embutidos/internal/auth"
	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/logger"
	"github.com/example/embutidos/internal/repository/memory"
	"github.com/example/embutidos/internal/repository/mysql"
	"github.com/example/embutidos/internal/server"
	"github.com/example/embutidos/internal/service"
)

var configPath string

// setup 加载配置与日志并连接数据库；Init 会顺带自动迁移
func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if _, err := logger.Init(&cfg.Log); err != nil {
		return nil, nil, err
	}
	db := mysql.Init(&cfg.MySQL)
	zap.L().Debug("connected", zap.String("config", configPath))
	return cfg, db, nil
}

// services CLI 不接触购物车与支付网关
func services(cfg *config.Config, db *gorm.DB) *server.Services {
	return server.NewServices(server.Deps{
		DB:    db,
		Carts: memory.NewCartRepository(cfg.Session.IdleTimeout),
		Auth:  auth.NewAuthenticator(&cfg.JWT, nil),
		Report: service.ReportOptions{
			DefaultMinStock: cfg.Report.DefaultMinStock,
			ExpiringWithin:  cfg.Report.ExpiringWithin,
		},
	})
}
