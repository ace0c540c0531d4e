package main

import (
	"os"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/logger"
	"github.com/example/embutidos/internal/server"
)

func main() {
	// 配置文件路径可由 EMBUTIDOS_CONFIG 指定，缺省读取当前目录的 config.yaml
	cfg := config.MustLoad(configPath())

	l, err := logger.Init(&cfg.Log)
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	app := iris.New()
	server.RegisterRoutes(app, cfg, server.BuildServices(cfg))

	addr := cfg.Server.Addr()
	zap.L().Info("web server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		zap.L().Fatal("failed to run web server", zap.Error(err))
	}
}

func configPath() string {
	if p := os.Getenv("EMBUTIDOS_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
