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

	app := iris.New()
	server.RegisterAdminRoutes(app, cfg, server.BuildServices(cfg))

	addr := cfg.AdminServer.Addr()
	zap.L().Info("admin server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		zap.L().Fatal("failed to run admin server", zap.Error(err))
	}
}
