package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/appbuilder"
	appcfg "github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/httpapi"
	"github.com/park285/cheese-chess/internal/obslog"
)

func main() {
	cfg, err := appcfg.LoadServer()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := appbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("deps init error", zap.Error(err))
	}
	defer deps.Close()

	srv, err := httpapi.New(httpapi.Options{
		Store:    deps.Live,
		Catalog:  deps.Catalog,
		Renderer: deps.Renderer,
		Accounts: deps.Accounts,
		Results:  deps.Results,
		Rand:     deps.Rand(),
		Draw:     deps.DrawPolicy(),
		Logger:   logger,
		History:  cfg.HistoryLimit,
	})
	if err != nil {
		logger.Fatal("server init error", zap.Error(err))
	}
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr, cfg.ShutdownTimeout); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
	logger.Info("server_exit")
}
