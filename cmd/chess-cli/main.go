package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/appbuilder"
	appcfg "github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/console"
	"github.com/park285/cheese-chess/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := appbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("deps init error", zap.Error(err))
	}
	defer deps.Close()

	app, err := console.New(console.Options{
		In:       os.Stdin,
		Out:      os.Stdout,
		Accounts: deps.Accounts,
		Games:    deps.Games,
		Results:  deps.Results,
		Catalog:  deps.Catalog,
		Logger:   logger,
		Rand:     deps.Rand(),
		Draw:     deps.DrawPolicy(),
		Images:   deps.Renderer,
	})
	if err != nil {
		logger.Fatal("console init error", zap.Error(err))
	}
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("console stopped", zap.Error(err))
		os.Exit(1)
	}
}
