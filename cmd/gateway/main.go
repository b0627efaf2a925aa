package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/Wang-tianhao/edge-auth-go/identity"
	"github.com/Wang-tianhao/edge-auth-go/internal/config"
	"github.com/Wang-tianhao/edge-auth-go/internal/gateway"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := identity.OpenSQLite(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := gateway.NewServer(cfg, store, gateway.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info("gateway starting",
		"http_addr", cfg.HTTPAddr,
		"grpc_addr", cfg.GRPCAddr,
		"issuer", cfg.Issuer,
		"public_paths", cfg.PublicPaths,
		"check_account_status", cfg.CheckAccountStatus,
	)
	return server.Run(ctx)
}
