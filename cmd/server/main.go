package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/gophprogress/internal/config"
	"github.com/iudanet/gophprogress/internal/server"
	"github.com/iudanet/gophprogress/internal/server/handlers"
	"github.com/iudanet/gophprogress/internal/server/ledger"
	"github.com/iudanet/gophprogress/internal/server/middleware"
	"github.com/iudanet/gophprogress/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", slog.Any("error", err))
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger)
	defer limiter.Stop()

	router := server.NewRouter(server.Deps{
		Logger:      logger,
		Users:       store,
		Progress:    store,
		DB:          store,
		RateLimiter: limiter,
		JWT: handlers.JWTConfig{
			Secret:         []byte(cfg.JWTSecret),
			AccessTokenTTL: cfg.AccessTokenTTL,
		},
		Rules: ledger.Rules{
			PremiumItem: cfg.PremiumItem,
			ExpPerLevel: cfg.ExpPerLevel,
		},
		Version: Version,
	})

	logger.Info("GophProgress server starting",
		slog.String("version", Version),
		slog.String("db_path", cfg.DBPath),
	)

	return server.New(cfg.Address, router, logger).ListenAndServe(ctx)
}

func printVersion() {
	fmt.Printf("GophProgress Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
