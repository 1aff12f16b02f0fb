package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iudanet/gophprogress/internal/client/api"
	"github.com/iudanet/gophprogress/internal/client/auth"
	"github.com/iudanet/gophprogress/internal/client/progress"
	"github.com/iudanet/gophprogress/internal/client/storage/boltdb"
	"github.com/iudanet/gophprogress/internal/client/sync"
	"github.com/iudanet/gophprogress/internal/config"
)

// DefaultFactory собирает стек на bbolt и HTTP клиенте
func DefaultFactory(ctx context.Context, cfg config.Client, logger *slog.Logger) (*Deps, error) {
	local, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client := api.NewClient(cfg.ServerURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger),
	)
	authService := auth.NewService(client, local, logger)
	model := progress.NewModel(local, logger)

	engine := sync.NewEngine(sync.Config{
		PackageName:      cfg.PackageName,
		PremiumItem:      cfg.PremiumItem,
		FlushWindow:      cfg.FlushWindow,
		RequeueOnFailure: cfg.RequeueOnFailure,
	}, client, authService, model, local, logger)

	return &Deps{
		Auth:     authService,
		Engine:   engine,
		Progress: model,
		Metadata: local,
		Close:    local.Close,
	}, nil
}
