// Package cli команды gophprogress-client поверх cobra
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophprogress/internal/client/auth"
	"github.com/iudanet/gophprogress/internal/client/iocli"
	"github.com/iudanet/gophprogress/internal/client/storage"
	"github.com/iudanet/gophprogress/internal/client/sync"
	"github.com/iudanet/gophprogress/internal/config"
	"github.com/iudanet/gophprogress/internal/models"
)

// Authenticator операции сессии игрока
type Authenticator interface {
	Register(ctx context.Context, username, password string) (*auth.RegisterResult, error)
	Login(ctx context.Context, username, password string) (*storage.AuthData, error)
	Logout(ctx context.Context) error
	Session(ctx context.Context) (*storage.AuthData, error)
}

// Engine движок синхронизации прогресса
type Engine interface {
	Start(ctx context.Context) error
	Compose(itemCode string, reward sync.Reward) (models.ProgressRecord, error)
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
	Snapshot() models.ProgressRecord
	Pending() int
}

// LocalProgress локальная запись без обращения к серверу
type LocalProgress interface {
	Load(ctx context.Context) error
	Snapshot() models.ProgressRecord
}

// Deps зависимости команд, собираются Factory после разбора флагов
type Deps struct {
	Auth     Authenticator
	Engine   Engine
	Progress LocalProgress
	Metadata storage.MetadataStorage
	Close    func() error
}

// Factory открывает локальное хранилище и собирает клиентский стек
type Factory func(ctx context.Context, cfg config.Client, logger *slog.Logger) (*Deps, error)

// BuildInfo версия сборки, задаётся через ldflags
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// App состояние одного запуска CLI
type App struct {
	cfg     config.Client
	io      iocli.IO
	factory Factory
	build   BuildInfo
	deps    *Deps
	logger  *slog.Logger

	logLevel  string
	passwords PasswordSources
}

// Run разбирает args, выполняет команду и закрывает локальное хранилище
// независимо от результата.
func Run(ctx context.Context, cfg config.Client, console iocli.IO, factory Factory, build BuildInfo, args []string) error {
	app := &App{
		cfg:      cfg,
		io:       console,
		factory:  factory,
		build:    build,
		logLevel: cfg.LogLevel,
	}

	root := app.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, app.close())
}

// rootCommand собирает дерево команд. Значения cfg (из окружения)
// становятся умолчаниями флагов, флаги их перекрывают.
func (a *App) rootCommand() *cobra.Command {
	cfg := a.cfg

	root := &cobra.Command{
		Use:           "gophprogress-client",
		Short:         "Offline-first game progress client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ServerURL, "server", cfg.ServerURL, "progress server URL")
	flags.StringVar(&a.cfg.DBPath, "db", cfg.DBPath, "path to local database")
	flags.StringVar(&a.logLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.DurationVar(&a.cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	flags.DurationVar(&a.cfg.FlushWindow, "flush-window", cfg.FlushWindow, "compose batch window")
	flags.BoolVar(&a.cfg.RequeueOnFailure, "requeue", cfg.RequeueOnFailure, "keep a failed batch for the next flush")

	root.AddCommand(
		a.registerCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.statusCommand(),
		a.syncCommand(),
		a.playCommand(),
		a.versionCommand(),
	)

	return root
}

// load лениво собирает зависимости: version работает без базы
func (a *App) load(cmd *cobra.Command) (*Deps, error) {
	if a.deps != nil {
		return a.deps, nil
	}
	if a.cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", a.cfg.RequestTimeout)
	}
	if a.cfg.FlushWindow <= 0 {
		return nil, fmt.Errorf("flush window must be positive, got %s", a.cfg.FlushWindow)
	}

	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: config.ParseLogLevel(a.logLevel),
		}))
	}

	deps, err := a.factory(cmd.Context(), a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.deps = deps
	return deps, nil
}

func (a *App) close() error {
	if a.deps == nil || a.deps.Close == nil {
		return nil
	}
	err := a.deps.Close()
	a.deps = nil
	return err
}

func formatSyncTime(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return time.UnixMilli(ms).Local().Format(time.RFC3339)
}

func notLoggedIn(err error) bool {
	return errors.Is(err, storage.ErrAuthNotFound)
}
