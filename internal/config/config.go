// Package config загружает настройки клиента и сервера из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Client настройки CLI клиента
type Client struct {
	ServerURL        string        `env:"GOPHPROGRESS_SERVER_URL"         envDefault:"http://localhost:8080"`
	DBPath           string        `env:"GOPHPROGRESS_DB_PATH"            envDefault:"gophprogress-client.db"`
	PremiumItem      string        `env:"GOPHPROGRESS_PREMIUM_ITEM"       envDefault:"GOD_OF_WEALTH"`
	PackageName      string        `env:"GOPHPROGRESS_PACKAGE_NAME"       envDefault:"gophprogress-cli"`
	LogLevel         string        `env:"GOPHPROGRESS_LOG_LEVEL"          envDefault:"info"`
	RequestTimeout   time.Duration `env:"GOPHPROGRESS_REQUEST_TIMEOUT"    envDefault:"10s"`
	FlushWindow      time.Duration `env:"GOPHPROGRESS_FLUSH_WINDOW"       envDefault:"2s"`
	RequeueOnFailure bool          `env:"GOPHPROGRESS_REQUEUE_ON_FAILURE" envDefault:"false"`
}

// Server настройки reference сервера прогресса
type Server struct {
	Address        string        `env:"GOPHPROGRESS_SERVER_ADDRESS"  envDefault:":8080"`
	DBPath         string        `env:"GOPHPROGRESS_SERVER_DB_PATH"  envDefault:"gophprogress-server.db"`
	JWTSecret      string        `env:"GOPHPROGRESS_JWT_SECRET"`
	PremiumItem    string        `env:"GOPHPROGRESS_PREMIUM_ITEM"    envDefault:"GOD_OF_WEALTH"`
	LogLevel       string        `env:"GOPHPROGRESS_LOG_LEVEL"       envDefault:"info"`
	AccessTokenTTL time.Duration `env:"GOPHPROGRESS_ACCESS_TOKEN_TTL" envDefault:"24h"`
	RateWindow     time.Duration `env:"GOPHPROGRESS_RATE_WINDOW"     envDefault:"1m"`
	ExpPerLevel    int64         `env:"GOPHPROGRESS_EXP_PER_LEVEL"   envDefault:"100"`
	RateLimit      int           `env:"GOPHPROGRESS_RATE_LIMIT"      envDefault:"120"`
}

// LoadClient читает настройки клиента
func LoadClient() (Client, error) {
	var cfg Client
	if err := parseEnv(&cfg); err != nil {
		return Client{}, err
	}
	if cfg.RequestTimeout <= 0 {
		return Client{}, fmt.Errorf("request timeout must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.FlushWindow <= 0 {
		return Client{}, fmt.Errorf("flush window must be positive, got %s", cfg.FlushWindow)
	}
	return cfg, nil
}

// LoadServer читает настройки сервера. JWT секрет обязателен.
func LoadServer() (Server, error) {
	var cfg Server
	if err := parseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if len(cfg.JWTSecret) < 32 {
		return Server{}, fmt.Errorf("GOPHPROGRESS_JWT_SECRET must be at least 32 bytes")
	}
	if cfg.ExpPerLevel <= 0 {
		return Server{}, fmt.Errorf("exp per level must be positive, got %d", cfg.ExpPerLevel)
	}
	if cfg.RateLimit <= 0 || cfg.RateWindow <= 0 {
		return Server{}, fmt.Errorf("rate limit and window must be positive")
	}
	return cfg, nil
}

// ParseLogLevel переводит строку уровня в slog.Level, по умолчанию info
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
