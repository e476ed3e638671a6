// Package config reads runtime settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"packdash/infrastructure/ledger"
)

const (
	LedgerFile  = "file"
	LedgerRedis = "redis"
)

type Config struct {
	Addr          string
	SQLitePath    string
	LedgerBackend string
	LedgerPath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	ExportDir     string
	MaxUploadMB   int64
	LogLevel      slog.Level
}

// Load reads envFiles (".env" when none are given) without overriding
// variables that are already set. Missing files are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Addr:          getenv("APP_ADDR", ":8080"),
		SQLitePath:    getenv("SQLITE_PATH", "data/packdash.db"),
		LedgerBackend: strings.ToLower(getenv("LEDGER_BACKEND", LedgerFile)),
		LedgerPath:    getenv("LEDGER_PATH", ledger.DefaultPath),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisPrefix:   getenv("REDIS_PREFIX", "packdash:ledger:"),
		ExportDir:     getenv("EXPORT_DIR", "exports"),
	}
	if cfg.LedgerBackend != LedgerFile && cfg.LedgerBackend != LedgerRedis {
		return Config{}, fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", LedgerFile, LedgerRedis, cfg.LedgerBackend)
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getenv("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.MaxUploadMB, err = strconv.ParseInt(getenv("MAX_UPLOAD_MB", "16"), 10, 64); err != nil || cfg.MaxUploadMB <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_MB must be a positive integer")
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Logger builds the process logger at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

// OpenLedgerStore returns the configured duplicate ledger backend and a
// closer for it.
func (c Config) OpenLedgerStore() (ledger.Store, func() error, error) {
	if c.LedgerBackend == LedgerRedis {
		rc := ledger.DefaultRedisConfig(c.RedisAddr)
		rc.Password = c.RedisPassword
		rc.Database = c.RedisDB
		rc.Prefix = c.RedisPrefix
		store, err := ledger.NewRedisStore(rc)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	store, err := ledger.NewFileStore(c.LedgerPath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() error { return nil }, nil
}

// Pairs lists the effective settings for display. Secrets are masked.
func (c Config) Pairs() [][2]string {
	password := ""
	if c.RedisPassword != "" {
		password = "********"
	}
	return [][2]string{
		{"APP_ADDR", c.Addr},
		{"SQLITE_PATH", c.SQLitePath},
		{"LEDGER_BACKEND", c.LedgerBackend},
		{"LEDGER_PATH", c.LedgerPath},
		{"REDIS_ADDR", c.RedisAddr},
		{"REDIS_PASSWORD", password},
		{"REDIS_DB", strconv.Itoa(c.RedisDB)},
		{"REDIS_PREFIX", c.RedisPrefix},
		{"EXPORT_DIR", c.ExportDir},
		{"MAX_UPLOAD_MB", strconv.FormatInt(c.MaxUploadMB, 10)},
		{"LOG_LEVEL", c.LogLevel.String()},
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
