package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"packdash/frontend/embalagem"
	"packdash/frontend/home"
	"packdash/infrastructure/audit"
	"packdash/infrastructure/cache"
	"packdash/infrastructure/config"
	httpserver "packdash/infrastructure/http"
	"packdash/infrastructure/ingest"
	"packdash/infrastructure/ledger"
	"packdash/infrastructure/metrics"
	"packdash/infrastructure/spreadsheet"
	"packdash/infrastructure/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := sqlite.ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	store, closeStore, err := cfg.OpenLedgerStore()
	if err != nil {
		log.Fatalf("open duplicate ledger: %v", err)
	}
	defer closeStore()

	repo := embalagem.NewRepository(db, audit.NewService())
	exporter, err := embalagem.NewExporter(repo, cfg.ExportDir)
	if err != nil {
		log.Fatalf("export dir: %v", err)
	}
	reg := metrics.NewRegistry()
	svc := ingest.NewService(
		spreadsheet.NewParser(spreadsheet.WithLogger(logger)),
		ledger.NewFilter(store, ledger.WithLogger(logger)),
		repo,
		ingest.WithLogger(logger),
		ingest.WithRecorder(reg),
	)

	settings := make([]home.Setting, 0, len(cfg.Pairs()))
	for _, p := range cfg.Pairs() {
		settings = append(settings, home.Setting{Name: p[0], Value: p[1]})
	}

	server := httpserver.NewServer(cfg.Addr, httpserver.Deps{
		DB:             db,
		Ingest:         svc,
		Repo:           repo,
		Exporter:       exporter,
		Stats:          cache.NewStatsCache(30 * time.Second),
		Metrics:        reg,
		Settings:       settings,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})
	if err := server.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}
	slog.Info("packdash listening", slog.String("addr", cfg.Addr), slog.String("ledger", cfg.LedgerBackend))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Stop(); err != nil {
		slog.Error("graceful shutdown error", slog.Any("err", err))
	}
}
