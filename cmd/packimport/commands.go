package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"packdash/frontend/embalagem"
	"packdash/infrastructure/audit"
	"packdash/infrastructure/config"
	"packdash/infrastructure/ingest"
	"packdash/infrastructure/ledger"
	"packdash/infrastructure/spreadsheet"
	"packdash/infrastructure/sqlite"
)

var errIngestFailed = errors.New("ingestion failed")

type options struct {
	envFile string
	output  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "packimport",
		Short: "Offline tools for the packaging dashboard",
		Long: `packimport runs spreadsheet uploads and maintenance tasks against the
same database and duplicate ledger the dashboard server uses.

Examples:
  packimport ingest remessas.xlsx
  packimport ingest remessas.xlsx --output yaml
  packimport ledger show
  packimport migrate`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before reading settings")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "Output format: json, yaml")

	root.AddCommand(newIngestCmd(opts), newLedgerCmd(opts), newMigrateCmd(opts))
	return root
}

func newIngestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.xlsx>",
		Short: "Upload a spreadsheet without going through the web UI",
		Long: `Parse the workbook, drop keys already seen today and insert the rest,
exactly as the upload endpoint does. Exits non-zero when the upload is
rejected or the insert fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}
}

func newLedgerCmd(opts *options) *cobra.Command {
	var day string
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the duplicate-key ledger",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored keys per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLedgerShow(cmd.Context(), opts, day, cmd.OutOrStdout())
		},
	}
	show.Flags().StringVar(&day, "day", "", "Only print this day (YYYY-MM-DD)")
	ledgerCmd.AddCommand(show)
	return ledgerCmd
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			db, err := sqlite.OpenDB(cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := sqlite.ApplyEmbeddedMigrations(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied to %s\n", cfg.SQLitePath)
			return nil
		},
	}
}

func runIngest(ctx context.Context, opts *options, path string, out io.Writer) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlite.ApplyEmbeddedMigrations(ctx, db); err != nil {
		return err
	}

	store, closeStore, err := cfg.OpenLedgerStore()
	if err != nil {
		return err
	}
	defer closeStore()

	svc := ingest.NewService(
		spreadsheet.NewParser(spreadsheet.WithLogger(logger)),
		ledger.NewFilter(store, ledger.WithLogger(logger)),
		embalagem.NewRepository(db, audit.NewService()),
		ingest.WithLogger(logger),
	)
	outcome := svc.ProcessUpload(ctx, raw, filepath.Base(path))
	if err := writeOutput(out, opts.output, outcome); err != nil {
		return err
	}
	if !outcome.Success {
		return fmt.Errorf("%w: %s", errIngestFailed, outcome.Error)
	}
	return nil
}

type ledgerDay struct {
	Day  string   `json:"day" yaml:"day"`
	Keys []string `json:"keys" yaml:"keys"`
}

func runLedgerShow(ctx context.Context, opts *options, day string, out io.Writer) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	store, closeStore, err := cfg.OpenLedgerStore()
	if err != nil {
		return err
	}
	defer closeStore()

	l, err := store.Load(ctx)
	if err != nil {
		return err
	}
	days := make([]ledgerDay, 0, len(l))
	for d, keys := range l {
		if day != "" && d != day {
			continue
		}
		days = append(days, ledgerDay{Day: d, Keys: keys})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return writeOutput(out, opts.output, days)
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (json, yaml)", format)
	}
}
