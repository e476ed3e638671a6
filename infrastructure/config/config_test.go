package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"packdash/infrastructure/ledger"
)

var configKeys = []string{
	"APP_ADDR", "SQLITE_PATH", "LEDGER_BACKEND", "LEDGER_PATH", "REDIS_ADDR",
	"REDIS_PASSWORD", "REDIS_DB", "REDIS_PREFIX", "EXPORT_DIR", "MAX_UPLOAD_MB", "LOG_LEVEL",
}

// clearEnv blanks every config variable for the test; getenv treats blank
// as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.LedgerBackend != LedgerFile || cfg.LedgerPath != ledger.DefaultPath {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxUploadBytes() != 16<<20 || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected limits %+v", cfg)
	}
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_ADDR=:9090\nMAX_UPLOAD_MB=4\nLOG_LEVEL=debug\nEXPORT_DIR=/tmp/from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("EXPORT_DIR", "/tmp/from-env")
	// godotenv only fills variables that are absent, not blank.
	for _, k := range []string{"APP_ADDR", "MAX_UPLOAD_MB", "LOG_LEVEL"} {
		os.Unsetenv(k)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.MaxUploadMB != 4 || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("env file not applied: %+v", cfg)
	}
	if cfg.ExportDir != "/tmp/from-env" {
		t.Fatalf("expected environment to win, got %q", cfg.ExportDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"LEDGER_BACKEND": "postgres",
		"MAX_UPLOAD_MB":  "-1",
		"REDIS_DB":       "x",
		"LOG_LEVEL":      "loud",
	}
	for key, value := range cases {
		clearEnv(t)
		t.Setenv(key, value)
		if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
			t.Fatalf("%s=%s: expected error", key, value)
		}
	}
}

func TestOpenLedgerStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_PATH", filepath.Join(t.TempDir(), "ledger", "keys.json"))
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	store, closeStore, err := cfg.OpenLedgerStore()
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*ledger.FileStore); !ok {
		t.Fatalf("expected file store, got %T", store)
	}

	mr := miniredis.RunT(t)
	cfg.LedgerBackend = LedgerRedis
	cfg.RedisAddr = mr.Addr()
	store, closeRedis, err := cfg.OpenLedgerStore()
	if err != nil {
		t.Fatalf("open redis store: %v", err)
	}
	defer closeRedis()
	if _, ok := store.(*ledger.RedisStore); !ok {
		t.Fatalf("expected redis store, got %T", store)
	}
}

func TestPairsMaskPassword(t *testing.T) {
	cfg := Config{RedisPassword: "secret"}
	for _, p := range cfg.Pairs() {
		if p[0] == "REDIS_PASSWORD" && p[1] != "********" {
			t.Fatalf("password not masked: %q", p[1])
		}
	}
}
