package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	environ := map[string]string{
		"CALCPAD_LOG_LEVEL":   "loud",
		"CALCPAD_LISTEN_ADDR": ":6000",
	}

	if _, err := loadConfig(nil, environ); err == nil {
		t.Fatal("expected invalid log level to be rejected")
	}

	cfg, err := loadConfig([]string{"-log-level", "debug", "-addr", ":7000", "-db", "x.db"}, environ)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.ListenAddr != ":7000" || cfg.DBPath != "x.db" {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calcd.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: \":7100\"\nmax_history: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig([]string{"-config", path}, map[string]string{"CALCPAD_MAX_HISTORY": "8"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ListenAddr != ":7100" {
		t.Errorf("expected listen address from file, got %q", cfg.ListenAddr)
	}
	if cfg.MaxHistory != 8 {
		t.Errorf("expected environment to win over file, got %d", cfg.MaxHistory)
	}

	if _, err := loadConfig([]string{"-config", filepath.Join(dir, "missing.yaml")}, nil); err == nil {
		t.Error("expected missing file to fail")
	}
}
