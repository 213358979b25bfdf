package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trial.Action != nil || cfg.Prompt.Enable != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[trial]
action = "click_and_drag"
tags = ["animal", "vehicle"]
visible-tags = ["animal"]
rows = 4

[prompt]
enable-prompting = true
prompt-delay = 2.5
prompt-type = "highlight"
fade-percentage = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trial.Action == nil || *cfg.Trial.Action != "click_and_drag" {
		t.Fatalf("unexpected action: %v", cfg.Trial.Action)
	}
	if cfg.Trial.Tags == nil || strings.Join(*cfg.Trial.Tags, ",") != "animal,vehicle" {
		t.Fatalf("unexpected tags: %v", cfg.Trial.Tags)
	}
	if cfg.Trial.Rows == nil || *cfg.Trial.Rows != 4 || cfg.Trial.Cols != nil {
		t.Fatalf("unexpected rows/cols: %v %v", cfg.Trial.Rows, cfg.Trial.Cols)
	}
	if cfg.Prompt.Enable == nil || !*cfg.Prompt.Enable {
		t.Fatalf("expected prompting enabled")
	}
	if cfg.Prompt.Delay == nil || *cfg.Prompt.Delay != 2.5 {
		t.Fatalf("unexpected delay: %v", cfg.Prompt.Delay)
	}
	if cfg.Prompt.FadePercentage == nil || *cfg.Prompt.FadePercentage != 30 {
		t.Fatalf("unexpected fade percentage: %v", cfg.Prompt.FadePercentage)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[trial]\ncolour = \"red\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	checks := map[string]string{
		DefaultConfigPath():  filepath.Join(dir, "config", "tuigrid", "config.toml"),
		DefaultCatalogPath(): filepath.Join(dir, "config", "tuigrid", "image_tags.csv"),
		DefaultDBPath():      filepath.Join(dir, "data", "tuigrid", "trials.db"),
		DefaultLogPath():     filepath.Join(dir, "state", "tuigrid", "tuigrid.log"),
	}
	for got, want := range checks {
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestLoadServiceConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("TUIGRID_ADDR", "")
	t.Setenv("TUIGRID_DB_PATH", "")
	t.Setenv("TUIGRID_LOG_LEVEL", "")
	os.Unsetenv("TUIGRID_ADDR")
	os.Unsetenv("TUIGRID_DB_PATH")
	os.Unsetenv("TUIGRID_LOG_LEVEL")

	cfg, err := LoadServiceConfig(filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:5008" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DBPath != filepath.Join(dir, "data", "tuigrid", "trials.db") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
}

func TestLoadServiceConfigDotenv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "TUIGRID_ADDR=0.0.0.0:9000\nTUIGRID_DB_PATH=" + filepath.Join(dir, "x.db") + "\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TUIGRID_LOG_LEVEL", "debug")
	t.Setenv("TUIGRID_ADDR", "")
	t.Setenv("TUIGRID_DB_PATH", "")
	os.Unsetenv("TUIGRID_ADDR")
	os.Unsetenv("TUIGRID_DB_PATH")
	t.Cleanup(func() {
		os.Unsetenv("TUIGRID_ADDR")
		os.Unsetenv("TUIGRID_DB_PATH")
	})

	cfg, err := LoadServiceConfig(envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.DBPath != filepath.Join(dir, "x.db") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected environment to win, got %s", cfg.LogLevel)
	}
}
