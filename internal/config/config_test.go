package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"trawl/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "trawl")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.TrackerPath() != filepath.Join(wantData, "tracker.db") {
		t.Fatalf("unexpected tracker path: %q", cfg.TrackerPath())
	}
	if cfg.WaitDuration() != 350*time.Millisecond {
		t.Fatalf("unexpected wait duration: %s", cfg.WaitDuration())
	}
	if cfg.Scrape.MaxConsecutiveErrors != 20 {
		t.Fatalf("unexpected circuit breaker default: %d", cfg.Scrape.MaxConsecutiveErrors)
	}
	if cfg.Scrape.BatchSize != 0 {
		t.Fatalf("expected batch size 0 (per page), got %d", cfg.Scrape.BatchSize)
	}
	if cfg.Postgres.Enabled {
		t.Fatal("expected postgres disabled by default")
	}
}

func TestLoadCustomConfigAndEnvOverride(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TRAWL_MAX_ATTEMPTS", "5")
	t.Setenv("TRAWL_POSTGRES_DSN", "postgres://env@localhost/db")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "~/scrape"

[scrape]
wait_time = 1.5
batch_size = 25
max_attempts = 2
kind_filter = "USER"

[http]
content_url = "https://upstream.test/video/{id}"

[postgres]
enabled = true
dsn = "postgres://file@localhost/db"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config to be read from %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "scrape") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Scrape.BatchSize != 25 {
		t.Fatalf("unexpected batch size: %d", cfg.Scrape.BatchSize)
	}
	if cfg.Scrape.MaxAttempts != 5 {
		t.Fatalf("expected env override for max attempts, got %d", cfg.Scrape.MaxAttempts)
	}
	if cfg.Scrape.KindFilter != config.KindUser {
		t.Fatalf("expected kind filter normalized to user, got %q", cfg.Scrape.KindFilter)
	}
	if cfg.Postgres.DSN != "postgres://env@localhost/db" {
		t.Fatalf("expected env DSN to win, got %q", cfg.Postgres.DSN)
	}
	if cfg.WaitDuration() != 1500*time.Millisecond {
		t.Fatalf("unexpected wait duration: %s", cfg.WaitDuration())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"max attempts", func(c *config.Config) { c.Scrape.MaxAttempts = 0 }, "scrape.max_attempts"},
		{"breaker", func(c *config.Config) { c.Scrape.MaxConsecutiveErrors = 0 }, "scrape.max_consecutive_errors"},
		{"kind", func(c *config.Config) { c.Scrape.KindFilter = "music" }, "scrape.kind_filter"},
		{"wait", func(c *config.Config) { c.Scrape.WaitTime = -1 }, "scrape.wait_time"},
		{"template", func(c *config.Config) { c.HTTP.ContentURL = "https://upstream.test/video" }, "{id}"},
		{"postgres dsn", func(c *config.Config) { c.Postgres.Enabled = true }, "postgres.dsn"},
		{"postgres table", func(c *config.Config) {
			c.Postgres.Enabled = true
			c.Postgres.DSN = "postgres://x"
			c.Postgres.Table = "drop table;"
		}, "postgres.table"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q in %q", tc.name, tc.want, err.Error())
		}
	}
}

func TestSampleConfigIsValid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEnsureDirectoriesCreatesTree(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
