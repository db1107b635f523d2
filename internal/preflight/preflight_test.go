package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"trawl/internal/config"
	"trawl/internal/queue"
	"trawl/internal/stage"
)

type fakeHandler struct {
	kind   queue.Kind
	health stage.Health
}

func (f fakeHandler) Kind() queue.Kind { return f.kind }

func (f fakeHandler) Fetch(context.Context, *queue.Item) (*stage.Result, error) { return nil, nil }

func (f fakeHandler) HealthCheck(context.Context) stage.Health { return f.health }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return &cfg
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckTracker_Missing(t *testing.T) {
	cfg := testConfig(t)
	result := CheckTracker(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("missing tracker should pass, got: %s", result.Detail)
	}
}

func TestCheckTracker_Healthy(t *testing.T) {
	cfg := testConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	if _, err := store.Add(context.Background(), "a", queue.KindContent, ""); err != nil {
		t.Fatalf("Add: %v", err)
	}
	store.Close()

	result := CheckTracker(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected healthy tracker, got: %s", result.Detail)
	}
}

func TestCheckTracker_Corrupt(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.TrackerPath(), []byte("definitely not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckTracker(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for corrupt tracker")
	}
}

func TestCheckPostgres_BadDSN(t *testing.T) {
	cfg := testConfig(t)
	cfg.Postgres.Enabled = true
	cfg.Postgres.DSN = "::not a dsn::"
	result := CheckPostgres(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for invalid dsn")
	}
}

func TestCheckHandler(t *testing.T) {
	ok := CheckHandler(context.Background(), fakeHandler{kind: queue.KindUser, health: stage.Healthy("user")})
	if !ok.Passed || ok.Name != "Upstream (user)" {
		t.Fatalf("unexpected result %+v", ok)
	}
	bad := CheckHandler(context.Background(), fakeHandler{kind: queue.KindContent, health: stage.Unhealthy("content", "HTTP 503")})
	if bad.Passed || bad.Detail != "HTTP 503" {
		t.Fatalf("unexpected result %+v", bad)
	}
}

func TestCheckNotificationsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	if r := CheckNotificationsFromConfig(cfg); !r.Passed || r.Detail != "Disabled" {
		t.Fatalf("expected disabled pass, got %+v", r)
	}
	cfg.Notifications.NtfyTopic = "my-topic"
	if r := CheckNotificationsFromConfig(cfg); r.Passed {
		t.Fatalf("expected bare topic to fail, got %+v", r)
	}
	cfg.Notifications.NtfyTopic = "https://ntfy.sh/my-topic"
	if r := CheckNotificationsFromConfig(cfg); !r.Passed || r.Detail != "ntfy.sh" {
		t.Fatalf("expected pass, got %+v", r)
	}
}

func TestRunAllSkipsDisabledPostgres(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg, []stage.Handler{
		fakeHandler{kind: queue.KindContent, health: stage.Healthy("content")},
	})
	for _, r := range results {
		if r.Name == "Postgres sink" {
			t.Fatal("postgres check should be skipped when disabled")
		}
	}
	if !Passed(results) {
		t.Fatalf("expected all checks to pass, got %+v", results)
	}
}
