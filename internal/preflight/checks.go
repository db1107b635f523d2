package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"trawl/internal/config"
	"trawl/internal/queue"
	"trawl/internal/sink"
	"trawl/internal/stage"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTracker opens the tracker database and runs its health check. A
// missing database is fine; the first add or run creates it.
func CheckTracker(ctx context.Context, cfg *config.Config) Result {
	const name = "Tracker database"

	path := cfg.TrackerPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}

	store, err := queue.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	switch {
	case !health.IntegrityCheck:
		return Result{Name: name, Detail: fmt.Sprintf("%s (integrity check failed)", path)}
	case len(health.MissingColumns) > 0:
		return Result{Name: name, Detail: fmt.Sprintf("%s (missing columns: %v)", path, health.MissingColumns)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d items, schema v%d)", path, health.TotalItems, health.SchemaVersion)}
}

// CheckPostgres connects to the record sink and pings it.
func CheckPostgres(ctx context.Context, cfg *config.Config) Result {
	const name = "Postgres sink"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pg, err := sink.OpenPostgres(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer pg.Close()
	if err := pg.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (table %s)", cfg.Postgres.Table)}
}

// CheckHandler probes the upstream behind one kind handler.
func CheckHandler(ctx context.Context, handler stage.Handler) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	health := handler.HealthCheck(checkCtx)
	name := fmt.Sprintf("Upstream (%s)", handler.Kind())
	if !health.Ready {
		detail := health.Detail
		if detail == "" {
			detail = "unreachable"
		}
		return Result{Name: name, Detail: detail}
	}
	detail := health.Detail
	if detail == "" {
		detail = "Reachable"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (unreachable)"
	}
	return err.Error()
}
