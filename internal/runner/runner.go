package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"trawl/internal/config"
	"trawl/internal/fetch"
	"trawl/internal/logging"
	"trawl/internal/queue"
	"trawl/internal/sink"
	"trawl/internal/stage"
	"trawl/internal/workflow"
)

// ErrLocked means another run already holds the data directory.
var ErrLocked = errors.New("another trawl run is already using this data directory")

// Runner owns the resources of one scrape run.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *flock.Flock
	store    *queue.Store
	postgres *sink.PostgresSink
	manager  *workflow.Manager
}

type options struct {
	managerOpts []workflow.ManagerOption
	fetchOpts   []fetch.ClientOption
}

// Option customizes how a Runner is assembled.
type Option func(*options)

// WithManagerOptions forwards extra options to the workflow manager.
func WithManagerOptions(opts ...workflow.ManagerOption) Option {
	return func(o *options) {
		o.managerOpts = append(o.managerOpts, opts...)
	}
}

// WithFetchOptions forwards extra options to the HTTP client.
func WithFetchOptions(opts ...fetch.ClientOption) Option {
	return func(o *options) {
		o.fetchOpts = append(o.fetchOpts, opts...)
	}
}

// Open acquires the run lock and assembles the run. Callers must Close the
// returned Runner.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("runner requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, cfg.LockPath())
	}

	r := &Runner{cfg: cfg, logger: logger, lock: lock}
	if err := r.assemble(ctx, o); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Runner) assemble(ctx context.Context, o *options) error {
	store, err := queue.Open(r.cfg)
	if err != nil {
		return fmt.Errorf("open tracker: %w", err)
	}
	r.store = store

	files := sink.NewFileSink(r.cfg.Paths.OutputDir)
	writers := []sink.RecordWriter{files}
	if r.cfg.Postgres.Enabled {
		pg, err := sink.OpenPostgres(ctx, r.cfg)
		if err != nil {
			return fmt.Errorf("open postgres sink: %w", err)
		}
		r.postgres = pg
		writers = append(writers, pg)
	}

	var records sink.RecordWriter = files
	if len(writers) > 1 {
		records = sink.NewFanOut(writers...)
	}

	managerOpts := []workflow.ManagerOption{
		workflow.WithRecordWriter(records),
		workflow.WithBinaryWriter(files),
	}
	for _, handler := range NewHandlers(r.cfg, r.logger, o.fetchOpts...) {
		managerOpts = append(managerOpts, workflow.WithHandler(handler))
	}
	managerOpts = append(managerOpts, o.managerOpts...)

	manager, err := workflow.NewManager(r.cfg, store, r.logger, managerOpts...)
	if err != nil {
		return err
	}
	r.manager = manager
	return nil
}

// NewHandlers builds the HTTP-backed handler for every kind. Both share one
// client so the request rate limit is global.
func NewHandlers(cfg *config.Config, logger *slog.Logger, opts ...fetch.ClientOption) []stage.Handler {
	clientOpts := append([]fetch.ClientOption{fetch.WithLogger(logger)}, opts...)
	client := fetch.NewClient(cfg, clientOpts...)
	return []stage.Handler{
		fetch.NewContentHandler(cfg, client, logger),
		fetch.NewUserHandler(cfg, client, logger),
	}
}

// Run executes one scrape run.
func (r *Runner) Run(ctx context.Context, opts workflow.RunOptions) (*workflow.RunResult, error) {
	return r.manager.Run(ctx, opts)
}

// Store exposes the tracker opened for this run.
func (r *Runner) Store() *queue.Store {
	return r.store
}

// Manager exposes the assembled workflow manager.
func (r *Runner) Manager() *workflow.Manager {
	return r.manager
}

// Close releases the sinks, the tracker, and the run lock.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.postgres != nil {
		r.postgres.Close()
		r.postgres = nil
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tracker: %w", err))
		}
		r.store = nil
	}
	if r.lock != nil {
		if err := r.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release run lock: %w", err))
		}
		r.lock = nil
	}
	return errors.Join(errs...)
}
