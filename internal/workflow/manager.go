package workflow

import (
	"errors"
	"fmt"
	"log/slog"

	"trawl/internal/backoff"
	"trawl/internal/config"
	"trawl/internal/logging"
	"trawl/internal/notifications"
	"trawl/internal/pacer"
	"trawl/internal/queue"
	"trawl/internal/sink"
	"trawl/internal/stage"
)

// Manager coordinates scrape runs over the tracker store.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	policy   backoff.Policy
	clock    pacer.Clock

	handlers []stage.Handler
	registry stage.Registry
	records  sink.RecordWriter
	binaries sink.BinaryWriter
	progress func(pacer.Snapshot)
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithHandler registers the capability handler for one kind.
func WithHandler(handler stage.Handler) ManagerOption {
	return func(m *Manager) {
		if handler != nil {
			m.handlers = append(m.handlers, handler)
		}
	}
}

// WithRecordWriter sets where flushed batches are written.
func WithRecordWriter(writer sink.RecordWriter) ManagerOption {
	return func(m *Manager) {
		m.records = writer
	}
}

// WithBinaryWriter sets where downloaded binaries are written.
func WithBinaryWriter(writer sink.BinaryWriter) ManagerOption {
	return func(m *Manager) {
		m.binaries = writer
	}
}

// WithNotifier replaces the ntfy notifier built from config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithClock swaps the time source used for pacing and backoff pauses.
func WithClock(clock pacer.Clock) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithProgress registers a callback invoked with a snapshot after every
// iteration.
func WithProgress(fn func(pacer.Snapshot)) ManagerOption {
	return func(m *Manager) {
		m.progress = fn
	}
}

// NewManager constructs a workflow manager. At least one handler and a record
// writer are required.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("workflow manager requires config")
	}
	if store == nil {
		return nil, errors.New("workflow manager requires a tracker store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifications.NewService(cfg),
		policy:   backoff.NewPolicy(cfg),
		clock:    pacer.SystemClock(),
	}
	for _, opt := range opts {
		opt(m)
	}

	registry, err := stage.NewRegistry(m.handlers...)
	if err != nil {
		return nil, fmt.Errorf("register handlers: %w", err)
	}
	if len(registry) == 0 {
		return nil, errors.New("workflow handlers not configured")
	}
	if m.records == nil {
		return nil, errors.New("workflow record writer not configured")
	}
	m.registry = registry
	return m, nil
}
