package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"trawl/internal/config"
	"trawl/internal/notifications"
	"trawl/internal/pacer"
	"trawl/internal/queue"
	"trawl/internal/services"
	"trawl/internal/sink"
	"trawl/internal/stage"
	"trawl/internal/testsupport"
	"trawl/internal/workflow"
)

type fetchFunc func(ctx context.Context, item *queue.Item, call int) (*stage.Result, error)

type stubHandler struct {
	kind  queue.Kind
	fetch fetchFunc

	mu    sync.Mutex
	calls map[string]int
}

func newStubHandler(kind queue.Kind, fetch fetchFunc) *stubHandler {
	return &stubHandler{kind: kind, fetch: fetch, calls: make(map[string]int)}
}

func (h *stubHandler) Kind() queue.Kind { return h.kind }

func (h *stubHandler) Fetch(ctx context.Context, item *queue.Item) (*stage.Result, error) {
	h.mu.Lock()
	h.calls[item.ID]++
	call := h.calls[item.ID]
	h.mu.Unlock()
	if h.fetch != nil {
		return h.fetch(ctx, item, call)
	}
	return okResult(item), nil
}

func (h *stubHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(string(h.kind))
}

func (h *stubHandler) Calls(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[id]
}

func okResult(item *queue.Item) *stage.Result {
	payload, _ := json.Marshal(map[string]string{"id": item.ID})
	return &stage.Result{Record: stage.Record{Payload: payload}}
}

// recordingWriter wraps the file sink, remembers flush sizes, and asserts
// that no flushed item is already completed.
type recordingWriter struct {
	t     *testing.T
	store *queue.Store
	inner sink.RecordWriter
	fail  error

	mu    sync.Mutex
	sizes []int
}

func (w *recordingWriter) Name() string { return "recording" }

func (w *recordingWriter) WriteRecords(ctx context.Context, records []stage.Record) ([]string, error) {
	w.mu.Lock()
	w.sizes = append(w.sizes, len(records))
	w.mu.Unlock()
	if w.fail != nil {
		return nil, w.fail
	}
	for _, record := range records {
		item, err := w.store.Get(ctx, record.ID)
		if err != nil {
			w.t.Fatalf("Get(%s) failed: %v", record.ID, err)
		}
		if item != nil && item.Status == queue.StatusCompleted {
			w.t.Fatalf("item %s marked completed before its flush", record.ID)
		}
	}
	return w.inner.WriteRecords(ctx, records)
}

func (w *recordingWriter) Sizes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int, len(w.sizes))
	copy(out, w.sizes)
	return out
}

type failingBinaryWriter struct{}

func (failingBinaryWriter) WriteBinary(context.Context, stage.Record, stage.Binary) (string, int64, error) {
	return "", 0, services.Wrap(services.ErrIO, "persist", "write binary", "video.mp4", errors.New("no space left on device"))
}

type recordingNotifier struct {
	mu       sync.Mutex
	started  []int
	finished []notifications.RunSummary
	errors   []string
}

func (n *recordingNotifier) NotifyRunStarted(_ context.Context, pending int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, pending)
	return nil
}

func (n *recordingNotifier) NotifyRunFinished(_ context.Context, summary notifications.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, summary)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, label string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, label+": "+err.Error())
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	cfg      *config.Config
	store    *queue.Store
	files    *sink.FileSink
	writer   *recordingWriter
	clock    *testsupport.Clock
	notifier *recordingNotifier
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	files := sink.NewFileSink(cfg.Paths.OutputDir)
	return &harness{
		cfg:      cfg,
		store:    store,
		files:    files,
		writer:   &recordingWriter{t: t, store: store, inner: files},
		clock:    testsupport.NewClock(),
		notifier: &recordingNotifier{},
	}
}

func (h *harness) manager(t *testing.T, extra ...workflow.ManagerOption) *workflow.Manager {
	t.Helper()
	opts := []workflow.ManagerOption{
		workflow.WithRecordWriter(h.writer),
		workflow.WithBinaryWriter(h.files),
		workflow.WithClock(h.clock),
		workflow.WithNotifier(h.notifier),
	}
	opts = append(opts, extra...)
	mgr, err := workflow.NewManager(h.cfg, h.store, nil, opts...)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return mgr
}

func run(t *testing.T, mgr *workflow.Manager, opts workflow.RunOptions) *workflow.RunResult {
	t.Helper()
	result, err := mgr.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result
}

const testRunID = "3f2c7a9e-5b1d-4c8e-9a60-2d4b7e1f0c35"

func transientErr() error {
	return services.Wrap(services.ErrTransient, "fetch", "fetch page", "connection reset", nil)
}

func TestRunDrainsQueueAndCompletesEveryItem(t *testing.T) {
	h := newHarness(t)
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b", "c")
	handler := newStubHandler(queue.KindContent, nil)

	result := run(t, h.manager(t, workflow.WithHandler(handler)), workflow.RunOptions{RunID: testRunID})

	if result.Outcome != workflow.OutcomeHaltedNoWork {
		t.Fatalf("expected halted_no_work, got %s (%s)", result.Outcome, result.Cause)
	}
	if !result.Outcome.Success() {
		t.Fatal("expected halted_no_work to count as success")
	}
	want := queue.Counts{Completed: 3}
	if result.Counts != want {
		t.Fatalf("unexpected counts %+v", result.Counts)
	}
	if result.Processed != 3 || result.Succeeded != 3 || len(result.Failures) != 0 {
		t.Fatalf("unexpected summary %+v", result)
	}
	for _, id := range []string{"a", "b", "c"} {
		item := testsupport.MustGet(t, h.store, id)
		if item.Status != queue.StatusCompleted {
			t.Fatalf("item %s status %s", id, item.Status)
		}
		if item.ResultRef != h.files.RecordPath(queue.KindContent, id) {
			t.Fatalf("item %s result ref %q", id, item.ResultRef)
		}
		data, err := os.ReadFile(item.ResultRef)
		if err != nil {
			t.Fatalf("read record %s: %v", id, err)
		}
		var record stage.Record
		if err := json.Unmarshal(data, &record); err != nil {
			t.Fatalf("decode record %s: %v", id, err)
		}
		if record.ID != id || record.RunID != testRunID || record.Kind != queue.KindContent {
			t.Fatalf("unexpected record %+v", record)
		}
	}
	if len(h.notifier.started) != 1 || h.notifier.started[0] != 3 {
		t.Fatalf("expected one start notification with 3 pending, got %v", h.notifier.started)
	}
	if len(h.notifier.finished) != 1 || h.notifier.finished[0].Outcome != "halted_no_work" {
		t.Fatalf("unexpected finish notifications %+v", h.notifier.finished)
	}
	if len(h.notifier.errors) != 0 {
		t.Fatalf("unexpected error notifications %v", h.notifier.errors)
	}
}

func TestRunTransientFailuresExhaustAttempts(t *testing.T) {
	cases := []struct {
		name      string
		threshold int
		want      workflow.Outcome
	}{
		{name: "breaker at two", threshold: 2, want: workflow.OutcomeHaltedOnError},
		{name: "breaker at one", threshold: 1, want: workflow.OutcomeHaltedOnError},
		{name: "breaker above streak", threshold: 3, want: workflow.OutcomeHaltedNoWork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, testsupport.WithScrape(func(s *config.Scrape) {
				s.MaxAttempts = 2
				s.BaseDelay = 1
				s.MaxConsecutiveErrors = tc.threshold
			}))
			testsupport.AddItems(t, h.store, queue.KindContent, "x")
			handler := newStubHandler(queue.KindContent, func(context.Context, *queue.Item, int) (*stage.Result, error) {
				return nil, transientErr()
			})

			result := run(t, h.manager(t, workflow.WithHandler(handler)), workflow.RunOptions{})

			if result.Outcome != tc.want {
				t.Fatalf("expected %s, got %s (%s)", tc.want, result.Outcome, result.Cause)
			}
			item := testsupport.MustGet(t, h.store, "x")
			if item.Attempts != 2 || item.Status != queue.StatusError {
				t.Fatalf("expected attempts=2 status=error, got attempts=%d status=%s", item.Attempts, item.Status)
			}
			if !strings.HasPrefix(item.LastError, "D: ") {
				t.Fatalf("expected transient code prefix, got %q", item.LastError)
			}
			if handler.Calls("x") != 2 {
				t.Fatalf("expected 2 fetch calls, got %d", handler.Calls("x"))
			}
			sleeps := h.clock.Sleeps()
			if len(sleeps) != 1 || sleeps[0] != time.Second {
				t.Fatalf("expected a single 1s backoff pause, got %v", sleeps)
			}
			if len(result.Failures) != 1 || result.Failures[0].ID != "x" || result.Failures[0].Attempts != 2 {
				t.Fatalf("unexpected failures %+v", result.Failures)
			}
			if tc.want == workflow.OutcomeHaltedOnError {
				if !strings.Contains(result.Cause, "circuit breaker") {
					t.Fatalf("expected breaker cause, got %q", result.Cause)
				}
				if len(h.notifier.errors) != 1 {
					t.Fatalf("expected one error notification, got %v", h.notifier.errors)
				}
			}
		})
	}
}

func TestRunRetriesTransientFailureThenSucceeds(t *testing.T) {
	h := newHarness(t, testsupport.WithScrape(func(s *config.Scrape) {
		s.MaxAttempts = 3
		s.BaseDelay = 2
		s.MaxConsecutiveErrors = 3
	}))
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b")
	handler := newStubHandler(queue.KindContent, func(_ context.Context, item *queue.Item, call int) (*stage.Result, error) {
		if call <= 2 {
			return nil, transientErr()
		}
		return okResult(item), nil
	})

	result := run(t, h.manager(t, workflow.WithHandler(handler)), workflow.RunOptions{})

	// Each item fails twice; the streak resets on every success so the
	// breaker (threshold 3) never fires.
	if result.Outcome != workflow.OutcomeHaltedNoWork {
		t.Fatalf("expected halted_no_work, got %s (%s)", result.Outcome, result.Cause)
	}
	for _, id := range []string{"a", "b"} {
		item := testsupport.MustGet(t, h.store, id)
		if item.Status != queue.StatusCompleted || item.Attempts != 2 {
			t.Fatalf("item %s: status=%s attempts=%d", id, item.Status, item.Attempts)
		}
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 2 * time.Second, 4 * time.Second}
	sleeps := h.clock.Sleeps()
	if len(sleeps) != len(want) {
		t.Fatalf("expected pauses %v, got %v", want, sleeps)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("expected pauses %v, got %v", want, sleeps)
		}
	}
	if result.Attempts != 6 {
		t.Fatalf("expected 6 fetch attempts, got %d", result.Attempts)
	}
}

func TestRunStructuralFailureErrorsImmediately(t *testing.T) {
	h := newHarness(t, testsupport.WithScrape(func(s *config.Scrape) {
		s.MaxAttempts = 5
		s.BaseDelay = 1
		s.MaxConsecutiveErrors = 1
	}))
	testsupport.AddItems(t, h.store, queue.KindContent, "gone", "broken", "ok")
	handler := newStubHandler(queue.KindContent, func(_ context.Context, item *queue.Item, _ int) (*stage.Result, error) {
		switch item.ID {
		case "gone":
			return nil, services.Wrap(services.ErrNotFound, "fetch", "fetch page", "HTTP 404", nil)
		case "broken":
			return nil, services.Wrap(services.ErrStructural, "fetch", "extract item", "path missing", nil)
		}
		return okResult(item), nil
	})

	result := run(t, h.manager(t, workflow.WithHandler(handler)), workflow.RunOptions{})

	if result.Outcome != workflow.OutcomeHaltedNoWork {
		t.Fatalf("expected halted_no_work, got %s (%s)", result.Outcome, result.Cause)
	}
	gone := testsupport.MustGet(t, h.store, "gone")
	if gone.Status != queue.StatusError || gone.Attempts != 1 || !strings.HasPrefix(gone.LastError, "V: ") {
		t.Fatalf("unexpected not-found item %+v", gone)
	}
	broken := testsupport.MustGet(t, h.store, "broken")
	if broken.Status != queue.StatusError || broken.Attempts != 1 || !strings.HasPrefix(broken.LastError, "I: ") {
		t.Fatalf("unexpected structural item %+v", broken)
	}
	if len(h.clock.Sleeps()) != 0 {
		t.Fatalf("structural failures must not pause, got %v", h.clock.Sleeps())
	}
	if result.Counts != (queue.Counts{Completed: 1, Error: 2}) {
		t.Fatalf("unexpected counts %+v", result.Counts)
	}
}

func TestRunFlushesInBatches(t *testing.T) {
	h := newHarness(t, testsupport.WithScrape(func(s *config.Scrape) {
		s.BatchSize = 2
	}))
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b", "c")
	handler := newStubHandler(queue.KindContent, nil)

	result := run(t, h.manager(t, workflow.WithHandler(handler)), workflow.RunOptions{})

	sizes := h.writer.Sizes()
	if len(sizes) != 2 || sizes[0] != 2 || sizes[1] != 1 {
		t.Fatalf("expected flush sizes [2 1], got %v", sizes)
	}
	if result.Flushes != 2 {
		t.Fatalf("expected 2 flushes, got %d", result.Flushes)
	}
	if result.Counts.Completed != 3 {
		t.Fatalf("expected 3 completed, got %+v", result.Counts)
	}
}

func TestRunFlushesOncePerPageByDefault(t *testing.T) {
	h := newHarness(t, testsupport.WithScrape(func(s *config.Scrape) {
		s.BatchSize = 0
		s.PageSize = 2
	}))
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b", "c", "d", "e")
	handler := newStubHandler(queue.KindContent, nil)

	result := run(t, h.manager(t, workflow.WithHandler(handler)), workflow.RunOptions{})

	sizes := h.writer.Sizes()
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Fatalf("expected flush sizes [2 2 1], got %v", sizes)
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if handler.Calls(id) != 1 {
			t.Fatalf("item %s fetched %d times", id, handler.Calls(id))
		}
	}
	if result.Outcome != workflow.OutcomeHaltedNoWork {
		t.Fatalf("expected halted_no_work, got %s", result.Outcome)
	}
}

func TestRunRecordPersistFailureHaltsWithoutCompleting(t *testing.T) {
	h := newHarness(t)
	h.writer.fail = services.Wrap(services.ErrIO, "persist", "write record", "metadata.json", errors.New("read-only file system"))
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b")
	handler := newStubHandler(queue.KindContent, nil)

	result := run(t, h.manager(t, workflow.WithHandler(handler)), workflow.RunOptions{})

	if result.Outcome != workflow.OutcomeHaltedOnError {
		t.Fatalf("expected halted_on_error, got %s", result.Outcome)
	}
	if !strings.Contains(result.Cause, "read-only file system") {
		t.Fatalf("unexpected cause %q", result.Cause)
	}
	for _, id := range []string{"a", "b"} {
		item := testsupport.MustGet(t, h.store, id)
		if item.Status != queue.StatusPending || item.Attempts != 0 {
			t.Fatalf("item %s must stay untouched, got status=%s attempts=%d", id, item.Status, item.Attempts)
		}
	}
	if len(h.notifier.errors) != 1 {
		t.Fatalf("expected one error notification, got %v", h.notifier.errors)
	}
}

func TestRunBinaryPersistFailureHalts(t *testing.T) {
	h := newHarness(t)
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b")
	handler := newStubHandler(queue.KindContent, func(_ context.Context, item *queue.Item, _ int) (*stage.Result, error) {
		result := okResult(item)
		result.Binaries = []stage.Binary{{Name: "video.mp4", Data: []byte("mp4")}}
		return result, nil
	})

	mgr := h.manager(t, workflow.WithHandler(handler), workflow.WithBinaryWriter(failingBinaryWriter{}))
	result := run(t, mgr, workflow.RunOptions{})

	if result.Outcome != workflow.OutcomeHaltedOnError {
		t.Fatalf("expected halted_on_error, got %s", result.Outcome)
	}
	if handler.Calls("b") != 0 {
		t.Fatal("run must stop at the first persistence failure")
	}
	item := testsupport.MustGet(t, h.store, "a")
	if item.Status != queue.StatusPending || item.Attempts != 0 {
		t.Fatalf("item must stay untouched, got %+v", item)
	}
}

func TestRunWritesBinariesBeforeRecord(t *testing.T) {
	h := newHarness(t)
	testsupport.AddItems(t, h.store, queue.KindContent, "a")
	handler := newStubHandler(queue.KindContent, func(_ context.Context, item *queue.Item, _ int) (*stage.Result, error) {
		result := okResult(item)
		result.Binaries = []stage.Binary{
			{Name: "picture_0.jpeg", Data: []byte("jpeg")},
			{Name: "audio.mp3", Data: []byte("mp3data")},
		}
		return result, nil
	})

	result := run(t, h.manager(t, workflow.WithHandler(handler)), workflow.RunOptions{})

	if result.Outcome != workflow.OutcomeHaltedNoWork {
		t.Fatalf("expected halted_no_work, got %s (%s)", result.Outcome, result.Cause)
	}
	for _, name := range []string{"picture_0.jpeg", "audio.mp3"} {
		if _, err := os.Stat(h.files.BinaryPath(queue.KindContent, "a", name)); err != nil {
			t.Fatalf("binary %s missing: %v", name, err)
		}
	}
	data, err := os.ReadFile(h.files.RecordPath(queue.KindContent, "a"))
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var record stage.Record
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if len(record.Files) != 2 || record.Files[0] != "picture_0.jpeg" || record.Files[1] != "audio.mp3" {
		t.Fatalf("unexpected record files %v", record.Files)
	}
	if result.BytesPersisted < int64(len("jpeg")+len("mp3data")) {
		t.Fatalf("expected binary bytes counted, got %d", result.BytesPersisted)
	}
}

func TestRunInterruptedFlushesBufferedWork(t *testing.T) {
	h := newHarness(t)
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b", "c")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := newStubHandler(queue.KindContent, func(_ context.Context, item *queue.Item, _ int) (*stage.Result, error) {
		if item.ID == "a" {
			cancel()
		}
		return okResult(item), nil
	})

	mgr := h.manager(t, workflow.WithHandler(handler))
	result, err := mgr.Run(ctx, workflow.RunOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Outcome != workflow.OutcomeInterrupted {
		t.Fatalf("expected interrupted, got %s", result.Outcome)
	}
	if got := testsupport.MustGet(t, h.store, "a").Status; got != queue.StatusCompleted {
		t.Fatalf("buffered item must be flushed on interrupt, got %s", got)
	}
	for _, id := range []string{"b", "c"} {
		item := testsupport.MustGet(t, h.store, id)
		if item.Status != queue.StatusPending || handler.Calls(id) != 0 {
			t.Fatalf("item %s must stay untouched, got %s after %d calls", id, item.Status, handler.Calls(id))
		}
	}
}

func TestRunStopsAtMaxItems(t *testing.T) {
	h := newHarness(t)
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b", "c")
	handler := newStubHandler(queue.KindContent, nil)
	mgr := h.manager(t, workflow.WithHandler(handler))

	first := run(t, mgr, workflow.RunOptions{MaxItems: 2})
	if first.Outcome != workflow.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", first.Outcome)
	}
	if first.Processed != 2 || first.Counts != (queue.Counts{Pending: 1, Completed: 2}) {
		t.Fatalf("unexpected first run %+v", first)
	}

	second := run(t, mgr, workflow.RunOptions{MaxItems: 1})
	if second.Outcome != workflow.OutcomeHaltedNoWork {
		t.Fatalf("expected halted_no_work once drained, got %s", second.Outcome)
	}
	if second.RunID == first.RunID {
		t.Fatal("expected a fresh run id per run")
	}
}

func TestRunHaltsWhenCapCheckCannotReadTracker(t *testing.T) {
	h := newHarness(t, testsupport.WithScrape(func(s *config.Scrape) { s.BatchSize = 1 }))
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b")
	handler := newStubHandler(queue.KindContent, nil)
	// The first item is flushed and completed before progress is reported;
	// closing the tracker there makes the max_items check fail.
	mgr := h.manager(t, workflow.WithHandler(handler), workflow.WithProgress(func(pacer.Snapshot) {
		_ = h.store.Close()
	}))

	result := run(t, mgr, workflow.RunOptions{MaxItems: 1})
	if result.Outcome != workflow.OutcomeHaltedOnError {
		t.Fatalf("expected halted_on_error, got %s (%s)", result.Outcome, result.Cause)
	}
	if !strings.Contains(result.Cause, "list pending items after max_items (1)") {
		t.Fatalf("expected tracker read failure as cause, got %q", result.Cause)
	}
	if result.Processed != 1 || handler.Calls("b") != 0 {
		t.Fatalf("expected only the first item processed, got %+v", result)
	}
}

func TestRunHonorsKindFilter(t *testing.T) {
	h := newHarness(t)
	testsupport.AddItems(t, h.store, queue.KindContent, "c1")
	testsupport.AddItems(t, h.store, queue.KindUser, "u1", "u2")
	content := newStubHandler(queue.KindContent, nil)
	users := newStubHandler(queue.KindUser, nil)
	mgr := h.manager(t, workflow.WithHandler(content), workflow.WithHandler(users))

	result := run(t, mgr, workflow.RunOptions{Kind: queue.KindUser})

	if result.Kind != queue.KindUser || result.Processed != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if content.Calls("c1") != 0 {
		t.Fatal("content handler must not run under a user filter")
	}
	if got := testsupport.MustGet(t, h.store, "c1").Status; got != queue.StatusPending {
		t.Fatalf("filtered item changed to %s", got)
	}
	if got := testsupport.MustGet(t, h.store, "u2").ResultRef; got != h.files.RecordPath(queue.KindUser, "u2") {
		t.Fatalf("unexpected user ref %q", got)
	}
}

func TestRunPacesIterationsAndReportsProgress(t *testing.T) {
	h := newHarness(t, testsupport.WithScrape(func(s *config.Scrape) {
		s.WaitTime = 2
	}))
	testsupport.AddItems(t, h.store, queue.KindContent, "a", "b", "c")
	handler := newStubHandler(queue.KindContent, func(_ context.Context, item *queue.Item, _ int) (*stage.Result, error) {
		h.clock.Advance(500 * time.Millisecond)
		return okResult(item), nil
	})
	var snapshots []pacer.Snapshot
	mgr := h.manager(t, workflow.WithHandler(handler), workflow.WithProgress(func(s pacer.Snapshot) {
		snapshots = append(snapshots, s)
	}))

	run(t, mgr, workflow.RunOptions{})

	sleeps := h.clock.Sleeps()
	if len(sleeps) != 3 {
		t.Fatalf("expected 3 pacing sleeps, got %v", sleeps)
	}
	for _, d := range sleeps {
		if d != 1500*time.Millisecond {
			t.Fatalf("expected 1.5s remainder sleeps, got %v", sleeps)
		}
	}
	if len(snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snapshots))
	}
	first := snapshots[0]
	if first.Iteration != 1 || first.IterationTime != 2*time.Second || !first.ETAValid {
		t.Fatalf("unexpected first snapshot %+v", first)
	}
	// Records are buffered until the page ends, so all three still count
	// as pending after the first iteration.
	if first.ETA != 6*time.Second {
		t.Fatalf("expected ETA 6s, got %v", first.ETA)
	}
}

func TestRunRejectsUnregisteredKindFilter(t *testing.T) {
	h := newHarness(t)
	mgr := h.manager(t, workflow.WithHandler(newStubHandler(queue.KindContent, nil)))
	_, err := mgr.Run(context.Background(), workflow.RunOptions{Kind: queue.KindUser})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunRejectsNonUUIDRunID(t *testing.T) {
	h := newHarness(t)
	testsupport.AddItems(t, h.store, queue.KindContent, "a")
	handler := newStubHandler(queue.KindContent, nil)
	mgr := h.manager(t, workflow.WithHandler(handler))

	_, err := mgr.Run(context.Background(), workflow.RunOptions{RunID: "run-1"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if item := testsupport.MustGet(t, h.store, "a"); item.Status != queue.StatusPending || item.Attempts != 0 {
		t.Fatalf("expected item untouched, got %+v", item)
	}
	if len(h.writer.sizes) != 0 {
		t.Fatalf("expected nothing written, got flushes %v", h.writer.sizes)
	}
}

func TestNewManagerValidatesCollaborators(t *testing.T) {
	h := newHarness(t)
	if _, err := workflow.NewManager(h.cfg, h.store, nil, workflow.WithRecordWriter(h.writer)); err == nil {
		t.Fatal("expected error without handlers")
	}
	if _, err := workflow.NewManager(h.cfg, h.store, nil, workflow.WithHandler(newStubHandler(queue.KindContent, nil))); err == nil {
		t.Fatal("expected error without record writer")
	}
	_, err := workflow.NewManager(h.cfg, h.store, nil,
		workflow.WithRecordWriter(h.writer),
		workflow.WithHandler(newStubHandler(queue.KindContent, nil)),
		workflow.WithHandler(newStubHandler(queue.KindContent, nil)),
	)
	if err == nil {
		t.Fatal("expected duplicate handler error")
	}
}

func TestStatusReportsCountsAndHealth(t *testing.T) {
	h := newHarness(t)
	testsupport.AddItems(t, h.store, queue.KindUser, "u1")
	mgr := h.manager(t,
		workflow.WithHandler(newStubHandler(queue.KindUser, nil)),
		workflow.WithHandler(newStubHandler(queue.KindContent, nil)),
	)
	summary, err := mgr.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if summary.Counts.Pending != 1 {
		t.Fatalf("unexpected counts %+v", summary.Counts)
	}
	if len(summary.HandlerHealth) != 2 || summary.HandlerHealth[0].Name != "content" || !summary.HandlerHealth[1].Ready {
		t.Fatalf("unexpected health %+v", summary.HandlerHealth)
	}
}
