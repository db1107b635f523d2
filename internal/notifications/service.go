package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"trawl/internal/config"
	"trawl/internal/queue"
)

const userAgent = "trawl/0.1"

// Service defines the notification surface exposed to the run loop and CLI.
type Service interface {
	NotifyRunStarted(ctx context.Context, pending int) error
	NotifyRunFinished(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// RunSummary is the end-of-run digest published when a run stops.
type RunSummary struct {
	Outcome   string
	Cause     string
	Processed int
	Succeeded int
	Failed    int
	Bytes     int64
	Counts    queue.Counts
	Duration  time.Duration
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		runStarted:  cfg.Notifications.RunStarted,
		runFinished: cfg.Notifications.RunFinished,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	runStarted  bool
	runFinished bool
	errors      bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, pending int) error {
	if !n.runStarted {
		return nil
	}
	data := payload{
		title:   "Trawl - Run Started",
		message: fmt.Sprintf("Started scrape run with %s items pending", humanize.Comma(int64(pending))),
		tags:    []string{"trawl", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFinished(ctx context.Context, summary RunSummary) error {
	if !n.runFinished {
		return nil
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "Trawl - Run Finished"
	priority := ""
	if summary.Failed > 0 {
		title = "Trawl - Run Finished (with errors)"
	}
	if summary.Outcome == "halted_on_error" {
		title = "Trawl - Run Halted"
		priority = "high"
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Outcome: %s\n", summary.Outcome)
	if cause := strings.TrimSpace(summary.Cause); cause != "" {
		fmt.Fprintf(&builder, "Cause: %s\n", cause)
	}
	fmt.Fprintf(&builder, "Processed %d items (%d succeeded, %d failed) in %s\n",
		summary.Processed, summary.Succeeded, summary.Failed, duration)
	if summary.Bytes > 0 {
		fmt.Fprintf(&builder, "Persisted %s\n", humanize.Bytes(uint64(summary.Bytes)))
	}
	fmt.Fprintf(&builder, "Queue: %d pending, %d retry, %d completed, %d error",
		summary.Counts.Pending, summary.Counts.Retry, summary.Counts.Completed, summary.Counts.Error)

	data := payload{
		title:    title,
		message:  builder.String(),
		tags:     []string{"trawl", "run", summary.Outcome},
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Trawl - Error",
		message:  builder.String(),
		tags:     []string{"trawl", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Trawl - Test",
		message:  "Notification system test",
		tags:     []string{"trawl", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, int) error         { return nil }
func (noopService) NotifyRunFinished(context.Context, RunSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
