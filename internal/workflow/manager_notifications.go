package workflow

import (
	"context"
	"errors"

	"trawl/internal/logging"
	"trawl/internal/notifications"
)

func (m *Manager) notifyRunStarted(ctx context.Context, pending int) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyRunStarted(ctx, pending); err != nil {
		m.logNotifyFailure(ctx, "run start notification failed", err)
	}
}

func (m *Manager) notifyRunFinished(ctx context.Context, run *runState) {
	if m.notifier == nil {
		return
	}
	result := run.result
	summary := notifications.RunSummary{
		Outcome:   string(result.Outcome),
		Cause:     result.Cause,
		Processed: result.Processed,
		Succeeded: result.Succeeded,
		Failed:    len(result.Failures),
		Bytes:     result.BytesPersisted,
		Counts:    result.Counts,
		Duration:  result.Duration,
	}
	if err := m.notifier.NotifyRunFinished(ctx, summary); err != nil {
		m.logNotifyFailure(ctx, "run finished notification failed", err)
	}
}

func (m *Manager) notifyError(ctx context.Context, cause error, label string) {
	if m.notifier == nil || cause == nil {
		return
	}
	if err := m.notifier.NotifyError(ctx, cause, label); err != nil {
		m.logNotifyFailure(ctx, "error notification failed", err)
	}
}

func (m *Manager) logNotifyFailure(ctx context.Context, msg string, err error) {
	logger := logging.WithContext(ctx, m.logger)
	if errors.Is(err, context.Canceled) {
		logger.Debug("shutting down, notification skipped")
		return
	}
	logging.WarnWithContext(logger, msg, "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.String(logging.FieldImpact, "ntfy subscribers were not notified"),
	)
}
