package preflight

import (
	"net/url"
	"strings"

	"trawl/internal/config"
)

// CheckNotificationsFromConfig evaluates the ntfy settings without sending
// anything. Use test-notify for a live check.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Result{Name: name, Detail: "ntfy_topic must be an http(s) URL"}
	}
	return Result{Name: name, Passed: true, Detail: parsed.Host}
}
