package testsupport

import (
	"path/filepath"
	"testing"

	"trawl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Pacing and backoff delays are zeroed so loops run instantly; options can
// restore them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Scrape.WaitTime = 0
	cfgVal.Scrape.BaseDelay = 0
	cfgVal.HTTP.ContentURL = "http://127.0.0.1:0/content/{id}"
	cfgVal.HTTP.UserURL = "http://127.0.0.1:0/user/{id}"
	cfgVal.HTTP.RequestsPerSecond = 0
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithScrape applies a mutation to the scrape section.
func WithScrape(fn func(*config.Scrape)) ConfigOption {
	return func(b *configBuilder) {
		fn(&b.cfg.Scrape)
	}
}

// WithUpstream points both URL templates at a test server base URL.
func WithUpstream(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.HTTP.ContentURL = baseURL + "/content/{id}"
		b.cfg.HTTP.UserURL = baseURL + "/user/{id}"
	}
}

// WithNtfyTopic sets the notification endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
