package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir" env:"TRAWL_DATA_DIR"`
	OutputDir string `toml:"output_dir" env:"TRAWL_OUTPUT_DIR"`
	LogDir    string `toml:"log_dir" env:"TRAWL_LOG_DIR"`
}

// Scrape contains the run loop knobs: pacing, batching, and retry policy.
type Scrape struct {
	WaitTime             float64 `toml:"wait_time" env:"TRAWL_WAIT_TIME"`
	BatchSize            int     `toml:"batch_size" env:"TRAWL_BATCH_SIZE"`
	MaxAttempts          int     `toml:"max_attempts" env:"TRAWL_MAX_ATTEMPTS"`
	BaseDelay            float64 `toml:"base_delay" env:"TRAWL_BASE_DELAY"`
	MaxConsecutiveErrors int     `toml:"max_consecutive_errors" env:"TRAWL_MAX_CONSECUTIVE_ERRORS"`
	KindFilter           string  `toml:"kind_filter" env:"TRAWL_KIND_FILTER"`
	PageSize             int     `toml:"page_size" env:"TRAWL_PAGE_SIZE"`
	MaxItems             int     `toml:"max_items" env:"TRAWL_MAX_ITEMS"`
	DownloadBinaries     bool    `toml:"download_binaries" env:"TRAWL_DOWNLOAD_BINARIES"`
	ETAWindow            int     `toml:"eta_window"`
}

// HTTP contains settings for the default upstream collaborators.
type HTTP struct {
	ContentURL        string  `toml:"content_url" env:"TRAWL_CONTENT_URL"`
	UserURL           string  `toml:"user_url" env:"TRAWL_USER_URL"`
	UserAgent         string  `toml:"user_agent" env:"TRAWL_USER_AGENT"`
	Timeout           int     `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second" env:"TRAWL_REQUESTS_PER_SECOND"`
	Burst             int     `toml:"burst"`
	BinaryConcurrency int     `toml:"binary_concurrency"`
	DataScriptID      string  `toml:"data_script_id"`
	ContentPath       string  `toml:"content_path"`
	UserPath          string  `toml:"user_path"`
}

// Postgres contains the optional relational record sink.
type Postgres struct {
	Enabled bool   `toml:"enabled" env:"TRAWL_POSTGRES_ENABLED"`
	DSN     string `toml:"dsn" env:"TRAWL_POSTGRES_DSN"`
	Table   string `toml:"table"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" env:"TRAWL_NTFY_TOPIC"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	RunFinished    bool   `toml:"run_finished"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format" env:"TRAWL_LOG_FORMAT"`
	Level              string            `toml:"level" env:"TRAWL_LOG_LEVEL"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for trawl.
//
// Configuration sections by subsystem:
//   - Paths: tracker database, output tree, and logs
//   - Scrape: pacing, batch commit size, retry policy, circuit breaker
//   - HTTP: upstream URL templates, rate limit, extraction paths
//   - Postgres: optional record sink
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and per-component overrides
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scrape        Scrape        `toml:"scrape"`
	HTTP          HTTP          `toml:"http"`
	Postgres      Postgres      `toml:"postgres"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/trawl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized, with environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("trawl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, output, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TrackerPath is the SQLite file backing the tracker store.
func (c *Config) TrackerPath() string {
	return filepath.Join(c.Paths.DataDir, "tracker.db")
}

// LockPath is the file guarding against concurrent runs over one data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "trawl.lock")
}

// WaitDuration is the minimum wall-clock duration of one iteration.
func (c *Config) WaitDuration() time.Duration {
	return secondsToDuration(c.Scrape.WaitTime)
}

// BaseDelayDuration is the linear backoff unit.
func (c *Config) BaseDelayDuration() time.Duration {
	return secondsToDuration(c.Scrape.BaseDelay)
}

// HTTPTimeout bounds every upstream request.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeout) * time.Second
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
