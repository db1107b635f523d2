package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScrape(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validatePostgres(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScrape() error {
	if c.Scrape.WaitTime < 0 {
		return errors.New("scrape.wait_time must be >= 0")
	}
	if c.Scrape.BatchSize < 0 {
		return errors.New("scrape.batch_size must be >= 0 (0 commits once per pending page)")
	}
	if c.Scrape.MaxAttempts < 1 {
		return errors.New("scrape.max_attempts must be >= 1")
	}
	if c.Scrape.BaseDelay < 0 {
		return errors.New("scrape.base_delay must be >= 0")
	}
	if c.Scrape.MaxConsecutiveErrors < 1 {
		return errors.New("scrape.max_consecutive_errors must be >= 1")
	}
	if c.Scrape.MaxItems < 0 {
		return errors.New("scrape.max_items must be >= 0")
	}
	switch c.Scrape.KindFilter {
	case "", KindContent, KindUser:
	default:
		return fmt.Errorf("scrape.kind_filter must be one of %q, %q or empty, got %q", KindContent, KindUser, c.Scrape.KindFilter)
	}
	return nil
}

func (c *Config) validateHTTP() error {
	for key, template := range map[string]string{"http.content_url": c.HTTP.ContentURL, "http.user_url": c.HTTP.UserURL} {
		if template == "" {
			continue
		}
		if !strings.Contains(template, "{id}") {
			return fmt.Errorf("%s must contain the {id} placeholder", key)
		}
		parsed, err := url.Parse(strings.ReplaceAll(template, "{id}", "x"))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL template", key)
		}
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return errors.New("http.requests_per_second must be >= 0 (0 disables limiting)")
	}
	return nil
}

func (c *Config) validatePostgres() error {
	if !c.Postgres.Enabled {
		return nil
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn must be set when postgres.enabled is true (or export TRAWL_POSTGRES_DSN)")
	}
	if !tableNamePattern.MatchString(c.Postgres.Table) {
		return fmt.Errorf("postgres.table must be a plain identifier, got %q", c.Postgres.Table)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	for component, level := range c.Logging.ComponentOverrides {
		if !validLevel(level) {
			return fmt.Errorf("logging.component_overrides.%s must be debug, info, warn, or error, got %q", component, level)
		}
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
