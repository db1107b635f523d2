package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScrape()
	c.normalizeHTTP()
	c.normalizePostgres()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScrape() {
	c.Scrape.KindFilter = strings.ToLower(strings.TrimSpace(c.Scrape.KindFilter))
	if c.Scrape.KindFilter == "all" {
		c.Scrape.KindFilter = ""
	}
	if c.Scrape.PageSize <= 0 {
		c.Scrape.PageSize = defaultPageSize
	}
	if c.Scrape.ETAWindow <= 0 {
		c.Scrape.ETAWindow = defaultETAWindow
	}
	if c.Scrape.ETAWindow > maxETAWindow {
		c.Scrape.ETAWindow = maxETAWindow
	}
}

func (c *Config) normalizeHTTP() {
	c.HTTP.ContentURL = strings.TrimSpace(c.HTTP.ContentURL)
	c.HTTP.UserURL = strings.TrimSpace(c.HTTP.UserURL)
	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaultUserAgent
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = defaultHTTPTimeout
	}
	if c.HTTP.Burst <= 0 {
		c.HTTP.Burst = defaultBurst
	}
	if c.HTTP.BinaryConcurrency <= 0 {
		c.HTTP.BinaryConcurrency = defaultBinaryConcurrency
	}
	c.HTTP.DataScriptID = strings.TrimSpace(c.HTTP.DataScriptID)
	if c.HTTP.DataScriptID == "" {
		c.HTTP.DataScriptID = defaultDataScriptID
	}
	c.HTTP.ContentPath = strings.TrimSpace(c.HTTP.ContentPath)
	if c.HTTP.ContentPath == "" {
		c.HTTP.ContentPath = defaultContentPath
	}
	c.HTTP.UserPath = strings.TrimSpace(c.HTTP.UserPath)
	if c.HTTP.UserPath == "" {
		c.HTTP.UserPath = defaultUserPath
	}
}

func (c *Config) normalizePostgres() {
	c.Postgres.DSN = strings.TrimSpace(c.Postgres.DSN)
	c.Postgres.Table = strings.TrimSpace(c.Postgres.Table)
	if c.Postgres.Table == "" {
		c.Postgres.Table = defaultPostgresTable
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		normalized := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			component = strings.ToLower(strings.TrimSpace(component))
			if component == "" {
				continue
			}
			normalized[component] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentOverrides = normalized
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
