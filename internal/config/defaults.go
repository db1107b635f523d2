package config

const (
	defaultDataDir              = "~/.local/share/trawl"
	defaultOutputDir            = "~/.local/share/trawl/output"
	defaultLogDir               = "~/.local/share/trawl/logs"
	defaultWaitTime             = 0.35
	defaultMaxAttempts          = 3
	defaultBaseDelay            = 3.0
	defaultMaxConsecutiveErrors = 20
	defaultPageSize             = 100
	defaultETAWindow            = 100
	maxETAWindow                = 100
	defaultUserAgent            = "trawl/0.1"
	defaultHTTPTimeout          = 30
	defaultRequestsPerSecond    = 2.0
	defaultBurst                = 1
	defaultBinaryConcurrency    = 3
	defaultDataScriptID         = "__UNIVERSAL_DATA_FOR_REHYDRATION__"
	defaultContentPath          = `__DEFAULT_SCOPE__.webapp\.video-detail.itemInfo.itemStruct`
	defaultUserPath             = `__DEFAULT_SCOPE__.webapp\.user-detail.userInfo`
	defaultPostgresTable        = "scraped_records"
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// KindContent and KindUser are the item kinds accepted by kind_filter.
const (
	KindContent = "content"
	KindUser    = "user"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Scrape: Scrape{
			WaitTime:             defaultWaitTime,
			MaxAttempts:          defaultMaxAttempts,
			BaseDelay:            defaultBaseDelay,
			MaxConsecutiveErrors: defaultMaxConsecutiveErrors,
			PageSize:             defaultPageSize,
			DownloadBinaries:     true,
			ETAWindow:            defaultETAWindow,
		},
		HTTP: HTTP{
			UserAgent:         defaultUserAgent,
			Timeout:           defaultHTTPTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
			BinaryConcurrency: defaultBinaryConcurrency,
			DataScriptID:      defaultDataScriptID,
			ContentPath:       defaultContentPath,
			UserPath:          defaultUserPath,
		},
		Postgres: Postgres{
			Table: defaultPostgresTable,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunStarted:     true,
			RunFinished:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
