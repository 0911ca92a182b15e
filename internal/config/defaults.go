package config

const (
	defaultDataDir         = "~/.local/share/overseer"
	defaultLogDir          = "~/.local/share/overseer/logs"
	defaultAPIBind         = "127.0.0.1:8321"
	defaultBatchSize       = 2
	defaultMaxRetryRounds  = 2
	defaultBatchDelay      = 2
	defaultExecutorTimeout = 300
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Scheduler: Scheduler{
			BatchSize:         defaultBatchSize,
			MaxRetryRounds:    defaultMaxRetryRounds,
			BatchDelaySeconds: defaultBatchDelay,
		},
		Executor: Executor{
			RequestTimeout: defaultExecutorTimeout,
			Headless:       true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			TaskStarted:    true,
			TaskCompleted:  true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
