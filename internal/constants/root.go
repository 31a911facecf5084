package constants

import "time"

const (
	AppName           = "rhythm"
	DefaultConfigPath = "~/.config/rhythm/rhythm.db"
	Version           = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Minute grid
	MinutesPerDay = 1440
	DaysPerWeek   = 7

	// Keyring users
	KeyringRemoteDSNUser   = "remote-connection"
	KeyringAdvisoryKeyUser = "advisory-api-key"

	// Sync constants
	SyncMaxRetries = 3
	// SyncMaxAttempts is how many failed pushes a queued week gets before
	// the periodic drain leaves it alone until it is queued again.
	SyncMaxAttempts = 10
	SyncRetryDelay = 200 * time.Millisecond

	// Advisory cache
	AdvisoryCacheTTL     = 7 * 24 * time.Hour
	AdvisoryCacheDirName = "advisory-cache"
	DefaultAdvisoryModel = "gpt-4o-mini"

	// Periodic jobs (standard 5-field cron)
	DefaultOptimizeSchedule = "0 6 * * 0"
	DefaultSyncSchedule     = "*/15 * * * *"

	DefaultHTTPAddr = "127.0.0.1:8088"
)
