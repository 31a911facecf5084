// Package config resolves runtime settings from the environment, an
// optional .env file and the OS keyring.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/keyring"
	"github.com/julianstephens/rhythm/internal/logger"
)

const (
	EnvDBPath           = "RHYTHM_DB_PATH"
	EnvCacheDir         = "RHYTHM_CACHE_DIR"
	EnvCalendarFile     = "RHYTHM_CALENDAR_FILE"
	EnvHTTPAddr         = "RHYTHM_HTTP_ADDR"
	EnvAdvisoryModel    = "RHYTHM_ADVISORY_MODEL"
	EnvAdvisoryKey      = "RHYTHM_ADVISORY_API_KEY"
	EnvRemoteDSN        = "RHYTHM_REMOTE_DSN"
	EnvOptimizeSchedule = "RHYTHM_OPTIMIZE_SCHEDULE"
	EnvSyncSchedule     = "RHYTHM_SYNC_SCHEDULE"
	EnvDebug            = "RHYTHM_DEBUG"
)

type Config struct {
	DBPath           string
	CacheDir         string
	CalendarFile     string
	HTTPAddr         string
	AdvisoryModel    string
	AdvisoryKey      string
	RemoteDSN        string
	OptimizeSchedule string
	SyncSchedule     string
	Debug            bool
}

// ConfigDir is the directory holding the database, logs and backups.
func (c Config) ConfigDir() string {
	return filepath.Dir(c.DBPath)
}

// RemoteEnabled reports whether a remote persistence target is configured.
func (c Config) RemoteEnabled() bool {
	return c.RemoteDSN != ""
}

// AdvisoryEnabled reports whether an advisory API key is configured.
func (c Config) AdvisoryEnabled() bool {
	return c.AdvisoryKey != ""
}

// WithDBPath points the config at another database. A cache directory that
// was derived from the old location moves with it.
func (c Config) WithDBPath(path string) Config {
	if path == "" || path == c.DBPath {
		return c
	}
	if c.CacheDir == filepath.Join(c.ConfigDir(), constants.AdvisoryCacheDirName) {
		c.CacheDir = filepath.Join(filepath.Dir(path), constants.AdvisoryCacheDirName)
	}
	c.DBPath = path
	return c
}

// Load reads envFiles (".env" when none are given; a missing file is not an
// error), then the RHYTHM_* environment. Secrets come from the OS keyring
// first and fall back to the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Config{
		DBPath:           getEnv(EnvDBPath, constants.DefaultConfigPath),
		CacheDir:         os.Getenv(EnvCacheDir),
		CalendarFile:     os.Getenv(EnvCalendarFile),
		HTTPAddr:         getEnv(EnvHTTPAddr, constants.DefaultHTTPAddr),
		AdvisoryModel:    getEnv(EnvAdvisoryModel, constants.DefaultAdvisoryModel),
		OptimizeSchedule: getEnv(EnvOptimizeSchedule, constants.DefaultOptimizeSchedule),
		SyncSchedule:     getEnv(EnvSyncSchedule, constants.DefaultSyncSchedule),
		Debug:            ParseBoolEnv(EnvDebug, false),
	}
	cfg.AdvisoryKey = keyring.Lookup(keyring.AdvisoryKey, os.Getenv(EnvAdvisoryKey))
	cfg.RemoteDSN = keyring.Lookup(keyring.RemoteDSN, os.Getenv(EnvRemoteDSN))

	var err error
	if cfg.DBPath, err = ExpandPath(cfg.DBPath); err != nil {
		return Config{}, err
	}
	if cfg.CalendarFile, err = ExpandPath(cfg.CalendarFile); err != nil {
		return Config{}, err
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.ConfigDir(), constants.AdvisoryCacheDirName)
	} else if cfg.CacheDir, err = ExpandPath(cfg.CacheDir); err != nil {
		return Config{}, err
	}

	logger.Debug("Configuration loaded",
		"db_path", cfg.DBPath,
		"calendar_file_set", cfg.CalendarFile != "",
		"remote_set", cfg.RemoteEnabled(),
		"advisory_set", cfg.AdvisoryEnabled(),
		"http_addr", cfg.HTTPAddr)
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// ParseBoolEnv accepts true/1/yes/on and false/0/no/off. Anything else
// yields the default.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		logger.Warn("Invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
