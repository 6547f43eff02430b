// Package config resolves the cachekeep runtime configuration from
// defaults, an optional cachekeep.yaml file, and environment variables.
//
// Precedence, lowest to highest: built-in defaults, config file, CACHEKEEP_*
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	errUtils "github.com/cachekeep/cachekeep/errors"
	"github.com/cachekeep/cachekeep/pkg/logger"
	"github.com/cachekeep/cachekeep/pkg/schema"
	"github.com/cachekeep/cachekeep/pkg/xdg"
)

const (
	// DefaultExpiryDays is the expiry threshold applied when no limit is
	// configured.
	DefaultExpiryDays = 30

	// ConfigFileName is the base name of the optional config file.
	ConfigFileName = "cachekeep"

	// ConfigFileType is the config file format.
	ConfigFileType = "yaml"

	// DefaultDirPerm is the permission used when creating config directories.
	DefaultDirPerm = 0o755
)

// InitConfig loads and validates the cachekeep configuration.
func InitConfig() (*schema.Configuration, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg schema.Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := processEnvVars(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_dir", "")
	v.SetDefault("expiry_days", DefaultExpiryDays)
	v.SetDefault("lock_timeout", 0)
	v.SetDefault("logs.file", "/dev/stderr")
	v.SetDefault("logs.level", "Info")
	v.SetDefault("perf.enabled", false)
}

// readConfigFile merges an optional cachekeep.yaml found in the XDG config
// directory or the working directory. A missing file is not an error.
func readConfigFile(v *viper.Viper) error {
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)

	if configDir, err := xdg.GetXDGConfigDir("", DefaultDirPerm); err == nil {
		v.AddConfigPath(configDir)
	}
	if wd, err := os.Getwd(); err == nil {
		v.AddConfigPath(wd)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	logger.Debug("Loaded config file", "path", v.ConfigFileUsed())
	return nil
}

// processEnvVars applies CACHEKEEP_* environment variables on top of the
// unmarshalled configuration. Numeric variables are parsed strictly so a
// typo fails loudly instead of silently becoming zero.
func processEnvVars(cfg *schema.Configuration) error {
	if baseDir := os.Getenv("CACHEKEEP_BASE_DIR"); baseDir != "" {
		cfg.BaseDir = baseDir
	}

	days, err := ExpiryDaysFromEnv(cfg.ExpiryDays)
	if err != nil {
		return err
	}
	cfg.ExpiryDays = days

	seconds, err := LockTimeoutFromEnv(cfg.LockTimeout)
	if err != nil {
		return err
	}
	cfg.LockTimeout = seconds

	if logsLevel := os.Getenv("CACHEKEEP_LOGS_LEVEL"); logsLevel != "" {
		cfg.Logs.Level = logsLevel
	}

	if logsFile := os.Getenv("CACHEKEEP_LOGS_FILE"); logsFile != "" {
		cfg.Logs.File = logsFile
	}

	if perfEnabled := os.Getenv("CACHEKEEP_PERF_ENABLED"); perfEnabled != "" {
		enabled, err := strconv.ParseBool(perfEnabled)
		if err != nil {
			return errors.Wrap(err, "invalid CACHEKEEP_PERF_ENABLED")
		}
		cfg.Perf.Enabled = enabled
	}

	return nil
}

// ExpiryDaysFromEnv returns the expiry limit from CACHEKEEP_EXPIRY_DAYS, or
// def when the variable is unset. The value is parsed strictly: anything but
// an integer fails with ErrInvalidExpiryLimit rather than silently becoming
// zero.
func ExpiryDaysFromEnv(def int) (int, error) {
	expiryDays := os.Getenv("CACHEKEEP_EXPIRY_DAYS")
	if expiryDays == "" {
		return def, nil
	}

	days, err := strconv.Atoi(expiryDays)
	if err != nil {
		return 0, errUtils.Build(errUtils.ErrInvalidExpiryLimit).
			WithCause(err).
			WithContext("CACHEKEEP_EXPIRY_DAYS", expiryDays).
			WithHint("set CACHEKEEP_EXPIRY_DAYS to a positive integer number of days").
			Err()
	}
	return days, nil
}

// LockTimeoutFromEnv returns the lock wait budget in seconds from
// CACHEKEEP_LOCK_TIMEOUT, or def when the variable is unset. Zero means
// wait indefinitely.
func LockTimeoutFromEnv(def int) (int, error) {
	lockTimeout := os.Getenv("CACHEKEEP_LOCK_TIMEOUT")
	if lockTimeout == "" {
		return def, nil
	}

	seconds, err := strconv.Atoi(lockTimeout)
	if err != nil {
		return 0, errUtils.Build(errUtils.ErrInvalidTimeout).
			WithCause(err).
			WithContext("CACHEKEEP_LOCK_TIMEOUT", lockTimeout).
			WithHint("set CACHEKEEP_LOCK_TIMEOUT to a whole number of seconds, 0 to wait indefinitely").
			Err()
	}
	return seconds, nil
}

func validate(cfg *schema.Configuration) error {
	if cfg.ExpiryDays <= 0 {
		return errUtils.Build(errUtils.ErrInvalidExpiryLimit).
			WithContext("expiry_days", strconv.Itoa(cfg.ExpiryDays)).
			WithHint("the expiry limit must be a positive number of days").
			Err()
	}

	if cfg.LockTimeout < 0 {
		return errUtils.Build(errUtils.ErrInvalidTimeout).
			WithContext("lock_timeout", strconv.Itoa(cfg.LockTimeout)).
			WithHint("the lock timeout must be zero or a positive number of seconds").
			Err()
	}

	if _, err := logger.ParseLogLevel(cfg.Logs.Level); err != nil {
		return err
	}

	return nil
}

// ResolveBaseDir returns the cache directory a command should operate on:
// the explicit argument if given, the configured base_dir, or the default
// XDG cache location.
func ResolveBaseDir(cfg *schema.Configuration, explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if cfg != nil && cfg.BaseDir != "" {
		return filepath.Clean(cfg.BaseDir), nil
	}
	return xdg.GetXDGCacheDir("versions", DefaultDirPerm)
}
