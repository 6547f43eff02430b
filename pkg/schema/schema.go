// Package schema defines the configuration structures shared across
// cachekeep packages.
package schema

// Configuration holds the resolved runtime settings for cachekeep.
// It is populated by pkg/config from defaults, config files, and
// environment variables.
type Configuration struct {
	// BaseDir is the default cache directory operated on when a command
	// does not name one explicitly.
	BaseDir string `yaml:"base_dir" json:"base_dir" mapstructure:"base_dir"`

	// ExpiryDays is the age threshold, in days since last access, above
	// which a version directory is considered expired.
	ExpiryDays int `yaml:"expiry_days" json:"expiry_days" mapstructure:"expiry_days"`

	// LockTimeout caps, in seconds, how long a blocking lock acquisition
	// may wait. Zero means wait indefinitely.
	LockTimeout int `yaml:"lock_timeout" json:"lock_timeout" mapstructure:"lock_timeout"`

	Logs Logs `yaml:"logs" json:"logs" mapstructure:"logs"`
	Perf Perf `yaml:"perf" json:"perf" mapstructure:"perf"`
}

// Logs controls log output destination and verbosity.
type Logs struct {
	// File is the log destination: a path, or /dev/stderr, /dev/stdout,
	// /dev/null.
	File string `yaml:"file" json:"file" mapstructure:"file"`

	// Level is one of Trace, Debug, Info, Warning, Off.
	Level string `yaml:"level" json:"level" mapstructure:"level"`
}

// Perf toggles collection of per-function performance counters.
type Perf struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}
