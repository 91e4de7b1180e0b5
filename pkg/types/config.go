// Package types defines the configuration, event payloads, and standard
// errors shared by the propstore packages.
package types

import (
	"errors"
	"time"
)

// Config holds the tunables for opening and driving an item's store.
type Config struct {
	// CacheDirName is the directory created under the item root that holds
	// the database file (and sibling caches owned by other subsystems).
	CacheDirName string `json:"cache_dir_name" yaml:"cache_dir_name"`

	// DatabaseFile is the name of the SQLite file inside CacheDirName.
	DatabaseFile string `json:"database_file" yaml:"database_file"`

	// ConnectAttempts bounds the retry loop for opening the database and
	// for schema initialization when the engine reports the file locked.
	ConnectAttempts uint `json:"connect_attempts" yaml:"connect_attempts"`

	// RetryBaseDelay is the first backoff interval; subsequent waits grow
	// exponentially up to RetryMaxDelay.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `json:"retry_max_delay" yaml:"retry_max_delay"`

	// BusyTimeout is handed to the engine so statement-level lock waits
	// resolve inside the engine before surfacing as errors.
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`
}

// Config validation errors.
var (
	ErrCacheDirNameEmpty  = errors.New("cache dir name must not be empty")
	ErrDatabaseFileEmpty  = errors.New("database file name must not be empty")
	ErrAttemptsInvalid    = errors.New("connect attempts must be positive")
	ErrRetryDelayInvalid  = errors.New("retry delays must be positive")
	ErrBusyTimeoutInvalid = errors.New("busy timeout must not be negative")
)

// DefaultConfig returns the stock configuration. The retry magnitude follows
// the values the pipeline has been running with; they are tunables, not
// invariants.
func DefaultConfig() Config {
	return Config{
		CacheDirName:    ".propstore",
		DatabaseFile:    "properties.db",
		ConnectAttempts: 100,
		RetryBaseDelay:  50 * time.Millisecond,
		RetryMaxDelay:   time.Second,
		BusyTimeout:     2 * time.Second,
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.CacheDirName == "" {
		return ErrCacheDirNameEmpty
	}
	if c.DatabaseFile == "" {
		return ErrDatabaseFileEmpty
	}
	if c.ConnectAttempts == 0 {
		return ErrAttemptsInvalid
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay <= 0 {
		return ErrRetryDelayInvalid
	}
	if c.BusyTimeout < 0 {
		return ErrBusyTimeoutInvalid
	}
	return nil
}
