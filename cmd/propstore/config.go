// Config loading for the propstore CLI.
package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/shotline/propstore/pkg/types"
)

// Config keys.
const (
	cfgKeyCacheDirName    = "cache_dir_name"
	cfgKeyDatabaseFile    = "database_file"
	cfgKeyConnectAttempts = "connect_attempts"
	cfgKeyRetryBaseDelay  = "retry_base_delay"
	cfgKeyRetryMaxDelay   = "retry_max_delay"
	cfgKeyBusyTimeout     = "busy_timeout"
)

// loadConfig builds the store configuration from defaults overlaid with an
// optional YAML config file. A missing --config flag means defaults only.
func loadConfig(path string) (types.Config, error) {
	cfg := types.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault(cfgKeyCacheDirName, cfg.CacheDirName)
	v.SetDefault(cfgKeyDatabaseFile, cfg.DatabaseFile)
	v.SetDefault(cfgKeyConnectAttempts, cfg.ConnectAttempts)
	v.SetDefault(cfgKeyRetryBaseDelay, cfg.RetryBaseDelay)
	v.SetDefault(cfgKeyRetryMaxDelay, cfg.RetryMaxDelay)
	v.SetDefault(cfgKeyBusyTimeout, cfg.BusyTimeout)

	if err := v.ReadInConfig(); err != nil {
		return types.Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.CacheDirName = v.GetString(cfgKeyCacheDirName)
	cfg.DatabaseFile = v.GetString(cfgKeyDatabaseFile)
	cfg.ConnectAttempts = v.GetUint(cfgKeyConnectAttempts)
	cfg.RetryBaseDelay = v.GetDuration(cfgKeyRetryBaseDelay)
	cfg.RetryMaxDelay = v.GetDuration(cfgKeyRetryMaxDelay)
	cfg.BusyTimeout = v.GetDuration(cfgKeyBusyTimeout)

	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
