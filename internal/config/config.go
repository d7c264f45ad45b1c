package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	Network         string
	RegistryAddress string
	APIURL          string
	User            string
	BaseTokenSymbol string
	CacheFile       string
	RedisAddr       string
	PGDSN           string
	Out             string
	PollInterval    time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "mainnet")
	v.SetDefault("base-token", "BNT")
	v.SetDefault("cache-file", "./data/cache.json")
	v.SetDefault("out", "./data/snapshots.jsonl")
	v.SetDefault("poll-interval", 15*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		Network:         v.GetString("network"),
		RegistryAddress: v.GetString("registry"),
		APIURL:          v.GetString("api-url"),
		User:            v.GetString("user"),
		BaseTokenSymbol: v.GetString("base-token"),
		CacheFile:       v.GetString("cache-file"),
		RedisAddr:       v.GetString("redis-addr"),
		PGDSN:           v.GetString("pg-dsn"),
		Out:             v.GetString("out"),
		PollInterval:    v.GetDuration("poll-interval"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}
