package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional config file plus the env vars
// spec.md §6 names, applying the documented defaults (spec.md §6, §4.8).
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")
	viper.AutomaticEnv()

	viper.SetDefault("ocpp.host", "0.0.0.0")
	viper.SetDefault("ocpp.port", 9000)
	viper.SetDefault("ocpp.call_timeout", 30*time.Second)
	viper.SetDefault("ocpp.default_heartbeat_interval", 300)
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("database.pool_size", 10)
	viper.SetDefault("database.max_overflow", 20)
	viper.SetDefault("database.pool_timeout", 30*time.Second)
	viper.SetDefault("database.pool_recycle", 3600*time.Second)
	viper.SetDefault("redis.id_tag_cache_ttl", 5*time.Second)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("prometheus.port", 9100)
	viper.SetDefault("circuit_breaker.failure_threshold", 5)
	viper.SetDefault("circuit_breaker.timeout", 30*time.Second)

	viper.BindEnv("ocpp.host", "OCPP_HOST")
	viper.BindEnv("ocpp.port", "OCPP_PORT")
	viper.BindEnv("ocpp.call_timeout", "OCPP_CALL_TIMEOUT")
	viper.BindEnv("ocpp.default_heartbeat_interval", "DEFAULT_HEARTBEAT_INTERVAL")
	viper.BindEnv("http.port", "HTTP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.pool_size", "DB_POOL_SIZE")
	viper.BindEnv("database.max_overflow", "DB_MAX_OVERFLOW")
	viper.BindEnv("database.pool_timeout", "DB_POOL_TIMEOUT")
	viper.BindEnv("database.pool_recycle", "DB_POOL_RECYCLE")
	viper.BindEnv("redis.url", "REDIS_URL")
	viper.BindEnv("redis.id_tag_cache_ttl", "ID_TAG_CACHE_TTL")
	viper.BindEnv("nats.url", "NATS_URL")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("prometheus.port", "PROMETHEUS_PORT")
	viper.BindEnv("circuit_breaker.failure_threshold", "CIRCUIT_BREAKER_FAILURE_THRESHOLD")
	viper.BindEnv("circuit_breaker.timeout", "CIRCUIT_BREAKER_TIMEOUT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
