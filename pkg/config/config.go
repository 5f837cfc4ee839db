package config

import "time"

// Config is the process configuration, populated by Load from env vars
// (spec.md §6, SPEC_FULL.md §6).
type Config struct {
	OCPP           OCPPConfig           `mapstructure:"ocpp"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	NATS           NATSConfig           `mapstructure:"nats"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type OCPPConfig struct {
	Host                     string        `mapstructure:"host"`
	Port                     int           `mapstructure:"port"`
	CallTimeout              time.Duration `mapstructure:"call_timeout"`
	DefaultHeartbeatInterval int           `mapstructure:"default_heartbeat_interval"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig mirrors the SQLAlchemy-style pool knobs spec.md §6 carries
// over from the original implementation: PoolSize is the steady-state
// connection count, MaxOverflow the burst allowance above it.
type DatabaseConfig struct {
	URL         string        `mapstructure:"url"`
	PoolSize    int           `mapstructure:"pool_size"`
	MaxOverflow int           `mapstructure:"max_overflow"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	PoolRecycle time.Duration `mapstructure:"pool_recycle"`
}

type RedisConfig struct {
	URL           string        `mapstructure:"url"`
	IdTagCacheTTL time.Duration `mapstructure:"id_tag_cache_ttl"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type PrometheusConfig struct {
	Port int `mapstructure:"port"`
}

type CircuitBreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}
