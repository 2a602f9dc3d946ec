package config

import "time"

// Config is the root configuration structure
type Config struct {
	Pair    PairConfig     `yaml:"pair"`
	Engine  EngineConfig   `yaml:"engine"`
	Sources []SourceConfig `yaml:"sources"`
	Storage StorageConfig  `yaml:"storage"`
	Server  ServerConfig   `yaml:"server"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Logging LoggingConfig  `yaml:"logging"`
}

// PairConfig names the single traded pair the engine serves.
type PairConfig struct {
	Base  string `yaml:"base"`  // asset symbol, e.g. "ICP"
	Quote string `yaml:"quote"` // fiat symbol, e.g. "USD"
}

// EngineConfig configures the refresh engine.
type EngineConfig struct {
	RefreshInterval Duration `yaml:"refresh_interval"` // timer-driven refresh cadence
	CacheTTL        Duration `yaml:"cache_ttl"`        // staleness threshold for the cached record
	FetchTimeout    Duration `yaml:"fetch_timeout"`    // hard per-source request timeout
	FallbackPrice   string   `yaml:"fallback_price"`   // constant used by the synthetic terminal source
}

// SourceConfig configures an upstream price source.
type SourceConfig struct {
	Name              string `yaml:"name"`
	URL               string `yaml:"url"`
	Symbol            string `yaml:"symbol"` // source-specific asset identifier
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Priority          int    `yaml:"priority"`
	Enabled           bool   `yaml:"enabled"`
}

// StorageConfig configures the persistence facade.
type StorageConfig struct {
	Backend string      `yaml:"backend"` // "redis" or "memory"
	Key     string      `yaml:"key"`     // fixed key the latest record is stored under
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures the WebSocket server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
