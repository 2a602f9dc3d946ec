package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
pair:
  base: ICP
  quote: USD

engine:
  refresh_interval: 90s
  cache_ttl: 3m
  fetch_timeout: 5s
  fallback_price: "5.00"

sources:
  - name: CoinGecko
    url: https://api.coingecko.com/api/v3/simple/price
    symbol: internet-computer
    requests_per_minute: 10
    priority: 1
    enabled: true
  - name: CoinMarketCap
    url: https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest?CMC_PRO_API_KEY=${TEST_CMC_KEY}
    symbol: ICP
    requests_per_minute: 30
    priority: 2
    enabled: true
  - name: CryptoCompare
    url: https://min-api.cryptocompare.com/data/pricemultifull
    symbol: ICP
    requests_per_minute: 50
    priority: 3
    enabled: false

storage:
  backend: memory
  key: "ratefeed:latest"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_CMC_KEY", "secret-key")

	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "ICP", cfg.Pair.Base)
	assert.Equal(t, "USD", cfg.Pair.Quote)
	assert.Equal(t, 90*time.Second, cfg.Engine.RefreshInterval.ToDuration())
	assert.Equal(t, 3*time.Minute, cfg.Engine.CacheTTL.ToDuration())
	assert.Equal(t, "5.00", cfg.Engine.FallbackPrice)

	require.Len(t, cfg.Sources, 3)
	assert.Contains(t, cfg.Sources[1].URL, "CMC_PRO_API_KEY=secret-key",
		"environment variables must be expanded")

	enabled := cfg.EnabledSources()
	require.Len(t, enabled, 2)
	assert.Equal(t, "CoinGecko", enabled[0].Name)
	assert.Equal(t, "CoinMarketCap", enabled[1].Name)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pair:\n  base: ICP\n"))
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Pair.Quote)
	assert.Equal(t, 2*time.Minute, cfg.Engine.RefreshInterval.ToDuration())
	assert.Equal(t, 2*time.Minute, cfg.Engine.CacheTTL.ToDuration())
	assert.Equal(t, 10*time.Second, cfg.Engine.FetchTimeout.ToDuration())
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "ratefeed:latest", cfg.Storage.Key)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "pair: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "engine:\n  cache_ttl: sometimes\n"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Pair: PairConfig{Base: "ICP", Quote: "USD"},
		Engine: EngineConfig{
			FallbackPrice: "5.00",
		},
		Sources: []SourceConfig{
			{Name: "CoinGecko", URL: "https://example.com", RequestsPerMinute: 10, Priority: 1, Enabled: true},
		},
		Storage: StorageConfig{Backend: "memory"},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing base", func(c *Config) { c.Pair.Base = "" }, ErrMissingPair},
		{"missing fallback price", func(c *Config) { c.Engine.FallbackPrice = "" }, ErrInvalidFallbackPrice},
		{"zero fallback price", func(c *Config) { c.Engine.FallbackPrice = "0" }, ErrInvalidFallbackPrice},
		{"no enabled sources", func(c *Config) { c.Sources[0].Enabled = false }, ErrNoSources},
		{"duplicate names", func(c *Config) {
			dup := c.Sources[0]
			dup.Name = "coingecko"
			c.Sources = append(c.Sources, dup)
		}, ErrDuplicateSource},
		{"missing url", func(c *Config) { c.Sources[0].URL = "" }, ErrMissingSourceURL},
		{"zero budget", func(c *Config) { c.Sources[0].RequestsPerMinute = 0 }, ErrInvalidBudget},
		{"zero priority", func(c *Config) { c.Sources[0].Priority = 0 }, ErrInvalidPriority},
		{"priority at fallback rank", func(c *Config) { c.Sources[0].Priority = 999 }, ErrInvalidPriority},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "etcd" }, ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}
