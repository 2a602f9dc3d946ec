package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
)

// Validate checks the configuration for consistency before the engine starts.
func Validate(cfg *Config) error {
	if cfg.Pair.Base == "" || cfg.Pair.Quote == "" {
		return fmt.Errorf("%w", ErrMissingPair)
	}

	price, err := decimal.NewFromString(cfg.Engine.FallbackPrice)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFallbackPrice, cfg.Engine.FallbackPrice)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidFallbackPrice, price)
	}

	enabled := cfg.EnabledSources()
	if len(enabled) == 0 {
		return fmt.Errorf("%w", ErrNoSources)
	}

	seen := make(map[string]bool, len(enabled))
	for _, sc := range enabled {
		name := strings.ToLower(sc.Name)
		if name == "" {
			return fmt.Errorf("%w: empty name", ErrDuplicateSource)
		}
		if seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, sc.Name)
		}
		seen[name] = true

		if sc.URL == "" {
			return fmt.Errorf("%w: %s", ErrMissingSourceURL, sc.Name)
		}
		if sc.RequestsPerMinute <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidBudget, sc.Name)
		}
		if sc.Priority <= 0 || sc.Priority >= sources.FallbackPriority {
			return fmt.Errorf("%w: %s has priority %d", ErrInvalidPriority, sc.Name, sc.Priority)
		}
	}

	switch cfg.Storage.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Storage.Backend)
	}

	return nil
}
