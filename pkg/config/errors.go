package config

import "errors"

var (
	// ErrMissingPair indicates that the trading pair is not configured.
	ErrMissingPair = errors.New("pair base and quote are required")
	// ErrNoSources indicates that no enabled source is configured.
	ErrNoSources = errors.New("at least one enabled source is required")
	// ErrDuplicateSource indicates two sources share a name.
	ErrDuplicateSource = errors.New("duplicate source name")
	// ErrInvalidBudget indicates a non-positive per-minute request budget.
	ErrInvalidBudget = errors.New("requests_per_minute must be positive")
	// ErrInvalidPriority indicates a source priority outside the allowed range.
	ErrInvalidPriority = errors.New("source priority must be positive and below the fallback priority")
	// ErrInvalidFallbackPrice indicates a missing or non-positive fallback price.
	ErrInvalidFallbackPrice = errors.New("fallback_price must be a positive decimal")
	// ErrMissingSourceURL indicates an enabled source without a fetch URL.
	ErrMissingSourceURL = errors.New("source url is required")
	// ErrUnknownBackend indicates an unsupported storage backend.
	ErrUnknownBackend = errors.New("storage backend must be 'redis' or 'memory'")
)
