// Package sources provides upstream source descriptors, response parsers
// and the one-shot fetch pipeline.
package sources

import "errors"

var (
	// ErrTimeout indicates that the request exceeded its hard timeout.
	ErrTimeout = errors.New("source request timed out")
	// ErrUnreachable indicates a network failure or a non-success HTTP status.
	ErrUnreachable = errors.New("source unreachable")
	// ErrInvalidResponse indicates a response missing required numeric fields.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrRateLimited indicates a local admission denial.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrUnknownSource indicates a source name not present in the registry.
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidRegistry indicates an inconsistent registry configuration.
	ErrInvalidRegistry = errors.New("invalid source registry")
)

// Classify maps a fetch error onto its metric class.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "other"
	}
}
