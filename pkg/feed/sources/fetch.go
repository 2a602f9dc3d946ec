package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultFetchTimeout is the hard per-request timeout.
	DefaultFetchTimeout = 10 * time.Second

	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 1 << 20
)

// Client issues one bounded-timeout request per source and parses the
// response into the canonical record shape. It never retries: trying the
// next source is the refresh pass's concern, not the pipeline's.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a fetch client. A non-positive timeout falls back to
// DefaultFetchTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Client{
		// The context deadline below bounds each request; the http.Client
		// carries no timeout of its own so late responses are discarded by
		// cancellation rather than by a second clock.
		http:    &http.Client{},
		timeout: timeout,
	}
}

// Fetch performs a single attempt against the descriptor. Synthetic
// descriptors are constructed directly without touching the network.
// Failures are classified as ErrTimeout, ErrUnreachable or
// ErrInvalidResponse.
func (c *Client) Fetch(ctx context.Context, d Descriptor) (PriceRecord, error) {
	if d.Synthetic() {
		return d.Parse(nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("%w: %s: %v", ErrUnreachable, d.Name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return PriceRecord{}, fmt.Errorf("%w: %s after %s", ErrTimeout, d.Name, c.timeout)
		}
		return PriceRecord{}, fmt.Errorf("%w: %s: %v", ErrUnreachable, d.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PriceRecord{}, fmt.Errorf("%w: %s returned status %d", ErrUnreachable, d.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return PriceRecord{}, fmt.Errorf("%w: %s while reading body", ErrTimeout, d.Name)
		}
		return PriceRecord{}, fmt.Errorf("%w: %s: %v", ErrUnreachable, d.Name, err)
	}

	rec, err := d.Parse(body)
	if err != nil {
		if errors.Is(err, ErrInvalidResponse) {
			return PriceRecord{}, err
		}
		return PriceRecord{}, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, d.Name, err)
	}
	if err := rec.Validate(); err != nil {
		return PriceRecord{}, err
	}
	return rec, nil
}
