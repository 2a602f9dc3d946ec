package sources

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Registry holds the ordered list of upstream descriptors, terminated by
// the synthetic fallback source. The order is total: descriptors are
// stable-sorted by priority, so equal priorities keep registration order.
type Registry struct {
	real          []Descriptor
	fallback      Descriptor
	fallbackPrice decimal.Decimal
	now           func() time.Time
}

// NewRegistry builds a registry from the given real sources plus a terminal
// fallback constructed from the constant price. Real descriptors must carry
// a positive request budget and a priority below FallbackPriority.
func NewRegistry(fallbackPrice decimal.Decimal, real ...Descriptor) (*Registry, error) {
	if !fallbackPrice.IsPositive() {
		return nil, fmt.Errorf("%w: fallback price %s is not positive", ErrInvalidRegistry, fallbackPrice)
	}

	seen := make(map[string]bool, len(real))
	for _, d := range real {
		if d.Name == "" || d.Parse == nil {
			return nil, fmt.Errorf("%w: descriptor missing name or parser", ErrInvalidRegistry)
		}
		if strings.EqualFold(d.Name, FallbackName) {
			return nil, fmt.Errorf("%w: %q is reserved for the terminal source", ErrInvalidRegistry, FallbackName)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("%w: duplicate source %s", ErrInvalidRegistry, d.Name)
		}
		seen[d.Name] = true
		if d.Synthetic() {
			return nil, fmt.Errorf("%w: real source %s has no locator", ErrInvalidRegistry, d.Name)
		}
		if d.RequestsPerMinute <= 0 {
			return nil, fmt.Errorf("%w: source %s has no request budget", ErrInvalidRegistry, d.Name)
		}
		if d.Priority >= FallbackPriority {
			return nil, fmt.Errorf("%w: source %s priority %d does not sort before the fallback", ErrInvalidRegistry, d.Name, d.Priority)
		}
	}

	r := &Registry{
		real:          make([]Descriptor, len(real)),
		fallbackPrice: fallbackPrice,
		now:           time.Now,
	}
	copy(r.real, real)
	sort.SliceStable(r.real, func(i, j int) bool {
		return r.real[i].Priority < r.real[j].Priority
	})

	r.fallback = Descriptor{
		Name:     FallbackName,
		Priority: FallbackPriority,
		Parse: func([]byte) (PriceRecord, error) {
			return r.FallbackRecord(), nil
		},
	}

	return r, nil
}

// Real returns the non-fallback descriptors in walk order.
func (r *Registry) Real() []Descriptor {
	out := make([]Descriptor, len(r.real))
	copy(out, r.real)
	return out
}

// All returns every descriptor in walk order, fallback last.
func (r *Registry) All() []Descriptor {
	return append(r.Real(), r.fallback)
}

// Fallback returns the synthetic terminal descriptor.
func (r *Registry) Fallback() Descriptor {
	return r.fallback
}

// ByName looks up a descriptor, including the fallback, by name.
func (r *Registry) ByName(name string) (Descriptor, bool) {
	for _, d := range r.real {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	if strings.EqualFold(name, FallbackName) {
		return r.fallback, true
	}
	return Descriptor{}, false
}

// FallbackRecord constructs the constant record the terminal source
// produces. It cannot fail; change, cap and volume are zero.
func (r *Registry) FallbackRecord() PriceRecord {
	return PriceRecord{
		Price:      r.fallbackPrice,
		ObservedAt: r.now(),
		Source:     FallbackName,
	}
}
