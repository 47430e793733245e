package geocode

import (
	"context"
	"errors"
	"log/slog"
)

// HybridResolver hides provider selection and failure handling behind a
// single forward/reverse interface. It applies a degrade-once policy: the
// primary is tried first and, on failure, the fallback is tried exactly once.
type HybridResolver struct {
	primary  Provider
	fallback Provider

	// primaryAvailable is decided once at construction.
	primaryAvailable bool
}

// NewHybridResolver composes the two providers. primary may be nil, or may
// implement Availability and report itself unavailable (e.g. a missing API
// key or a nil *Mapbox); the resolver then always goes straight to the
// fallback.
func NewHybridResolver(primary, fallback Provider) *HybridResolver {
	available := primary != nil
	if a, ok := primary.(Availability); ok && available {
		available = a.Available()
	}

	return &HybridResolver{primary: primary, fallback: fallback, primaryAvailable: available}
}

func (r *HybridResolver) PrimaryAvailable() bool {
	return r.primaryAvailable
}

// ForwardSearch never fails on a single provider outage. When both providers
// fail it returns an empty, non-nil list together with
// ErrAllProvidersUnavailable so the caller can tell "error" from "no
// matches". Queries that are too short return an empty list without touching
// any provider.
func (r *HybridResolver) ForwardSearch(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	if !q.Valid() {
		return []Candidate{}, nil
	}

	var errs []error
	for _, p := range r.chain() {
		candidates, err := p.ForwardSearch(ctx, q)
		if err == nil {
			if candidates == nil {
				candidates = []Candidate{}
			}
			return candidates, nil
		}

		slog.WarnContext(ctx, "forward search failed", "provider", p.Name(), "error", err.Error())
		errs = append(errs, err)
	}

	return []Candidate{}, allUnavailable(errs)
}

// ReverseSearch always returns displayable text. When both providers fail the
// text is the coordinate label and the error is ErrAllProvidersUnavailable;
// callers are expected to show the text regardless.
func (r *HybridResolver) ReverseSearch(ctx context.Context, lat, lng float64) (string, error) {
	var errs []error
	for _, p := range r.chain() {
		address, err := p.ReverseSearch(ctx, lat, lng)
		if err == nil && address != "" {
			return address, nil
		}

		if err == nil {
			err = errors.New("empty address")
		}

		slog.WarnContext(ctx, "reverse search failed", "provider", p.Name(), "error", err.Error())
		errs = append(errs, err)
	}

	return CoordinatesLabel(lat, lng), allUnavailable(errs)
}

func (r *HybridResolver) chain() []Provider {
	chain := make([]Provider, 0, 2)
	if r.primaryAvailable {
		chain = append(chain, r.primary)
	}
	if r.fallback != nil {
		chain = append(chain, r.fallback)
	}

	return chain
}

func allUnavailable(errs []error) error {
	return errors.Join(append([]error{ErrAllProvidersUnavailable}, errs...)...)
}
