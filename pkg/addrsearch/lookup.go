// Package addrsearch binds geocoding to an interactive address field: a
// debounced text query with suggestions, and a draggable map marker whose
// position is resolved back into text.
package addrsearch

import (
	"context"

	"github.com/manzanit0/geosearch/pkg/geocache"
	"github.com/manzanit0/geosearch/pkg/geocode"
)

// Resolver is satisfied by *geocode.HybridResolver.
type Resolver interface {
	ForwardSearch(ctx context.Context, q geocode.SearchQuery) ([]geocode.Candidate, error)
	ReverseSearch(ctx context.Context, lat, lng float64) (string, error)
}

// Lookup puts the result cache in front of the resolver. The cache is
// checked first and only populated after a successful resolution.
type Lookup struct {
	resolver Resolver
	cache    *geocache.Cache
}

func NewLookup(resolver Resolver, cache *geocache.Cache) *Lookup {
	if cache == nil {
		cache = geocache.New()
	}

	return &Lookup{resolver: resolver, cache: cache}
}

// Forward returns candidates for q. Short queries yield an empty list without
// touching the cache or the resolver. The error is only ever the resolver's
// "all providers unavailable" flag, and such results are not cached.
func (l *Lookup) Forward(ctx context.Context, q geocode.SearchQuery) ([]geocode.Candidate, error) {
	if !q.Valid() {
		return []geocode.Candidate{}, nil
	}

	if candidates, ok := l.cache.Candidates(ctx, q); ok {
		return candidates, nil
	}

	candidates, err := l.resolver.ForwardSearch(ctx, q)
	if err != nil {
		return []geocode.Candidate{}, err
	}

	l.cache.PutCandidates(ctx, q, candidates)
	return geocode.CloneCandidates(candidates), nil
}

// Reverse always returns displayable text. Coordinate-label fallbacks are
// returned with the resolver's error and are not cached, so a later drag to
// the same point can still get a real address.
func (l *Lookup) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	if address, ok := l.cache.Address(ctx, lat, lng); ok {
		return address, nil
	}

	address, err := l.resolver.ReverseSearch(ctx, lat, lng)
	if address == "" {
		address = geocode.CoordinatesLabel(lat, lng)
	}

	if err != nil {
		return address, err
	}

	l.cache.PutAddress(ctx, lat, lng, address)
	return address, nil
}

func (l *Lookup) Cache() *geocache.Cache {
	return l.cache
}
