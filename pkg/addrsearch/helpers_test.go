package addrsearch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/manzanit0/geosearch/pkg/addrsearch"
	"github.com/manzanit0/geosearch/pkg/debounce"
	"github.com/manzanit0/geosearch/pkg/geocache"
	"github.com/manzanit0/geosearch/pkg/geocode"
)

var errDown = errors.Join(geocode.ErrProviderUnavailable, errors.New("connection refused"))

type fakeProvider struct {
	name    string
	forward func(q geocode.SearchQuery) ([]geocode.Candidate, error)
	reverse func(lat, lng float64) (string, error)

	forwardCalls atomic.Int32
	reverseCalls atomic.Int32
	lastQuery    atomic.Value
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) ForwardSearch(_ context.Context, q geocode.SearchQuery) ([]geocode.Candidate, error) {
	p.forwardCalls.Add(1)
	p.lastQuery.Store(q.Text)
	if p.forward == nil {
		return []geocode.Candidate{}, nil
	}
	return p.forward(q)
}

func (p *fakeProvider) ReverseSearch(_ context.Context, lat, lng float64) (string, error) {
	p.reverseCalls.Add(1)
	if p.reverse == nil {
		return "", nil
	}
	return p.reverse(lat, lng)
}

func downProvider(name string) *fakeProvider {
	return &fakeProvider{
		name: name,
		forward: func(geocode.SearchQuery) ([]geocode.Candidate, error) {
			return nil, errDown
		},
		reverse: func(float64, float64) (string, error) {
			return "", errDown
		},
	}
}

var medellinCandidates = []geocode.Candidate{
	{ID: "c1", DisplayName: "Calle 10, El Poblado, Medellín", Coordinates: geocode.Coordinates{Lat: 6.2087, Lng: -75.5686}},
	{ID: "c2", DisplayName: "Calle 10 Sur, Medellín", Coordinates: geocode.Coordinates{Lat: 6.1952, Lng: -75.5779}},
	{ID: "c3", DisplayName: "Calle 10A, Envigado", Coordinates: geocode.Coordinates{Lat: 6.1701, Lng: -75.5868}},
}

func newTestSession(t *testing.T, primary, fallback geocode.Provider, opts ...addrsearch.SessionOption) (*addrsearch.Session, *debounce.ManualScheduler) {
	t.Helper()

	sched := debounce.NewManualScheduler()
	lookup := addrsearch.NewLookup(geocode.NewHybridResolver(primary, fallback), geocache.New())

	s := addrsearch.NewSession(lookup, append([]addrsearch.SessionOption{addrsearch.WithScheduler(sched)}, opts...)...)
	t.Cleanup(s.Close)

	return s, sched
}
