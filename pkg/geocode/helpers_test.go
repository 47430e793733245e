package geocode_test

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/manzanit0/geosearch/pkg/geocode"
	"github.com/manzanit0/geosearch/pkg/whttp"
)

type fakeProvider struct {
	name      string
	available bool
	forward   func(q geocode.SearchQuery) ([]geocode.Candidate, error)
	reverse   func(lat, lng float64) (string, error)

	forwardCalls atomic.Int32
	reverseCalls atomic.Int32
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Available() bool { return p.available }

func (p *fakeProvider) ForwardSearch(_ context.Context, q geocode.SearchQuery) ([]geocode.Candidate, error) {
	p.forwardCalls.Add(1)
	return p.forward(q)
}

func (p *fakeProvider) ReverseSearch(_ context.Context, lat, lng float64) (string, error) {
	p.reverseCalls.Add(1)
	return p.reverse(lat, lng)
}

func newTestOptions(t *testing.T, srv *httptest.Server) []geocode.Option {
	t.Helper()
	return []geocode.Option{
		geocode.WithBaseURL(srv.URL),
		geocode.WithFetcher(whttp.NewFetcher(srv.Client())),
	}
}
