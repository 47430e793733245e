package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/manzanit0/geosearch/cmd/addressd/api"
	"github.com/manzanit0/geosearch/pkg/addrsearch"
	"github.com/manzanit0/geosearch/pkg/debounce"
	"github.com/manzanit0/geosearch/pkg/geocache"
	"github.com/manzanit0/geosearch/pkg/geocode"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errDown = errors.Join(geocode.ErrProviderUnavailable, errors.New("connection refused"))

type fakeProvider struct {
	candidates []geocode.Candidate
	address    string
	down       bool

	forwardCalls atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) ForwardSearch(context.Context, geocode.SearchQuery) ([]geocode.Candidate, error) {
	p.forwardCalls.Add(1)
	if p.down {
		return nil, errDown
	}
	return p.candidates, nil
}

func (p *fakeProvider) ReverseSearch(context.Context, float64, float64) (string, error) {
	if p.down {
		return "", errDown
	}
	return p.address, nil
}

var candidates = []geocode.Candidate{
	{ID: "c1", DisplayName: "Calle 10, El Poblado, Medellín", Coordinates: geocode.Coordinates{Lat: 6.2087, Lng: -75.5686}},
	{ID: "c2", DisplayName: "Calle 10 Sur, Medellín", Coordinates: geocode.Coordinates{Lat: 6.1952, Lng: -75.5779}},
}

type fixture struct {
	router   *gin.Engine
	sched    *debounce.ManualScheduler
	sessions *addrsearch.Registry
}

func newFixture(t *testing.T, primary, fallback geocode.Provider) *fixture {
	t.Helper()

	sched := debounce.NewManualScheduler()
	resolver := geocode.NewHybridResolver(primary, fallback)
	lookup := addrsearch.NewLookup(resolver, geocache.New())
	sessions := addrsearch.NewRegistry(func(_ string, opts ...addrsearch.SessionOption) *addrsearch.Session {
		return addrsearch.NewSession(lookup, append([]addrsearch.SessionOption{addrsearch.WithScheduler(sched)}, opts...)...)
	})
	t.Cleanup(sessions.CloseAll)

	r := gin.New()
	api.Register(r, resolver, lookup, sessions)

	return &fixture{router: r, sched: sched, sessions: sessions}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// settle lets the debounce elapse and waits for the session's lookups.
func (f *fixture) settle(t *testing.T, id string) {
	t.Helper()

	f.sched.Advance(addrsearch.DefaultQuietPeriod)
	s, ok := f.sessions.Get(id)
	require.True(t, ok)
	s.Wait()
}

type sessionBody struct {
	ID    string              `json:"id"`
	State addrsearch.Snapshot `json:"state"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
