package geocode_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manzanit0/geosearch/pkg/geocode"
)

const mapboxForwardBody = `{
	"type": "FeatureCollection",
	"features": [
		{
			"id": "address.1",
			"text": "Carrera 80",
			"address": "45-23",
			"place_name": "Carrera 80 45-23, Laureles, Medellín, Antioquia, Colombia",
			"center": [-75.5972, 6.2489],
			"context": [
				{"id": "neighborhood.11", "text": "Laureles"},
				{"id": "postcode.12", "text": "050031"},
				{"id": "place.13", "text": "Medellín"},
				{"id": "region.14", "text": "Antioquia"},
				{"id": "country.15", "text": "Colombia"}
			]
		},
		{
			"id": "address.2",
			"text": "Carrera 80",
			"place_name": "Carrera 80, Medellín, Antioquia, Colombia",
			"center": [-75.6011, 6.2401],
			"context": [{"id": "place.13", "text": "Medellín"}]
		},
		{
			"id": "broken.3",
			"text": "No center",
			"place_name": "No center"
		}
	]
}`

func TestMapboxForwardSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/geocoding/v5/mapbox.places/"))
		assert.True(t, strings.HasSuffix(r.URL.Path, ".json"))
		assert.Contains(t, r.URL.Path, "Carrera 80 #45-23")

		q := r.URL.Query()
		assert.Equal(t, "test-token", q.Get("access_token"))
		assert.Equal(t, "co", q.Get("country"))
		assert.Equal(t, "es", q.Get("language"))
		assert.Equal(t, "6", q.Get("limit"))
		assert.Equal(t, "-75.581200,6.244200", q.Get("proximity"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, mapboxForwardBody)
	}))
	defer srv.Close()

	m := geocode.NewMapbox("test-token", newTestOptions(t, srv)...)

	got, err := m.ForwardSearch(context.Background(), geocode.NewSearchQuery("Carrera 80   #45-23", nil))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "address.1", got[0].ID)
	assert.Equal(t, "Carrera 80 45-23", got[0].ShortLabel)
	assert.Equal(t, "Carrera 80 45-23, Laureles, Medellín, Antioquia, Colombia", got[0].DisplayName)
	assert.InDelta(t, 6.2489, got[0].Coordinates.Lat, 1e-9)
	assert.InDelta(t, -75.5972, got[0].Coordinates.Lng, 1e-9)
	assert.Equal(t, []string{"Laureles", "Medellín", "Antioquia", "Colombia"}, got[0].RegionContext)
	assert.Equal(t, "mapbox", got[0].Provider)

	assert.Equal(t, "Carrera 80", got[1].ShortLabel)
	assert.Equal(t, []string{"Medellín"}, got[1].RegionContext)
}

func TestMapboxForwardSearchUsesQueryProximity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-74.081700,4.609700", r.URL.Query().Get("proximity"))
		_, _ = io.WriteString(w, `{"features": []}`)
	}))
	defer srv.Close()

	m := geocode.NewMapbox("test-token", newTestOptions(t, srv)...)

	got, err := m.ForwardSearch(context.Background(), geocode.NewSearchQuery("Calle 100", &geocode.Coordinates{Lat: 4.6097, Lng: -74.0817}))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestMapboxForwardSearchShortQuery(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	m := geocode.NewMapbox("test-token", newTestOptions(t, srv)...)

	_, err := m.ForwardSearch(context.Background(), geocode.NewSearchQuery("Me", nil))
	assert.ErrorIs(t, err, geocode.ErrInvalidQuery)
	assert.Zero(t, calls.Load())
}

func TestMapboxFailuresAreProviderUnavailable(t *testing.T) {
	testCases := []struct {
		desc    string
		handler http.HandlerFunc
	}{
		{
			desc: "unauthorized token",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message": "Not Authorized - Invalid Token"}`)
			},
		},
		{
			desc: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			desc: "garbage payload",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `<html>`)
			},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			srv := httptest.NewServer(tC.handler)
			defer srv.Close()

			m := geocode.NewMapbox("test-token", newTestOptions(t, srv)...)

			got, err := m.ForwardSearch(context.Background(), geocode.NewSearchQuery("Calle 100", nil))
			assert.ErrorIs(t, err, geocode.ErrProviderUnavailable)
			assert.Nil(t, got)

			address, err := m.ReverseSearch(context.Background(), 4.0, -75.0)
			assert.ErrorIs(t, err, geocode.ErrProviderUnavailable)
			assert.Empty(t, address)
		})
	}
}

func TestMapboxReverseSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v5/mapbox.places/-74.081700,4.609700.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		_, _ = io.WriteString(w, `{"features": [{"id": "address.9", "place_name": "Carrera 7 #24-89, Bogotá, Colombia", "center": [-74.0817, 4.6097]}]}`)
	}))
	defer srv.Close()

	m := geocode.NewMapbox("test-token", newTestOptions(t, srv)...)

	got, err := m.ReverseSearch(context.Background(), 4.6097, -74.0817)
	require.NoError(t, err)
	assert.Equal(t, "Carrera 7 #24-89, Bogotá, Colombia", got)
}

func TestMapboxReverseSearchNoAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features": []}`)
	}))
	defer srv.Close()

	m := geocode.NewMapbox("test-token", newTestOptions(t, srv)...)

	got, err := m.ReverseSearch(context.Background(), 6.2442, -75.5812)
	require.NoError(t, err)
	assert.Equal(t, "6.244200, -75.581200", got)
}

func TestMapboxAvailability(t *testing.T) {
	assert.False(t, geocode.NewMapbox("").Available())
	assert.True(t, geocode.NewMapbox("pk.token").Available())

	var unset *geocode.Mapbox
	assert.False(t, unset.Available())
}
