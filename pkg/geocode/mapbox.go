package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const mapboxURL = "https://api.mapbox.com"

// mapboxContextOrder lists the context layers kept in RegionContext, most
// specific first.
var mapboxContextOrder = []string{"neighborhood", "locality", "place", "region", "country"}

// Mapbox is the keyed primary provider backed by the Mapbox Places API.
type Mapbox struct {
	token string
	cfg   providerConfig
}

var (
	_ Provider     = (*Mapbox)(nil)
	_ Availability = (*Mapbox)(nil)
)

// NewMapbox builds the primary provider. An empty token is accepted: the
// provider then reports itself unavailable and the resolver skips it.
func NewMapbox(token string, opts ...Option) *Mapbox {
	return &Mapbox{token: token, cfg: newProviderConfig(mapboxURL, opts)}
}

func (m *Mapbox) Name() string { return "mapbox" }

// Available is false for a nil *Mapbox, so a typed nil passed as the primary
// is skipped like a missing token.
func (m *Mapbox) Available() bool { return m != nil && m.token != "" }

func (m *Mapbox) ForwardSearch(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	if !q.Valid() {
		return nil, ErrInvalidQuery
	}

	p := m.cfg.proximity(q)
	params := url.Values{
		"access_token": {m.token},
		"autocomplete": {"true"},
		"limit":        {strconv.Itoa(m.cfg.limit)},
		"proximity":    {fmt.Sprintf("%f,%f", p.Lng, p.Lat)},
	}
	if m.cfg.country != "" {
		params.Set("country", m.cfg.country)
	}
	if m.cfg.language != "" {
		params.Set("language", m.cfg.language)
	}

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		strings.TrimRight(m.cfg.baseURL, "/"), url.PathEscape(q.Text), params.Encode())

	var res mapboxResponse
	if err := m.cfg.fetcher.GetJSON(ctx, endpoint, &res); err != nil {
		return nil, fmt.Errorf("%w: mapbox forward search: %w", ErrProviderUnavailable, err)
	}

	candidates := make([]Candidate, 0, len(res.Features))
	for _, f := range res.Features {
		c, ok := f.candidate()
		if !ok {
			continue
		}

		candidates = append(candidates, c)
		if len(candidates) == m.cfg.limit {
			break
		}
	}

	return candidates, nil
}

func (m *Mapbox) ReverseSearch(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{
		"access_token": {m.token},
		"limit":        {"1"},
		"types":        {"address,poi,neighborhood,place"},
	}
	if m.cfg.language != "" {
		params.Set("language", m.cfg.language)
	}

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?%s",
		strings.TrimRight(m.cfg.baseURL, "/"), lng, lat, params.Encode())

	var res mapboxResponse
	if err := m.cfg.fetcher.GetJSON(ctx, endpoint, &res); err != nil {
		return "", fmt.Errorf("%w: mapbox reverse search: %w", ErrProviderUnavailable, err)
	}

	for _, f := range res.Features {
		if name := strings.TrimSpace(f.PlaceName); name != "" {
			return name, nil
		}
	}

	return CoordinatesLabel(lat, lng), nil
}

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

type mapboxFeature struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Address   string    `json:"address"`
	PlaceName string    `json:"place_name"`
	Center    []float64 `json:"center"`
	Context   []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"context"`
}

func (f mapboxFeature) candidate() (Candidate, bool) {
	// center is [lng, lat]
	if len(f.Center) != 2 || f.PlaceName == "" {
		return Candidate{}, false
	}

	short := f.Text
	if f.Address != "" {
		short = fmt.Sprintf("%s %s", f.Text, f.Address)
	}

	layers := make(map[string]string, len(f.Context))
	for _, c := range f.Context {
		layer, _, _ := strings.Cut(c.ID, ".")
		layers[layer] = c.Text
	}

	var region []string
	for _, layer := range mapboxContextOrder {
		if text := layers[layer]; text != "" {
			region = append(region, text)
		}
	}

	return Candidate{
		ID:            f.ID,
		DisplayName:   f.PlaceName,
		ShortLabel:    short,
		Coordinates:   Coordinates{Lat: f.Center[1], Lng: f.Center[0]},
		RegionContext: region,
		Provider:      "mapbox",
	}, true
}
