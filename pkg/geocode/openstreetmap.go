package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"

	"github.com/manzanit0/geosearch/pkg/whttp"
)

const (
	nominatimURL       = "https://nominatim.openstreetmap.org"
	nominatimUserAgent = "geosearch/1.0 (+https://github.com/manzanit0/geosearch)"

	// viewboxSpan is the half-width, in degrees, of the box used to bias
	// Nominatim results around the reference point.
	viewboxSpan = 0.5
)

// OpenStreetMap is the keyless fallback provider backed by Nominatim.
//
// Forward searches go through the rate-limited fetcher since they need the
// full candidate list. Reverse searches use geo-golang's Nominatim geocoder,
// gated by the same limiter. Nominatim's usage policy allows one request per
// second, which is the default quota.
type OpenStreetMap struct {
	cfg      providerConfig
	geocoder geo.Geocoder
}

var _ Provider = (*OpenStreetMap)(nil)

func NewOpenStreetMap(opts ...Option) *OpenStreetMap {
	fetcher := whttp.NewFetcher(
		whttp.NewLoggingClient(DefaultTimeout),
		whttp.WithRateLimit(1, 1),
		whttp.WithUserAgent(nominatimUserAgent),
	)

	cfg := newProviderConfig(nominatimURL, append([]Option{WithFetcher(fetcher)}, opts...))
	base := strings.TrimRight(cfg.baseURL, "/") + "/"

	return &OpenStreetMap{cfg: cfg, geocoder: openstreetmap.GeocoderWithURL(base)}
}

func (o *OpenStreetMap) Name() string { return "openstreetmap" }

func (o *OpenStreetMap) ForwardSearch(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	if !q.Valid() {
		return nil, ErrInvalidQuery
	}

	p := o.cfg.proximity(q)
	params := url.Values{
		"q":              {q.Text},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"limit":          {strconv.Itoa(o.cfg.limit)},
		"viewbox": {fmt.Sprintf("%f,%f,%f,%f",
			p.Lng-viewboxSpan, p.Lat+viewboxSpan, p.Lng+viewboxSpan, p.Lat-viewboxSpan)},
		"bounded": {"0"},
	}
	if o.cfg.country != "" {
		params.Set("countrycodes", o.cfg.country)
	}
	if o.cfg.language != "" {
		params.Set("accept-language", o.cfg.language)
	}

	endpoint := fmt.Sprintf("%s/search?%s", strings.TrimRight(o.cfg.baseURL, "/"), params.Encode())

	var places []nominatimPlace
	if err := o.cfg.fetcher.GetJSON(ctx, endpoint, &places); err != nil {
		return nil, fmt.Errorf("%w: nominatim forward search: %w", ErrProviderUnavailable, err)
	}

	candidates := make([]Candidate, 0, len(places))
	for _, place := range places {
		c, ok := place.candidate()
		if !ok {
			continue
		}

		candidates = append(candidates, c)
		if len(candidates) == o.cfg.limit {
			break
		}
	}

	return candidates, nil
}

func (o *OpenStreetMap) ReverseSearch(ctx context.Context, lat, lng float64) (string, error) {
	if err := o.cfg.fetcher.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: nominatim reverse search: %w", ErrProviderUnavailable, err)
	}

	type result struct {
		address *geo.Address
		err     error
	}

	// geo-golang bounds the call with its own timeout; the select only lets
	// the caller give up earlier.
	ch := make(chan result, 1)
	go func() {
		address, err := o.geocoder.ReverseGeocode(lat, lng)
		ch <- result{address: address, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: nominatim reverse search: %w", ErrProviderUnavailable, ctx.Err())
	case r = <-ch:
	}

	if r.err != nil {
		return "", fmt.Errorf("%w: nominatim reverse search: %w", ErrProviderUnavailable, r.err)
	}

	if r.address == nil || strings.TrimSpace(r.address.FormattedAddress) == "" {
		return CoordinatesLabel(lat, lng), nil
	}

	return strings.TrimSpace(r.address.FormattedAddress), nil
}

type nominatimPlace struct {
	PlaceID     int64            `json:"place_id"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	Road          string `json:"road"`
	HouseNumber   string `json:"house_number"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	State         string `json:"state"`
	Country       string `json:"country"`
}

func (p nominatimPlace) candidate() (Candidate, bool) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Candidate{}, false
	}

	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Candidate{}, false
	}

	if p.DisplayName == "" {
		return Candidate{}, false
	}

	return Candidate{
		ID:            fmt.Sprintf("osm:%d", p.PlaceID),
		DisplayName:   p.DisplayName,
		ShortLabel:    p.shortLabel(),
		Coordinates:   Coordinates{Lat: lat, Lng: lng},
		RegionContext: p.Address.regionContext(),
		Provider:      "openstreetmap",
	}, true
}

func (p nominatimPlace) shortLabel() string {
	if p.Address.Road != "" {
		return strings.TrimSpace(p.Address.Road + " " + p.Address.HouseNumber)
	}

	if p.Name != "" {
		return p.Name
	}

	first, _, _ := strings.Cut(p.DisplayName, ",")
	return strings.TrimSpace(first)
}

func (a nominatimAddress) regionContext() []string {
	var region []string
	for _, v := range []string{
		firstNonEmpty(a.Neighbourhood, a.Suburb),
		firstNonEmpty(a.City, a.Town, a.Village, a.Municipality),
		a.State,
		a.Country,
	} {
		if v != "" {
			region = append(region, v)
		}
	}

	return region
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}

	return ""
}
