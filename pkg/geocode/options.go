package geocode

import (
	"time"

	"github.com/manzanit0/geosearch/pkg/whttp"
)

// Defaults applied by every provider unless overridden. The reference point
// is the centre of Medellín.
var (
	DefaultBias     = Coordinates{Lat: 6.2442, Lng: -75.5812}
	DefaultCountry  = "co"
	DefaultLanguage = "es"
	DefaultLimit    = 6
	DefaultTimeout  = 8 * time.Second
)

type providerConfig struct {
	baseURL  string
	limit    int
	country  string
	language string
	bias     Coordinates
	fetcher  *whttp.Fetcher
}

func newProviderConfig(baseURL string, opts []Option) providerConfig {
	c := providerConfig{
		baseURL:  baseURL,
		limit:    DefaultLimit,
		country:  DefaultCountry,
		language: DefaultLanguage,
		bias:     DefaultBias,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if c.fetcher == nil {
		c.fetcher = whttp.NewFetcher(whttp.NewLoggingClient(DefaultTimeout))
	}

	return c
}

// proximity returns the query's bias point or the configured default.
func (c providerConfig) proximity(q SearchQuery) Coordinates {
	if q.Proximity != nil {
		return *q.Proximity
	}

	return c.bias
}

// Option overrides a provider default.
type Option func(*providerConfig)

// WithBaseURL points the provider at another installation, e.g. a
// self-hosted Nominatim or a test server.
func WithBaseURL(u string) Option {
	return func(c *providerConfig) {
		c.baseURL = u
	}
}

func WithLimit(n int) Option {
	return func(c *providerConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithCountry restricts results to an ISO 3166-1 alpha-2 country. An empty
// code disables the filter.
func WithCountry(code string) Option {
	return func(c *providerConfig) {
		c.country = code
	}
}

func WithLanguage(lang string) Option {
	return func(c *providerConfig) {
		c.language = lang
	}
}

// WithBias sets the reference point used when a query carries none.
func WithBias(p Coordinates) Option {
	return func(c *providerConfig) {
		c.bias = p
	}
}

// WithFetcher sets the rate-limited fetcher used for outbound calls.
func WithFetcher(f *whttp.Fetcher) Option {
	return func(c *providerConfig) {
		c.fetcher = f
	}
}
