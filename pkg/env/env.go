// package env contains simple getters for the configuration shared by the
// geosearch binaries. Everything comes from environment variables; a local
// .env file is honoured in development.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/manzanit0/geosearch/pkg/geocode"
	"github.com/manzanit0/geosearch/pkg/whttp"
)

// LoadDotEnv loads the given files, or .env when none are given, without
// overriding variables already set. Missing files are not an error.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load dotenv: %w", err)
	}

	return nil
}

// GeocodeConfig holds everything needed to build the provider chain.
type GeocodeConfig struct {
	MapboxToken  string
	MapboxURL    string
	NominatimURL string
	Country      string
	Language     string
	Bias         geocode.Coordinates
	Limit        int
	UserAgent    string
}

func LoadGeocodeConfig() (GeocodeConfig, error) {
	cfg := GeocodeConfig{
		MapboxToken:  os.Getenv("MAPBOX_ACCESS_TOKEN"),
		MapboxURL:    os.Getenv("MAPBOX_URL"),
		NominatimURL: os.Getenv("NOMINATIM_URL"),
		Country:      geocode.DefaultCountry,
		Language:     geocode.DefaultLanguage,
		Bias:         geocode.DefaultBias,
		Limit:        geocode.DefaultLimit,
		UserAgent:    os.Getenv("GEOCODE_USER_AGENT"),
	}

	// An explicitly empty country disables the filter.
	if v, ok := os.LookupEnv("GEOCODE_COUNTRY"); ok {
		cfg.Country = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv("GEOCODE_LANGUAGE"); v != "" {
		cfg.Language = v
	}

	if v := os.Getenv("GEOCODE_BIAS"); v != "" {
		bias, err := ParseCoordinates(v)
		if err != nil {
			return GeocodeConfig{}, fmt.Errorf("failed to parse GEOCODE_BIAS: %w", err)
		}
		cfg.Bias = bias
	}

	if v := os.Getenv("GEOCODE_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return GeocodeConfig{}, fmt.Errorf("GEOCODE_LIMIT must be a positive integer, got %q", v)
		}
		cfg.Limit = limit
	}

	return cfg, nil
}

// Options are the provider options shared by both backends.
func (c GeocodeConfig) Options() []geocode.Option {
	return []geocode.Option{
		geocode.WithCountry(c.Country),
		geocode.WithLanguage(c.Language),
		geocode.WithBias(c.Bias),
		geocode.WithLimit(c.Limit),
	}
}

func (c GeocodeConfig) NewMapbox() *geocode.Mapbox {
	opts := c.Options()
	if c.MapboxURL != "" {
		opts = append(opts, geocode.WithBaseURL(c.MapboxURL))
	}

	return geocode.NewMapbox(c.MapboxToken, opts...)
}

func (c GeocodeConfig) NewOpenStreetMap() *geocode.OpenStreetMap {
	opts := c.Options()
	if c.NominatimURL != "" {
		opts = append(opts, geocode.WithBaseURL(c.NominatimURL))
	}

	if c.UserAgent != "" {
		opts = append(opts, geocode.WithFetcher(whttp.NewFetcher(
			whttp.NewLoggingClient(geocode.DefaultTimeout),
			whttp.WithRateLimit(1, 1),
			whttp.WithUserAgent(c.UserAgent),
		)))
	}

	return geocode.NewOpenStreetMap(opts...)
}

// NewResolver wires Mapbox in front of Nominatim. Without a Mapbox token the
// resolver only ever uses Nominatim.
func (c GeocodeConfig) NewResolver() *geocode.HybridResolver {
	return geocode.NewHybridResolver(c.NewMapbox(), c.NewOpenStreetMap())
}

// ParseCoordinates reads "lat,lng".
func ParseCoordinates(s string) (geocode.Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geocode.Coordinates{}, fmt.Errorf("expected lat,lng, got %q", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geocode.Coordinates{}, fmt.Errorf("invalid latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geocode.Coordinates{}, fmt.Errorf("invalid longitude: %w", err)
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return geocode.Coordinates{}, fmt.Errorf("coordinates out of range: %q", s)
	}

	return geocode.Coordinates{Lat: lat, Lng: lng}, nil
}

func Port() string {
	var port string
	if port = os.Getenv("PORT"); port == "" {
		port = "8080"
	}

	return port
}

// RedisURL is empty when no shared cache tier is configured.
func RedisURL() string {
	return os.Getenv("REDIS_URL")
}

// DatabaseURL is empty when no shared cache tier is configured.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func SessionIdleTimeout() (time.Duration, error) {
	v := os.Getenv("SESSION_IDLE_TIMEOUT")
	if v == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse SESSION_IDLE_TIMEOUT: %w", err)
	}

	return d, nil
}

func Debug() bool {
	debug, _ := strconv.ParseBool(os.Getenv("DEBUG"))
	return debug
}
