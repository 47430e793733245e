// Package geocode resolves free-text addresses into coordinates and back.
//
// Providers wrap a single geocoding backend each. The HybridResolver puts a
// primary and a fallback provider behind one interface and degrades to the
// fallback exactly once when the primary fails.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the shortest normalized query, in runes, that is sent to
// a provider.
const MinQueryLength = 3

var (
	// ErrInvalidQuery is returned for queries shorter than MinQueryLength.
	// It is a no-op signal rather than a failure.
	ErrInvalidQuery = errors.New("query too short")

	// ErrProviderUnavailable wraps transport failures, timeouts and
	// non-success responses of a single provider.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")

	// ErrAllProvidersUnavailable is reported when both the primary and the
	// fallback provider failed for the same lookup.
	ErrAllProvidersUnavailable = errors.New("all geocoding providers unavailable")
)

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	ForwardSearch(ctx context.Context, q SearchQuery) ([]Candidate, error)
	ReverseSearch(ctx context.Context, lat, lng float64) (string, error)
}

// Availability is implemented by providers that can be configured out, e.g.
// a keyed backend without its credential.
type Availability interface {
	Available() bool
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) String() string {
	return CoordinatesLabel(c.Lat, c.Lng)
}

// Candidate is one ranked forward-search match.
type Candidate struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	ShortLabel  string      `json:"shortLabel"`
	Coordinates Coordinates `json:"coordinates"`

	// RegionContext lists the containing areas from the most specific
	// (neighborhood) to the widest (country). Missing levels are omitted.
	RegionContext []string `json:"regionContext,omitempty"`

	Provider string `json:"provider,omitempty"`
}

// Clone returns a copy that shares no memory with c.
func (c Candidate) Clone() Candidate {
	if c.RegionContext != nil {
		c.RegionContext = append([]string(nil), c.RegionContext...)
	}
	return c
}

// CloneCandidates deep-copies a candidate list. A nil list stays nil.
func CloneCandidates(cs []Candidate) []Candidate {
	if cs == nil {
		return nil
	}

	out := make([]Candidate, len(cs))
	for i := range cs {
		out[i] = cs[i].Clone()
	}

	return out
}

// SearchQuery is a normalized forward search request.
type SearchQuery struct {
	Text string

	// Proximity ranks results near this point higher. Providers fall back to
	// their configured reference point when it is nil.
	Proximity *Coordinates
}

// NewSearchQuery trims text and collapses internal whitespace.
func NewSearchQuery(text string, proximity *Coordinates) SearchQuery {
	return SearchQuery{Text: NormalizeText(text), Proximity: proximity}
}

// Valid reports whether the query is long enough to reach a provider.
func (q SearchQuery) Valid() bool {
	return utf8.RuneCountInString(q.Text) >= MinQueryLength
}

// NormalizeText trims s and collapses any run of whitespace into a single
// space. Casing is preserved; cache keys lowercase on their own.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CoordinatesLabel is the displayable text used when no address can be
// resolved for a point, e.g. "6.244200, -75.581200".
func CoordinatesLabel(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}
