// Package geocache memoizes geocoding results for a bounded time.
//
// Forward results are keyed by normalized query text, reverse results by
// coordinates rounded to five decimals (~1m). Entries are evicted lazily when
// read after expiry. An optional Store adds a second, shared tier.
package geocache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/manzanit0/geosearch/pkg/geocode"
)

const (
	DefaultForwardTTL = 5 * time.Minute
	DefaultReverseTTL = 10 * time.Minute
)

// Entry is the cached value: a candidate list for forward lookups or an
// address for reverse lookups.
type Entry struct {
	Candidates []geocode.Candidate `json:"candidates,omitempty"`
	Address    string              `json:"address,omitempty"`
}

type item struct {
	entry     Entry
	expiresAt time.Time
}

type Cache struct {
	mu    sync.Mutex
	items map[string]item

	now        func() time.Time
	store      Store
	forwardTTL time.Duration
	reverseTTL time.Duration
}

type Option func(*Cache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithStore adds a shared second tier consulted on memory misses.
func WithStore(s Store) Option {
	return func(c *Cache) {
		c.store = s
	}
}

func WithTTLs(forward, reverse time.Duration) Option {
	return func(c *Cache) {
		if forward > 0 {
			c.forwardTTL = forward
		}
		if reverse > 0 {
			c.reverseTTL = reverse
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		items:      make(map[string]item),
		now:        time.Now,
		forwardTTL: DefaultForwardTTL,
		reverseTTL: DefaultReverseTTL,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ForwardKey lowercases the query text and collapses its whitespace, so two
// queries that only differ in casing or spacing share an entry.
func ForwardKey(q geocode.SearchQuery) string {
	key := "fwd:" + strings.ToLower(geocode.NormalizeText(q.Text))
	if q.Proximity != nil {
		key += fmt.Sprintf("@%.3f,%.3f", q.Proximity.Lat, q.Proximity.Lng)
	}

	return key
}

// ReverseKey rounds the point to five decimals. Values that round to zero
// from below share the key of those rounding from above.
func ReverseKey(lat, lng float64) string {
	return fmt.Sprintf("rev:%.5f,%.5f", round5(lat), round5(lng))
}

func round5(v float64) float64 {
	r := math.Round(v*1e5) / 1e5
	if r == 0 {
		return 0
	}

	return r
}

// Get returns a live entry. Expired entries are removed on the way.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	if e, ok := c.getLocal(key); ok {
		return e, true
	}

	if c.store == nil {
		return Entry{}, false
	}

	return c.loadFromStore(ctx, key)
}

// Set stores e under key for ttl, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, key string, e Entry, ttl time.Duration) {
	e = cloneEntry(e)

	c.mu.Lock()
	c.items[key] = item{entry: e, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		slog.ErrorContext(ctx, "encode cache entry", "key", key, "error", err.Error())
		return
	}

	if err := c.store.Save(ctx, key, payload, ttl); err != nil {
		slog.WarnContext(ctx, "save cache entry", "key", key, "error", err.Error())
	}
}

func (c *Cache) Candidates(ctx context.Context, q geocode.SearchQuery) ([]geocode.Candidate, bool) {
	e, ok := c.Get(ctx, ForwardKey(q))
	if !ok {
		return nil, false
	}

	if e.Candidates == nil {
		return []geocode.Candidate{}, true
	}

	return e.Candidates, true
}

func (c *Cache) PutCandidates(ctx context.Context, q geocode.SearchQuery, candidates []geocode.Candidate) {
	if candidates == nil {
		candidates = []geocode.Candidate{}
	}

	c.Set(ctx, ForwardKey(q), Entry{Candidates: candidates}, c.forwardTTL)
}

func (c *Cache) Address(ctx context.Context, lat, lng float64) (string, bool) {
	e, ok := c.Get(ctx, ReverseKey(lat, lng))
	if !ok || e.Address == "" {
		return "", false
	}

	return e.Address, true
}

func (c *Cache) PutAddress(ctx context.Context, lat, lng float64, address string) {
	c.Set(ctx, ReverseKey(lat, lng), Entry{Address: address}, c.reverseTTL)
}

// Len reports the number of live in-memory entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var n int
	for _, it := range c.items {
		if !now.After(it.expiresAt) {
			n++
		}
	}

	return n
}

func (c *Cache) getLocal(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}

	if c.now().After(it.expiresAt) {
		delete(c.items, key)
		return Entry{}, false
	}

	return cloneEntry(it.entry), true
}

func (c *Cache) loadFromStore(ctx context.Context, key string) (Entry, bool) {
	payload, ttl, ok, err := c.store.Load(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "load cache entry", "key", key, "error", err.Error())
		return Entry{}, false
	}

	if !ok || ttl <= 0 {
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		slog.WarnContext(ctx, "decode cache entry", "key", key, "error", err.Error())
		return Entry{}, false
	}

	c.mu.Lock()
	c.items[key] = item{entry: cloneEntry(e), expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()

	return e, true
}

func cloneEntry(e Entry) Entry {
	return Entry{Candidates: geocode.CloneCandidates(e.Candidates), Address: e.Address}
}
