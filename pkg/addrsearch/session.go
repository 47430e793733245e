package addrsearch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/manzanit0/geosearch/pkg/debounce"
	"github.com/manzanit0/geosearch/pkg/geocode"
)

// DefaultLookupTimeout bounds a whole lookup, fallback included.
const DefaultLookupTimeout = 20 * time.Second

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseSuggesting       Phase = "suggesting"
	PhaseResolvingReverse Phase = "resolving-reverse"
)

// Source tells where the resolved location came from.
type Source string

const (
	SourceInitial   Source = "initial"
	SourceSelection Source = "selection"
	SourceReverse   Source = "reverse"
)

type ResolvedLocation struct {
	Address     string               `json:"address"`
	Coordinates *geocode.Coordinates `json:"coordinates,omitempty"`
	Source      Source               `json:"source"`
}

// Marker is what the map shows. Address is never blank while a marker is
// shown: the coordinate label stands in until an address is known.
type Marker struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Address   string  `json:"address"`
	Draggable bool    `json:"draggable"`
}

// Snapshot is a consistent copy of the session state handed to renderers.
type Snapshot struct {
	Version         uint64              `json:"version"`
	Query           string              `json:"query"`
	Suggestions     []geocode.Candidate `json:"suggestions"`
	ShowSuggestions bool                `json:"showSuggestions"`
	IsLoading       bool                `json:"isLoading"`
	HasError        bool                `json:"hasError"`
	Highlighted     int                 `json:"highlighted"`
	Phase           Phase               `json:"phase"`
	Resolved        ResolvedLocation    `json:"resolved"`
	Marker          *Marker             `json:"marker,omitempty"`
}

type sessionConfig struct {
	sched         debounce.Scheduler
	quiet         time.Duration
	proximity     *geocode.Coordinates
	initial       ResolvedLocation
	listener      func(Snapshot)
	lookupTimeout time.Duration
	logger        *slog.Logger
	parent        context.Context
}

type SessionOption func(*sessionConfig)

func WithScheduler(s debounce.Scheduler) SessionOption {
	return func(c *sessionConfig) {
		c.sched = s
	}
}

func WithQuietPeriod(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		if d > 0 {
			c.quiet = d
		}
	}
}

// WithProximity biases forward searches towards p.
func WithProximity(p geocode.Coordinates) SessionOption {
	return func(c *sessionConfig) {
		c.proximity = &p
	}
}

// WithInitialLocation seeds the session, e.g. with a previously saved
// address. Clear returns to this location.
func WithInitialLocation(address string, coords *geocode.Coordinates) SessionOption {
	return func(c *sessionConfig) {
		c.initial = ResolvedLocation{Address: address, Coordinates: coords, Source: SourceInitial}
	}
}

// WithListener is called with a fresh snapshot after every state change.
// Snapshots may arrive out of order across goroutines; Version is monotonic.
func WithListener(f func(Snapshot)) SessionOption {
	return func(c *sessionConfig) {
		c.listener = f
	}
}

func WithLookupTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		if d > 0 {
			c.lookupTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) SessionOption {
	return func(c *sessionConfig) {
		c.logger = l
	}
}

// WithContext ties in-flight lookups to ctx in addition to Close.
func WithContext(ctx context.Context) SessionOption {
	return func(c *sessionConfig) {
		c.parent = ctx
	}
}

// Session is the state behind one address field and its map. All methods are
// safe for concurrent use. Lookups run in the background; their results are
// applied only while still current.
type Session struct {
	cfg    sessionConfig
	lookup *Lookup
	ctrl   *QueryController

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.Mutex
	version         uint64
	closed          bool
	query           string
	suggestions     []geocode.Candidate
	showSuggestions bool
	isLoading       bool
	hasError        bool
	highlighted     int
	resolved        ResolvedLocation

	// reverseToken identifies the latest reverse lookup. Anything that
	// changes the location bumps it so late answers are dropped.
	reverseToken uint64
	pending      *geocode.Coordinates
}

func NewSession(lookup *Lookup, opts ...SessionOption) *Session {
	cfg := sessionConfig{
		quiet:         DefaultQuietPeriod,
		lookupTimeout: DefaultLookupTimeout,
		initial:       ResolvedLocation{Source: SourceInitial},
		logger:        slog.Default(),
		parent:        context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(cfg.parent)
	s := &Session{
		cfg:         cfg,
		lookup:      lookup,
		ctx:         ctx,
		cancel:      cancel,
		highlighted: -1,
		resolved:    cfg.initial,
		query:       cfg.initial.Address,
	}
	s.ctrl = NewQueryController(cfg.quiet, cfg.sched, cfg.proximity, s.startForward)
	s.ctrl.Reset(s.query)

	return s
}

// UpdateQuery records a keystroke. Queries of at least three characters open
// the suggestions and schedule a debounced search; shorter ones close them
// and invalidate anything pending.
func (s *Session) UpdateQuery(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.query = text
	s.highlighted = -1
	if s.ctrl.Update(text) {
		s.showSuggestions = true
	} else {
		s.showSuggestions = false
		s.suggestions = nil
		s.isLoading = false
		s.hasError = false
	}

	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// UpdateCoordinates starts a reverse lookup for a marker dropped at lat, lng.
// Only the latest one is ever applied.
func (s *Session) UpdateCoordinates(lat, lng float64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.reverseToken++
	token := s.reverseToken
	s.pending = &geocode.Coordinates{Lat: lat, Lng: lng}
	s.wg.Add(1)

	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)

	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.lookupTimeout)
		defer cancel()

		address, err := s.lookup.Reverse(ctx, lat, lng)
		s.applyReverse(token, lat, lng, address, err)
	}()
}

// SelectCandidate commits c as the resolved location and closes the
// suggestions. Pending searches and reverse lookups are invalidated.
func (s *Session) SelectCandidate(c geocode.Candidate) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.selectLocked(c)
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SelectIndex selects the i-th visible suggestion. It reports false when
// there is no such suggestion.
func (s *Session) SelectIndex(i int) bool {
	s.mu.Lock()
	if s.closed || i < 0 || i >= len(s.suggestions) {
		s.mu.Unlock()
		return false
	}

	s.selectLocked(s.suggestions[i].Clone())
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// SelectHighlighted selects the keyboard-highlighted suggestion, if the
// suggestions are open and one is highlighted.
func (s *Session) SelectHighlighted() bool {
	s.mu.Lock()
	if s.closed || !s.showSuggestions || s.highlighted < 0 || s.highlighted >= len(s.suggestions) {
		s.mu.Unlock()
		return false
	}

	s.selectLocked(s.suggestions[s.highlighted].Clone())
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// MoveHighlight moves the keyboard highlight by delta, wrapping around the
// list. It does nothing while the suggestions are closed or empty.
func (s *Session) MoveHighlight(delta int) {
	s.mu.Lock()
	n := len(s.suggestions)
	if s.closed || !s.showSuggestions || n == 0 || delta == 0 {
		s.mu.Unlock()
		return
	}

	switch {
	case s.highlighted < 0 && delta > 0:
		s.highlighted = wrap(delta-1, n)
	case s.highlighted < 0:
		s.highlighted = wrap(delta, n)
	default:
		s.highlighted = wrap(s.highlighted+delta, n)
	}

	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// OpenSuggestions shows the dropdown again, e.g. when the field regains
// focus. If the current query is valid but has no results yet, a search is
// scheduled.
func (s *Session) OpenSuggestions() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	valid := geocode.NewSearchQuery(s.query, nil).Valid()
	switch {
	case len(s.suggestions) > 0:
		s.showSuggestions = true
	case valid:
		s.showSuggestions = true
		if !s.isLoading && !s.ctrl.Pending() {
			s.ctrl.Update(s.query)
		}
	}

	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// CloseSuggestions hides the dropdown. Results that arrive later are still
// recorded but do not reopen it.
func (s *Session) CloseSuggestions() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.showSuggestions = false
	s.highlighted = -1
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Clear empties the field and goes back to the initial location.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.ctrl.Reset("")
	s.reverseToken++
	s.pending = nil
	s.query = ""
	s.suggestions = nil
	s.showSuggestions = false
	s.isLoading = false
	s.hasError = false
	s.highlighted = -1
	s.resolved = s.cfg.initial

	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Wait blocks until every lookup started so far has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight lookups and waits for them. A closed session
// ignores further input.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.ctrl.Cancel()
	s.cancel()
	s.wg.Wait()
}

func (s *Session) startForward(gen uint64, q geocode.SearchQuery) {
	s.mu.Lock()
	// A selection, clear or reverse result may have landed between the
	// settle and here.
	if s.closed || !s.ctrl.IsCurrent(gen) {
		s.mu.Unlock()
		return
	}

	s.isLoading = true
	s.hasError = false
	s.wg.Add(1)
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)

	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.lookupTimeout)
		defer cancel()

		candidates, err := s.lookup.Forward(ctx, q)
		s.applyForward(gen, q, candidates, err)
	}()
}

func (s *Session) applyForward(gen uint64, q geocode.SearchQuery, candidates []geocode.Candidate, err error) {
	s.mu.Lock()
	if s.closed || !s.ctrl.IsCurrent(gen) {
		s.mu.Unlock()
		s.cfg.logger.Debug("discarding stale suggestions", "query", q.Text)
		return
	}

	if candidates == nil {
		candidates = []geocode.Candidate{}
	}

	s.isLoading = false
	s.hasError = err != nil
	s.suggestions = candidates
	s.highlighted = -1
	snap := s.publishLocked()
	s.mu.Unlock()

	if err != nil {
		s.cfg.logger.Warn("address search failed", "query", q.Text, "error", err.Error())
	}

	s.notify(snap)
}

func (s *Session) applyReverse(token uint64, lat, lng float64, address string, err error) {
	s.mu.Lock()
	if s.closed || token != s.reverseToken {
		s.mu.Unlock()
		s.cfg.logger.Debug("discarding stale reverse lookup", "lat", lat, "lng", lng)
		return
	}

	if address == "" {
		address = geocode.CoordinatesLabel(lat, lng)
	}

	// The address replaces the typed text, so whatever search the old text
	// had pending no longer applies.
	s.ctrl.Reset(address)
	s.pending = nil
	s.query = address
	s.suggestions = nil
	s.showSuggestions = false
	s.isLoading = false
	s.highlighted = -1
	s.resolved = ResolvedLocation{
		Address:     address,
		Coordinates: &geocode.Coordinates{Lat: lat, Lng: lng},
		Source:      SourceReverse,
	}
	snap := s.publishLocked()
	s.mu.Unlock()

	if err != nil {
		s.cfg.logger.Warn("reverse lookup degraded to coordinates", "lat", lat, "lng", lng, "error", err.Error())
	}

	s.notify(snap)
}

func (s *Session) selectLocked(c geocode.Candidate) {
	s.ctrl.Reset(c.DisplayName)
	s.reverseToken++
	s.pending = nil
	s.query = c.DisplayName
	s.suggestions = nil
	s.showSuggestions = false
	s.isLoading = false
	s.hasError = false
	s.highlighted = -1

	coords := c.Coordinates
	s.resolved = ResolvedLocation{Address: c.DisplayName, Coordinates: &coords, Source: SourceSelection}
}

// publishLocked records a state change and returns the new snapshot.
func (s *Session) publishLocked() Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	suggestions := geocode.CloneCandidates(s.suggestions)
	if suggestions == nil {
		suggestions = []geocode.Candidate{}
	}

	snap := Snapshot{
		Version:         s.version,
		Query:           s.query,
		Suggestions:     suggestions,
		ShowSuggestions: s.showSuggestions,
		IsLoading:       s.isLoading,
		HasError:        s.hasError,
		Highlighted:     s.highlighted,
		Phase:           s.phaseLocked(),
		Resolved:        s.resolved,
	}

	if s.resolved.Coordinates != nil {
		c := *s.resolved.Coordinates
		snap.Resolved.Coordinates = &c
	}

	switch {
	case s.pending != nil:
		snap.Marker = &Marker{
			Lat:       s.pending.Lat,
			Lng:       s.pending.Lng,
			Address:   geocode.CoordinatesLabel(s.pending.Lat, s.pending.Lng),
			Draggable: true,
		}
	case s.resolved.Coordinates != nil:
		address := s.resolved.Address
		if address == "" {
			address = s.resolved.Coordinates.String()
		}
		snap.Marker = &Marker{
			Lat:       s.resolved.Coordinates.Lat,
			Lng:       s.resolved.Coordinates.Lng,
			Address:   address,
			Draggable: true,
		}
	}

	return snap
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.pending != nil:
		return PhaseResolvingReverse
	case s.showSuggestions:
		return PhaseSuggesting
	default:
		return PhaseIdle
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.cfg.listener != nil {
		s.cfg.listener(snap)
	}
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
