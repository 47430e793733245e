package addrsearch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

// DefaultIdleTimeout is how long a session may go untouched before Sweep
// closes it.
const DefaultIdleTimeout = 30 * time.Minute

type registered struct {
	session  *Session
	lastSeen time.Time
}

// Registry keeps the sessions of a long-running server, keyed by KSUID.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registered

	factory func(id string, opts ...SessionOption) *Session
	idle    time.Duration
	now     func() time.Time
}

type RegistryOption func(*Registry)

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idle = d
		}
	}
}

// NewRegistry builds sessions through factory, which receives the new
// session's id and any per-session options given to Create.
func NewRegistry(factory func(id string, opts ...SessionOption) *Session, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*registered),
		factory:  factory,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Registry) Create(opts ...SessionOption) (string, *Session) {
	id := ksuid.New().String()
	s := r.factory(id, opts...)

	r.mu.Lock()
	r.sessions[id] = &registered{session: s, lastSeen: r.now()}
	r.mu.Unlock()

	return id, s
}

// Get returns the session and marks it as recently used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.sessions[id]
	if !ok {
		return nil, false
	}

	reg.lastSeen = r.now()
	return reg.session, true
}

// Delete closes and forgets the session.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	reg, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}

	reg.session.Close()
	return true
}

// Sweep closes sessions idle for longer than the idle timeout and returns how
// many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var expired []*Session
	for id, reg := range r.sessions {
		if reg.lastSeen.Before(cutoff) {
			expired = append(expired, reg.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}

	if len(expired) > 0 {
		slog.Info("swept idle address sessions", "count", len(expired))
	}

	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// CloseAll closes every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*registered)
	r.mu.Unlock()

	for _, reg := range sessions {
		reg.session.Close()
	}
}
