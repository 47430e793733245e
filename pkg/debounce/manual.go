package debounce

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a Scheduler whose clock only moves when Advance is
// called. Due callbacks run synchronously inside Advance, in due order.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*manualTimer
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{timers: make(map[int]*manualTimer)}
}

type manualTimer struct {
	s  *ManualScheduler
	id int
	at time.Duration
	f  func()
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	_, ok := t.s.timers[t.id]
	delete(t.s.timers, t.id)
	return ok
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &manualTimer{s: s, id: s.nextID, at: s.now + d, f: f}
	s.timers[t.id] = t
	return t
}

// Advance moves the clock forward and fires every callback that became due.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	now := s.now

	var due []*manualTimer
	for id, t := range s.timers {
		if t.at <= now {
			due = append(due, t)
			delete(s.timers, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].id < due[j].id
		}
		return due[i].at < due[j].at
	})

	for _, t := range due {
		t.f()
	}
}

// Pending reports how many callbacks are scheduled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}
