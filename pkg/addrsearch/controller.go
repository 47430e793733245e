package addrsearch

import (
	"sync"
	"time"

	"github.com/manzanit0/geosearch/pkg/debounce"
	"github.com/manzanit0/geosearch/pkg/geocode"
)

// DefaultQuietPeriod is how long the input must stay unchanged before a
// query settles.
const DefaultQuietPeriod = 300 * time.Millisecond

// QueryController holds the raw input value and turns keystroke-level
// updates into settled queries. Every settle gets a new generation; results
// for any other generation are stale.
type QueryController struct {
	mu        sync.Mutex
	raw       string
	gen       uint64
	proximity *geocode.Coordinates

	// push identifies the latest scheduled settle. Cancel bumps it too.
	push uint64

	debouncer *debounce.Debouncer
	onSettle  func(gen uint64, q geocode.SearchQuery)
}

func NewQueryController(
	quiet time.Duration,
	sched debounce.Scheduler,
	proximity *geocode.Coordinates,
	onSettle func(gen uint64, q geocode.SearchQuery),
) *QueryController {
	return &QueryController{
		debouncer: debounce.New(quiet, sched),
		proximity: proximity,
		onSettle:  onSettle,
	}
}

// Update records text and, if it makes a valid query, schedules a settle.
// Invalid text cancels whatever was pending or in flight. It reports whether
// a settle was scheduled.
func (c *QueryController) Update(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.raw = text

	q := geocode.NewSearchQuery(text, c.proximity)
	if !q.Valid() {
		c.cancelLocked()
		return false
	}

	c.push++
	id := c.push
	c.debouncer.Push(func() { c.settle(id, q) })
	return true
}

// Reset replaces the raw value without scheduling anything and invalidates
// pending and in-flight searches.
func (c *QueryController) Reset(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.raw = text
	c.cancelLocked()
}

// Cancel invalidates pending and in-flight searches.
func (c *QueryController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
}

// IsCurrent reports whether gen is the latest settled generation.
func (c *QueryController) IsCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return gen == c.gen
}

func (c *QueryController) Raw() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.raw
}

func (c *QueryController) Pending() bool {
	return c.debouncer.Pending()
}

// settle opens a new generation for q, unless something was pushed or
// cancelled after id was scheduled.
func (c *QueryController) settle(id uint64, q geocode.SearchQuery) {
	c.mu.Lock()
	if id != c.push {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.onSettle(gen, q)
}

func (c *QueryController) cancelLocked() {
	c.debouncer.Cancel()
	c.push++
	c.gen++
}
