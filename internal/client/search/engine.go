// Package search implements incremental user search: keystrokes are
// debounced, lookups are tagged with an epoch and a response is applied only
// while its epoch is still the latest.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/siteofsites/internal/client/client"
	"github.com/dmitrijs2005/siteofsites/internal/client/events"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/dmitrijs2005/siteofsites/internal/common"
	"github.com/dmitrijs2005/siteofsites/internal/logging"
	"github.com/dmitrijs2005/siteofsites/internal/timex"
)

const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMinQueryLength = 2
)

// State is a snapshot of the engine.
type State struct {
	Query   string
	Results []models.UserLite
	Visible bool
	// Epoch identifies the latest issued (or invalidated) lookup.
	Epoch   uint64
	Loading bool
}

type Option func(*Engine)

// WithDebounce sets the quiet period between the last keystroke and the
// lookup.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.debounce = d
		}
	}
}

// WithMinQueryLength sets the number of runes below which no lookup is made.
// Values under DefaultMinQueryLength are ignored.
func WithMinQueryLength(n int) Option {
	return func(e *Engine) {
		if n >= DefaultMinQueryLength {
			e.minLen = n
		}
	}
}

type Engine struct {
	api client.SearchAPI
	log logging.Logger
	bus *events.Bus

	debounce time.Duration
	minLen   int
	timer    *timex.Debouncer

	// base outlives individual lookups; Close cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	closed bool
}

// New returns an idle engine. bus may be nil.
func New(api client.SearchAPI, log logging.Logger, bus *events.Bus, opts ...Option) *Engine {
	e := &Engine{
		api:      api,
		log:      log.With("component", "search"),
		bus:      bus,
		debounce: DefaultDebounce,
		minLen:   DefaultMinQueryLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.timer = timex.NewDebouncer(e.debounce)
	e.base, e.cancel = context.WithCancel(context.Background())
	return e
}

// State returns a snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() State {
	s := e.state
	s.Results = append([]models.UserLite(nil), e.state.Results...)
	return s
}

func (e *Engine) publish(s State) {
	if e.bus != nil {
		e.bus.Publish(events.SearchChanged, s)
	}
}

// OnQueryChange records the new input text. Queries shorter than the
// threshold clear the results and invalidate any lookup in flight; longer
// ones (re)arm the debounce timer.
func (e *Engine) OnQueryChange(text string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.state.Query = text

	if common.RuneLen(text) < e.minLen {
		e.timer.Cancel()
		e.state.Epoch++
		e.state.Results = nil
		e.state.Visible = false
		e.state.Loading = false
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.publish(snap)
		return
	}

	e.timer.Schedule(func() { e.lookup(text) })
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

func (e *Engine) lookup(query string) {
	e.mu.Lock()
	// The query may have moved on between the timer firing and this point.
	if e.closed || e.state.Query != query {
		e.mu.Unlock()
		return
	}
	e.state.Epoch++
	epoch := e.state.Epoch
	e.state.Loading = true
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)

	results, err := e.api.SearchUsers(e.base, query)

	e.mu.Lock()
	if e.closed || e.state.Epoch != epoch {
		e.mu.Unlock()
		e.log.Debug(e.base, "stale search response dropped", "query", query, "epoch", epoch)
		return
	}
	e.state.Loading = false
	if err != nil {
		e.state.Results = nil
	} else {
		e.state.Results = results
		e.state.Visible = true
	}
	snap = e.snapshotLocked()
	e.mu.Unlock()

	if err != nil {
		e.log.Warn(e.base, "search failed", "query", query, "error", err)
	}
	e.publish(snap)
}

// Focus shows the results again if there are any.
func (e *Engine) Focus() {
	e.setVisible(true)
}

// OutsideInteraction hides the results without discarding them.
func (e *Engine) OutsideInteraction() {
	e.setVisible(false)
}

func (e *Engine) setVisible(want bool) {
	e.mu.Lock()
	v := want && len(e.state.Results) > 0
	if e.state.Visible == v {
		e.mu.Unlock()
		return
	}
	e.state.Visible = v
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Select clears the query and the results and emits a navigation intent
// for user. Any pending or in-flight lookup is abandoned.
func (e *Engine) Select(user models.UserLite) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.timer.Cancel()
	e.state.Query = ""
	e.state.Results = nil
	e.state.Visible = false
	e.state.Loading = false
	e.state.Epoch++
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(snap)
	if e.bus != nil {
		e.bus.Publish(events.NavigateToProfile, user.UniqueID)
	}
}

// Close stops the timer and abandons lookups in flight. It is safe to call
// more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.timer.Cancel()
	e.mu.Unlock()
	e.cancel()
}
