package gesture

import (
	"sort"
	"sync"

	"github.com/ayusman/natya/internal/skeleton"
)

// DefaultEvictAfter is the number of consecutive ticks a body may be missing
// before its matchers are dropped.
const DefaultEvictAfter = 30

// ControllerConfig holds configuration options for a Controller.
type ControllerConfig struct {
	// Registry holds the known gestures. Defaults to DefaultRegistry().
	Registry *Registry

	// Enabled selects the gestures to match. Empty, or TypeAll, enables every
	// gesture in the registry.
	Enabled []Type

	// EvictAfter is the number of ticks a tracking ID may be absent before its
	// matchers are dropped. Zero selects DefaultEvictAfter; a negative value
	// keeps matchers forever.
	EvictAfter int
}

type matcherKey struct {
	gesture    Type
	trackingID uint64
}

// Controller runs one Matcher per (gesture type, tracking ID) pair and collects
// the recognitions produced each tick.
type Controller struct {
	registry   *Registry
	enabled    []*Definition
	matchers   map[matcherKey]*Matcher
	lastSeen   map[uint64]uint64
	tick       uint64
	evictAfter int
	mu         sync.Mutex

	// OnRecognized, if set, is called for every recognition in the order they
	// are returned from Update, after the controller's lock is released.
	OnRecognized func(Recognition)
}

// NewController creates a Controller with the given configuration.
func NewController(config ControllerConfig) (*Controller, error) {
	registry := config.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	evictAfter := config.EvictAfter
	if evictAfter == 0 {
		evictAfter = DefaultEvictAfter
	}

	enabled, err := registry.Resolve(config.Enabled)
	if err != nil {
		return nil, err
	}

	return &Controller{
		registry:   registry,
		enabled:    enabled,
		matchers:   make(map[matcherKey]*Matcher),
		lastSeen:   make(map[uint64]uint64),
		evictAfter: evictAfter,
	}, nil
}

// Configure replaces the set of enabled gestures. Matchers of gestures that
// are no longer enabled are dropped.
func (c *Controller) Configure(types ...Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	enabled, err := c.registry.Resolve(types)
	if err != nil {
		return err
	}
	c.enabled = enabled

	keep := make(map[Type]bool, len(enabled))
	for _, d := range enabled {
		keep[d.Type] = true
	}
	for key := range c.matchers {
		if !keep[key.gesture] {
			delete(c.matchers, key)
		}
	}

	return nil
}

// SetRegistry swaps the registry while keeping the enabled gesture types.
// Matchers whose definition changed start over with the new definition.
func (c *Controller) SetRegistry(r *Registry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	types := make([]Type, len(c.enabled))
	for i, d := range c.enabled {
		types[i] = d.Type
	}

	// An empty enabled set would resolve to every gesture
	var enabled []*Definition
	if len(types) > 0 {
		var err error
		if enabled, err = r.Resolve(types); err != nil {
			return err
		}
	}

	c.registry = r
	c.enabled = enabled

	for key, m := range c.matchers {
		if d, ok := r.Lookup(key.gesture); !ok || d != m.Definition() {
			delete(c.matchers, key)
		}
	}

	return nil
}

// Registry returns the registry the controller resolves gestures from.
func (c *Controller) Registry() *Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry
}

// Enabled returns the enabled gesture types in evaluation order.
func (c *Controller) Enabled() []Type {
	c.mu.Lock()
	defer c.mu.Unlock()

	types := make([]Type, len(c.enabled))
	for i, d := range c.enabled {
		types[i] = d.Type
	}
	return types
}

// Update feeds one frame of bodies to every enabled matcher and returns the
// recognitions completed in this tick.
//
// Untracked bodies are ignored and a tracking ID that appears more than once
// is only evaluated for its first body. Bodies are evaluated in ascending
// tracking ID order and gestures in registry order, so the result order is
// deterministic for a given snapshot.
func (c *Controller) Update(bodies []skeleton.Body) []Recognition {
	c.mu.Lock()

	c.tick++

	present := make([]*skeleton.Body, 0, len(bodies))
	seen := make(map[uint64]bool, len(bodies))
	for i := range bodies {
		b := &bodies[i]
		if !b.Tracked || seen[b.TrackingID] {
			continue
		}
		seen[b.TrackingID] = true
		present = append(present, b)
	}
	sort.Slice(present, func(i, j int) bool {
		return present[i].TrackingID < present[j].TrackingID
	})

	var recognized []Recognition
	for _, b := range present {
		c.lastSeen[b.TrackingID] = c.tick

		for _, def := range c.enabled {
			key := matcherKey{gesture: def.Type, trackingID: b.TrackingID}
			m, ok := c.matchers[key]
			if !ok {
				m = NewMatcher(def, b.TrackingID)
				c.matchers[key] = m
			}

			if rec, ok := m.Update(b); ok {
				rec.Tick = c.tick
				recognized = append(recognized, rec)
			}
		}
	}

	c.evict()

	callback := c.OnRecognized
	c.mu.Unlock()

	if callback != nil {
		for _, rec := range recognized {
			callback(rec)
		}
	}

	return recognized
}

// evict drops the matchers of tracking IDs absent for evictAfter ticks.
func (c *Controller) evict() {
	if c.evictAfter < 0 {
		return
	}

	stale := make(map[uint64]bool)
	for id, last := range c.lastSeen {
		if c.tick-last >= uint64(c.evictAfter) {
			stale[id] = true
			delete(c.lastSeen, id)
		}
	}
	if len(stale) == 0 {
		return
	}

	for key := range c.matchers {
		if stale[key.trackingID] {
			delete(c.matchers, key)
		}
	}
}

// Reset drops every matcher. The tick counter keeps running.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.matchers = make(map[matcherKey]*Matcher)
	c.lastSeen = make(map[uint64]uint64)
}

// Tick returns the number of Update calls made so far.
func (c *Controller) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Len returns the number of live matchers.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matchers)
}

// TrackingIDs returns the tracking IDs that currently own matchers, in
// ascending order.
func (c *Controller) TrackingIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]uint64, 0, len(c.lastSeen))
	for id := range c.lastSeen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MatcherState returns the state of the matcher for a gesture and body.
func (c *Controller) MatcherState(t Type, trackingID uint64) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.matchers[matcherKey{gesture: t, trackingID: trackingID}]
	if !ok {
		return State{}, false
	}
	return m.State(), true
}
