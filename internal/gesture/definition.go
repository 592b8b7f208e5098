package gesture

import (
	"errors"
	"fmt"
)

// Sentinel errors for gesture configuration.
var (
	ErrUnknownType     = errors.New("unknown gesture type")
	ErrEmptyDefinition = errors.New("gesture definition has no segments")
	ErrDuplicateType   = errors.New("duplicate gesture type")
)

// Type identifies a gesture definition.
type Type string

// TypeAll is a sentinel that enables every definition in a registry.
const TypeAll Type = "all"

// Built-in gesture types.
const (
	TypeWaveRight   Type = "wave-right"
	TypeWaveLeft    Type = "wave-left"
	TypeSwipeLeft   Type = "swipe-left"
	TypeSwipeRight  Type = "swipe-right"
	TypeSwipeUp     Type = "swipe-up"
	TypeSwipeDown   Type = "swipe-down"
	TypeZoomIn      Type = "zoom-in"
	TypeZoomOut     Type = "zoom-out"
	TypeMenu        Type = "menu"
	TypeJoinedHands Type = "joined-hands"
)

// Default timing limits, counted in frames.
const (
	// DefaultWindowSize is the maximum number of frames a gesture attempt may
	// take before it is abandoned.
	DefaultWindowSize = 50
	// DefaultMaxPauseCount is the grace period granted after a segment advances.
	// Half of it is granted after an undetermined frame.
	DefaultMaxPauseCount = 10
)

// ResetPolicy decides the matcher state after a reset.
type ResetPolicy int

const (
	// ResetCooldown leaves the matcher paused for MaxPauseCount/2 frames after
	// a reset, including the reset that follows a recognition.
	ResetCooldown ResetPolicy = iota
	// ResetClean returns the matcher to an unpaused idle state.
	ResetClean
)

// Definition is an ordered list of segments identified by a gesture type.
// Definitions are shared read-only by every matcher of their type and must not
// be modified once built.
type Definition struct {
	Type          Type
	Name          string
	Segments      []Segment
	WindowSize    int
	MaxPauseCount int
	Reset         ResetPolicy
}

// NewDefinition creates a Definition with the default timing limits.
func NewDefinition(t Type, name string, segments ...Segment) (*Definition, error) {
	if t == "" || t == TypeAll {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDefinition, t)
	}

	return &Definition{
		Type:          t,
		Name:          name,
		Segments:      append([]Segment(nil), segments...),
		WindowSize:    DefaultWindowSize,
		MaxPauseCount: DefaultMaxPauseCount,
		Reset:         ResetCooldown,
	}, nil
}

// WithLimits returns a copy of d with new timing limits. Values less than or
// equal to 0 keep the current limit.
func (d *Definition) WithLimits(windowSize, maxPauseCount int) *Definition {
	c := *d
	if windowSize > 0 {
		c.WindowSize = windowSize
	}
	if maxPauseCount > 0 {
		c.MaxPauseCount = maxPauseCount
	}
	return &c
}

// WithReset returns a copy of d using the given reset policy.
func (d *Definition) WithReset(policy ResetPolicy) *Definition {
	c := *d
	c.Reset = policy
	return &c
}

// mustDefinition is used for the built-in set, which is known to be valid.
func mustDefinition(t Type, name string, segments ...Segment) *Definition {
	d, err := NewDefinition(t, name, segments...)
	if err != nil {
		panic(err)
	}
	return d
}

// builtins holds the built-in definitions in registry order.
var builtins = []*Definition{
	mustDefinition(TypeWaveRight, "Wave Right",
		waveRightOut, waveRightIn, waveRightOut, waveRightIn, waveRightOut, waveRightIn),
	mustDefinition(TypeWaveLeft, "Wave Left",
		waveLeftOut, waveLeftIn, waveLeftOut, waveLeftIn, waveLeftOut, waveLeftIn),
	mustDefinition(TypeSwipeLeft, "Swipe Left", swipeLeftStart, swipeLeftMid, swipeLeftEnd),
	mustDefinition(TypeSwipeRight, "Swipe Right", swipeRightStart, swipeRightMid, swipeRightEnd),
	mustDefinition(TypeSwipeUp, "Swipe Up", liftLow, liftMid, liftHigh),
	mustDefinition(TypeSwipeDown, "Swipe Down", liftHigh, liftMid, liftLow),
	mustDefinition(TypeZoomIn, "Zoom In", zoomClose, zoomMid, zoomWide),
	mustDefinition(TypeZoomOut, "Zoom Out", zoomWide, zoomMid, zoomClose),
	mustDefinition(TypeMenu, "Menu", repeat(menuSegment, menuHoldFrames)...),
	mustDefinition(TypeJoinedHands, "Joined Hands", repeat(joinedHandsSegment, joinedHoldFrames)...),
}

// Registry is an ordered, immutable set of gesture definitions.
type Registry struct {
	defs   []*Definition
	byType map[Type]*Definition
}

// NewRegistry creates a Registry from the given definitions. The definition
// order is kept and decides the order in which matchers are evaluated.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{
		defs:   make([]*Definition, 0, len(defs)),
		byType: make(map[Type]*Definition, len(defs)),
	}

	for _, d := range defs {
		if d == nil {
			continue
		}
		if len(d.Segments) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyDefinition, d.Type)
		}
		if _, ok := r.byType[d.Type]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, d.Type)
		}
		r.defs = append(r.defs, d)
		r.byType[d.Type] = d
	}

	return r, nil
}

// DefaultRegistry returns a Registry holding the built-in gestures.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(builtins...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the definition for t.
func (r *Registry) Lookup(t Type) (*Definition, bool) {
	d, ok := r.byType[t]
	return d, ok
}

// Definitions returns the definitions in registry order.
func (r *Registry) Definitions() []*Definition {
	return append([]*Definition(nil), r.defs...)
}

// Types returns the registered gesture types in registry order.
func (r *Registry) Types() []Type {
	types := make([]Type, len(r.defs))
	for i, d := range r.defs {
		types[i] = d.Type
	}
	return types
}

// Resolve expands a set of gesture types into definitions, in registry order.
// TypeAll, or an empty set, selects every definition.
func (r *Registry) Resolve(types []Type) ([]*Definition, error) {
	if len(types) == 0 {
		return r.Definitions(), nil
	}

	wanted := make(map[Type]bool, len(types))
	for _, t := range types {
		if t == TypeAll {
			return r.Definitions(), nil
		}
		if _, ok := r.byType[t]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
		}
		wanted[t] = true
	}

	defs := make([]*Definition, 0, len(wanted))
	for _, d := range r.defs {
		if wanted[d.Type] {
			defs = append(defs, d)
		}
	}
	return defs, nil
}

// Replace returns a copy of the registry with the definition of the same type
// swapped for d.
func (r *Registry) Replace(d *Definition) (*Registry, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrUnknownType)
	}
	if _, ok := r.byType[d.Type]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, d.Type)
	}

	defs := make([]*Definition, len(r.defs))
	for i, existing := range r.defs {
		if existing.Type == d.Type {
			defs[i] = d
			continue
		}
		defs[i] = existing
	}
	return NewRegistry(defs...)
}

// WithLimits returns a copy of the registry with new timing limits for t.
func (r *Registry) WithLimits(t Type, windowSize, maxPauseCount int) (*Registry, error) {
	d, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return r.Replace(d.WithLimits(windowSize, maxPauseCount))
}
