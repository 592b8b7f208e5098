package gesture

import "github.com/ayusman/natya/internal/skeleton"

// Recognition is emitted when a body completes every segment of a gesture.
type Recognition struct {
	Type       Type   `json:"type"`
	Name       string `json:"name"`
	TrackingID uint64 `json:"tracking_id"`
	Tick       uint64 `json:"tick"` // Controller tick that completed the gesture
}

// Phase is the coarse state of a Matcher.
type Phase string

const (
	// PhaseIdle is an unpaused matcher waiting on the first segment.
	PhaseIdle Phase = "idle"
	// PhaseProgressing is an unpaused matcher past the first segment.
	PhaseProgressing Phase = "progressing"
	// PhasePaused is a matcher inside a grace period, at any segment.
	PhasePaused Phase = "paused"
)

// State is a read-only snapshot of a Matcher.
type State struct {
	Segment     int  // Index of the segment being evaluated
	Elapsed     int  // Frames since the current segment attempt began
	Paused      bool // Whether a grace period is running
	PauseFrames int  // Elapsed count at which the grace period ends
}

// Phase returns the coarse phase of the snapshot.
func (s State) Phase() Phase {
	switch {
	case s.Paused:
		return PhasePaused
	case s.Segment == 0:
		return PhaseIdle
	default:
		return PhaseProgressing
	}
}

// Matcher tracks one body's progress through one gesture definition.
// It is not safe for concurrent use; the Controller that owns it serializes
// all calls to Update.
type Matcher struct {
	def         *Definition
	trackingID  uint64
	segment     int
	elapsed     int
	paused      bool
	pauseFrames int
}

// NewMatcher creates a Matcher for the given definition and body. A new
// matcher starts in the same state as one that has just been reset.
func NewMatcher(def *Definition, trackingID uint64) *Matcher {
	m := &Matcher{
		def:        def,
		trackingID: trackingID,
	}
	m.Reset()
	return m
}

// Definition returns the gesture definition driven by the matcher.
func (m *Matcher) Definition() *Definition {
	return m.def
}

// TrackingID returns the body the matcher follows.
func (m *Matcher) TrackingID() uint64 {
	return m.trackingID
}

// State returns a snapshot of the matcher's counters.
func (m *Matcher) State() State {
	return State{
		Segment:     m.segment,
		Elapsed:     m.elapsed,
		Paused:      m.paused,
		PauseFrames: m.pauseFrames,
	}
}

// Reset abandons the current attempt and returns to the first segment.
func (m *Matcher) Reset() {
	m.segment = 0
	m.elapsed = 0

	if m.def.Reset == ResetClean {
		m.paused = false
		m.pauseFrames = 0
		return
	}
	m.pause(m.def.MaxPauseCount / 2)
}

func (m *Matcher) pause(frames int) {
	m.paused = true
	m.pauseFrames = frames
}

// Update evaluates the current segment against one frame of the body and
// advances the state machine. It reports a Recognition when the last segment
// succeeds.
//
// Transition order:
//  1. A running pause counts the frame and ends once its length is reached;
//     the segment is still evaluated in the same frame.
//  2. Succeeded advances to the next segment and grants a full pause, or
//     completes the gesture on the last segment.
//  3. Failed, or an attempt that has used up the window, resets.
//  4. Undetermined counts the frame and grants half a pause.
func (m *Matcher) Update(body *skeleton.Body) (Recognition, bool) {
	if m.paused {
		m.elapsed++
		if m.elapsed >= m.pauseFrames {
			m.paused = false
		}
	}

	result := m.def.Segments[m.segment].Update(body)

	switch {
	case result == Succeeded && m.segment+1 < len(m.def.Segments):
		m.segment++
		m.elapsed = 0
		m.pause(m.def.MaxPauseCount)

	case result == Succeeded:
		m.Reset()
		return Recognition{
			Type:       m.def.Type,
			Name:       m.def.Name,
			TrackingID: m.trackingID,
		}, true

	case result == Failed || m.elapsed >= m.def.WindowSize:
		m.Reset()

	default:
		m.elapsed++
		m.pause(m.def.MaxPauseCount / 2)
	}

	return Recognition{}, false
}
