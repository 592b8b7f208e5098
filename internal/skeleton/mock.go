package skeleton

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// MockSource is a test implementation of the Source interface.
// It either returns a fixed set of bodies on every call or plays back a
// scripted sequence of frames.
type MockSource struct {
	bodies []Body
	frames [][]Body
	index  int
	loop   bool
	err    error
	mu     sync.Mutex
}

// NewMockSource creates a new MockSource instance.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// SetBodies sets the bodies that will be returned by every call to Bodies.
func (m *MockSource) SetBodies(bodies []Body) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = bodies
	m.frames = nil
}

// SetFrames replaces the source with a scripted frame sequence. Once the
// sequence is exhausted Bodies returns ErrEndOfStream unless loop is set.
func (m *MockSource) SetFrames(frames [][]Body, loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.index = 0
	m.loop = loop
}

// SetError sets the error that will be returned by Bodies.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Bodies returns the configured bodies, the next scripted frame, or the error.
func (m *MockSource) Bodies() ([]Body, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.frames == nil {
		return m.bodies, nil
	}

	if m.index >= len(m.frames) {
		if !m.loop || len(m.frames) == 0 {
			return nil, ErrEndOfStream
		}
		m.index = 0
	}

	frame := m.frames[m.index]
	m.index++
	return frame, nil
}

// Close is a no-op for the mock source.
func (m *MockSource) Close() error {
	return nil
}

// StandingBody returns a tracked body standing 2m from the sensor with both
// arms relaxed at its sides.
func StandingBody(trackingID uint64) Body {
	b := Body{TrackingID: trackingID, Tracked: true}

	// Spine and head
	b.SetJoint(SpineBase, r3.Vec{X: 0, Y: -0.30, Z: 2.0}, Tracked)
	b.SetJoint(SpineMid, r3.Vec{X: 0, Y: 0.0, Z: 2.0}, Tracked)
	b.SetJoint(SpineShoulder, r3.Vec{X: 0, Y: 0.25, Z: 2.0}, Tracked)
	b.SetJoint(Neck, r3.Vec{X: 0, Y: 0.32, Z: 2.0}, Tracked)
	b.SetJoint(Head, r3.Vec{X: 0, Y: 0.45, Z: 2.0}, Tracked)

	// Left arm hanging down
	b.SetJoint(ShoulderLeft, r3.Vec{X: -0.18, Y: 0.22, Z: 2.0}, Tracked)
	b.SetJoint(ElbowLeft, r3.Vec{X: -0.22, Y: -0.05, Z: 2.0}, Tracked)
	b.SetJoint(WristLeft, r3.Vec{X: -0.24, Y: -0.25, Z: 2.0}, Tracked)
	b.SetJoint(HandLeft, r3.Vec{X: -0.25, Y: -0.32, Z: 2.0}, Tracked)
	b.SetJoint(HandTipLeft, r3.Vec{X: -0.25, Y: -0.40, Z: 2.0}, Tracked)
	b.SetJoint(ThumbLeft, r3.Vec{X: -0.22, Y: -0.34, Z: 1.98}, Tracked)

	// Right arm hanging down
	b.SetJoint(ShoulderRight, r3.Vec{X: 0.18, Y: 0.22, Z: 2.0}, Tracked)
	b.SetJoint(ElbowRight, r3.Vec{X: 0.22, Y: -0.05, Z: 2.0}, Tracked)
	b.SetJoint(WristRight, r3.Vec{X: 0.24, Y: -0.25, Z: 2.0}, Tracked)
	b.SetJoint(HandRight, r3.Vec{X: 0.25, Y: -0.32, Z: 2.0}, Tracked)
	b.SetJoint(HandTipRight, r3.Vec{X: 0.25, Y: -0.40, Z: 2.0}, Tracked)
	b.SetJoint(ThumbRight, r3.Vec{X: 0.22, Y: -0.34, Z: 1.98}, Tracked)

	// Legs
	b.SetJoint(HipLeft, r3.Vec{X: -0.10, Y: -0.32, Z: 2.0}, Tracked)
	b.SetJoint(KneeLeft, r3.Vec{X: -0.11, Y: -0.75, Z: 2.0}, Tracked)
	b.SetJoint(AnkleLeft, r3.Vec{X: -0.11, Y: -1.15, Z: 2.02}, Tracked)
	b.SetJoint(FootLeft, r3.Vec{X: -0.11, Y: -1.20, Z: 1.92}, Tracked)
	b.SetJoint(HipRight, r3.Vec{X: 0.10, Y: -0.32, Z: 2.0}, Tracked)
	b.SetJoint(KneeRight, r3.Vec{X: 0.11, Y: -0.75, Z: 2.0}, Tracked)
	b.SetJoint(AnkleRight, r3.Vec{X: 0.11, Y: -1.15, Z: 2.02}, Tracked)
	b.SetJoint(FootRight, r3.Vec{X: 0.11, Y: -1.20, Z: 1.92}, Tracked)

	return b
}

// WithJoint returns a copy of b with joint t moved to pos.
func WithJoint(b Body, t JointType, pos r3.Vec) Body {
	b.SetJoint(t, pos, Tracked)
	return b
}

// placeHand moves a hand and the joints hanging off it together.
func placeHand(b *Body, hand JointType, pos r3.Vec) {
	switch hand {
	case HandLeft:
		b.SetJoint(WristLeft, r3.Vec{X: pos.X, Y: pos.Y - 0.05, Z: pos.Z + 0.02}, Tracked)
		b.SetJoint(HandLeft, pos, Tracked)
		b.SetJoint(HandTipLeft, r3.Vec{X: pos.X, Y: pos.Y + 0.08, Z: pos.Z}, Tracked)
		b.SetJoint(ThumbLeft, r3.Vec{X: pos.X + 0.03, Y: pos.Y + 0.02, Z: pos.Z - 0.02}, Tracked)
	case HandRight:
		b.SetJoint(WristRight, r3.Vec{X: pos.X, Y: pos.Y - 0.05, Z: pos.Z + 0.02}, Tracked)
		b.SetJoint(HandRight, pos, Tracked)
		b.SetJoint(HandTipRight, r3.Vec{X: pos.X, Y: pos.Y + 0.08, Z: pos.Z}, Tracked)
		b.SetJoint(ThumbRight, r3.Vec{X: pos.X - 0.03, Y: pos.Y + 0.02, Z: pos.Z - 0.02}, Tracked)
	}
}

// WavePose returns a body with one forearm raised and the hand offset sideways
// from the elbow. A positive offset puts the hand toward the body's right.
func WavePose(trackingID uint64, hand JointType, offset float64) Body {
	b := StandingBody(trackingID)

	switch hand {
	case HandLeft:
		elbow := r3.Vec{X: -0.25, Y: 0.05, Z: 1.95}
		b.SetJoint(ElbowLeft, elbow, Tracked)
		placeHand(&b, HandLeft, r3.Vec{X: elbow.X + offset, Y: 0.35, Z: 1.92})
	default:
		elbow := r3.Vec{X: 0.25, Y: 0.05, Z: 1.95}
		b.SetJoint(ElbowRight, elbow, Tracked)
		placeHand(&b, HandRight, r3.Vec{X: elbow.X + offset, Y: 0.35, Z: 1.92})
	}

	return b
}

// ReachPose returns a body with one hand pushed out in front of its elbow at
// the given horizontal and vertical position.
func ReachPose(trackingID uint64, hand JointType, x, y float64) Body {
	b := StandingBody(trackingID)

	switch hand {
	case HandLeft:
		b.SetJoint(ElbowLeft, r3.Vec{X: -0.20, Y: -0.02, Z: 1.85}, Tracked)
		placeHand(&b, HandLeft, r3.Vec{X: x, Y: y, Z: 1.65})
	default:
		b.SetJoint(ElbowRight, r3.Vec{X: 0.20, Y: -0.02, Z: 1.85}, Tracked)
		placeHand(&b, HandRight, r3.Vec{X: x, Y: y, Z: 1.65})
	}

	return b
}

// HandsApartPose returns a body with both hands in front of the chest,
// separated horizontally by the given distance.
func HandsApartPose(trackingID uint64, separation float64) Body {
	b := StandingBody(trackingID)

	b.SetJoint(ElbowLeft, r3.Vec{X: -0.22, Y: -0.02, Z: 1.85}, Tracked)
	b.SetJoint(ElbowRight, r3.Vec{X: 0.22, Y: -0.02, Z: 1.85}, Tracked)
	placeHand(&b, HandLeft, r3.Vec{X: -separation / 2, Y: 0.05, Z: 1.65})
	placeHand(&b, HandRight, r3.Vec{X: separation / 2, Y: 0.05, Z: 1.65})

	return b
}

// MenuPose returns a body holding its left arm out and down at roughly 45
// degrees from the torso.
func MenuPose(trackingID uint64) Body {
	b := StandingBody(trackingID)

	b.SetJoint(ElbowLeft, r3.Vec{X: -0.32, Y: 0.0, Z: 2.0}, Tracked)
	placeHand(&b, HandLeft, r3.Vec{X: -0.48, Y: -0.22, Z: 2.0})

	return b
}
