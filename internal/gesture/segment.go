// Package gesture provides rule-based recognition of multi-phase body gestures.
package gesture

import "github.com/ayusman/natya/internal/skeleton"

// Result is the outcome of evaluating one segment against one frame.
type Result int

const (
	// Failed means the body cannot complete this phase from its current pose.
	Failed Result = iota
	// Succeeded means the phase's condition is fully met this frame.
	Succeeded
	// Undetermined means the pose partially matches; neither confirmed nor ruled out.
	Undetermined
)

// String returns a lowercase name for the result.
func (r Result) String() string {
	switch r {
	case Succeeded:
		return "succeeded"
	case Undetermined:
		return "undetermined"
	default:
		return "failed"
	}
}

// Segment is a single phase of a gesture: a stateless test over one frame.
// Implementations must not keep state between calls; all timing lives in the
// Matcher that drives them.
type Segment interface {
	Update(body *skeleton.Body) Result
}

// SegmentFunc adapts an ordinary function to the Segment interface.
type SegmentFunc func(body *skeleton.Body) Result

// Update calls f(body).
func (f SegmentFunc) Update(body *skeleton.Body) Result {
	return f(body)
}
