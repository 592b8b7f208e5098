// Package skeleton provides body-tracking types and frame sources for gesture recognition.
package skeleton

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknownJoint is returned when a joint name does not match the topology.
var ErrUnknownJoint = errors.New("unknown joint")

// JointType identifies one of the tracked body joints. The ordering follows the
// v2 sensor topology so a JointType can index Body.Joints directly.
type JointType int

// Body joint indices.
const (
	SpineBase JointType = iota
	SpineMid
	Neck
	Head
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight
	SpineShoulder
	HandTipLeft
	ThumbLeft
	HandTipRight
	ThumbRight

	// NumJoints is the number of joints in the topology.
	NumJoints = 25
)

var jointNames = [NumJoints]string{
	"SpineBase", "SpineMid", "Neck", "Head",
	"ShoulderLeft", "ElbowLeft", "WristLeft", "HandLeft",
	"ShoulderRight", "ElbowRight", "WristRight", "HandRight",
	"HipLeft", "KneeLeft", "AnkleLeft", "FootLeft",
	"HipRight", "KneeRight", "AnkleRight", "FootRight",
	"SpineShoulder", "HandTipLeft", "ThumbLeft", "HandTipRight", "ThumbRight",
}

var jointsByName = func() map[string]JointType {
	m := make(map[string]JointType, NumJoints)
	for i, name := range jointNames {
		m[name] = JointType(i)
	}
	return m
}()

// String returns the joint name.
func (j JointType) String() string {
	if j < 0 || int(j) >= NumJoints {
		return fmt.Sprintf("JointType(%d)", int(j))
	}
	return jointNames[j]
}

// Valid reports whether j is part of the topology.
func (j JointType) Valid() bool {
	return j >= 0 && int(j) < NumJoints
}

// ParseJointType returns the JointType with the given name.
func ParseJointType(name string) (JointType, error) {
	j, ok := jointsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownJoint, name)
	}
	return j, nil
}

// TrackingState is the sensor's confidence in a joint position.
type TrackingState int

const (
	// NotTracked means the sensor reported no position for the joint.
	NotTracked TrackingState = iota
	// Inferred means the position was estimated from neighbouring joints.
	Inferred
	// Tracked means the joint was observed directly.
	Tracked
)

// String returns the wire name of the tracking state.
func (s TrackingState) String() string {
	switch s {
	case Tracked:
		return "tracked"
	case Inferred:
		return "inferred"
	default:
		return "not-tracked"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TrackingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TrackingState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "tracked":
		*s = Tracked
	case "inferred":
		*s = Inferred
	case "not-tracked", "":
		*s = NotTracked
	default:
		return fmt.Errorf("unknown tracking state %q", string(text))
	}
	return nil
}

// Joint is a single joint position in sensor camera space, in meters.
// X grows toward the person's right when they face the sensor, Y grows
// upward and Z grows away from the sensor.
type Joint struct {
	Position r3.Vec
	State    TrackingState
}

// Distance returns the Euclidean distance between two joint positions.
func Distance(a, b Joint) float64 {
	return r3.Norm(r3.Sub(a.Position, b.Position))
}
