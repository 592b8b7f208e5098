package skeleton

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Body is one tracked person in a single frame.
type Body struct {
	TrackingID uint64
	Tracked    bool
	Joints     [NumJoints]Joint
}

// Joint returns the joint of type t. Joints the sensor did not report are the
// zero Joint: NotTracked at the origin.
func (b *Body) Joint(t JointType) Joint {
	if !t.Valid() {
		return Joint{}
	}
	return b.Joints[t]
}

// Position returns the position of joint t.
func (b *Body) Position(t JointType) r3.Vec {
	return b.Joint(t).Position
}

// SetJoint stores a joint position and tracking state.
func (b *Body) SetJoint(t JointType, pos r3.Vec, state TrackingState) {
	if !t.Valid() {
		return
	}
	b.Joints[t] = Joint{Position: pos, State: state}
}

// jsonBody is the wire form used by stream sources and the websocket API.
type jsonBody struct {
	TrackingID uint64      `json:"tracking_id"`
	Tracked    bool        `json:"tracked"`
	Joints     []jsonJoint `json:"joints"`
}

type jsonJoint struct {
	Type  string        `json:"type"`
	X     float64       `json:"x"`
	Y     float64       `json:"y"`
	Z     float64       `json:"z"`
	State TrackingState `json:"state"`
}

// MarshalJSON encodes the body with only its reported joints.
func (b Body) MarshalJSON() ([]byte, error) {
	out := jsonBody{
		TrackingID: b.TrackingID,
		Tracked:    b.Tracked,
		Joints:     make([]jsonJoint, 0, NumJoints),
	}
	for i, j := range b.Joints {
		if j.State == NotTracked && j.Position == (r3.Vec{}) {
			continue
		}
		out.Joints = append(out.Joints, jsonJoint{
			Type:  JointType(i).String(),
			X:     j.Position.X,
			Y:     j.Position.Y,
			Z:     j.Position.Z,
			State: j.State,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire form. Joints missing from the payload are left
// NotTracked.
func (b *Body) UnmarshalJSON(data []byte) error {
	var in jsonBody
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	decoded := Body{TrackingID: in.TrackingID, Tracked: in.Tracked}
	for _, j := range in.Joints {
		t, err := ParseJointType(j.Type)
		if err != nil {
			return fmt.Errorf("body %d: %w", in.TrackingID, err)
		}
		decoded.Joints[t] = Joint{
			Position: r3.Vec{X: j.X, Y: j.Y, Z: j.Z},
			State:    j.State,
		}
	}

	*b = decoded
	return nil
}
