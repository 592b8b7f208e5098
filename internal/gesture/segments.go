package gesture

import "github.com/ayusman/natya/internal/skeleton"

// Predicate thresholds, in meters unless noted.
const (
	zoomCloseDistance  = 0.15
	zoomWideDistance   = 0.45
	joinedDistance     = 0.10
	joinedNearDistance = 0.30
	menuReach          = 0.05

	// menuHoldFrames and joinedHoldFrames are the number of consecutive
	// matching frames the pose must be held for.
	menuHoldFrames   = 20
	joinedHoldFrames = 10
)

// waveSegment matches a forearm raised above the elbow with the hand on one
// side of it. A hand below the elbow rules the wave out.
func waveSegment(hand, elbow skeleton.JointType, handToRight bool) Segment {
	return SegmentFunc(func(b *skeleton.Body) Result {
		h, e := b.Position(hand), b.Position(elbow)
		if h.Y <= e.Y {
			return Failed
		}

		if (handToRight && h.X > e.X) || (!handToRight && h.X < e.X) {
			return Succeeded
		}
		return Undetermined
	})
}

// horizontalZone classifies a hand position against the shoulder line.
type horizontalZone int

const (
	zoneLeftOfShoulders horizontalZone = iota
	zoneBetweenShoulders
	zoneRightOfShoulders
)

func inHorizontalZone(b *skeleton.Body, x float64, zone horizontalZone) bool {
	left, right := b.Position(skeleton.ShoulderLeft).X, b.Position(skeleton.ShoulderRight).X
	switch zone {
	case zoneLeftOfShoulders:
		return x < left
	case zoneRightOfShoulders:
		return x > right
	default:
		return x >= left && x <= right
	}
}

// handInFront reports whether the hand is pushed out toward the sensor past
// its elbow and held between hip and head height.
func handInFront(b *skeleton.Body, hand, elbow skeleton.JointType) bool {
	h := b.Position(hand)
	if h.Z >= b.Position(elbow).Z {
		return false
	}
	return h.Y > b.Position(skeleton.SpineBase).Y && h.Y < b.Position(skeleton.Head).Y
}

// swipeSegment matches a hand held in front of the body inside one horizontal
// zone. Dropping the hand out of the swipe plane fails the gesture.
func swipeSegment(hand, elbow skeleton.JointType, zone horizontalZone) Segment {
	return SegmentFunc(func(b *skeleton.Body) Result {
		if !handInFront(b, hand, elbow) {
			return Failed
		}
		if inHorizontalZone(b, b.Position(hand).X, zone) {
			return Succeeded
		}
		return Undetermined
	})
}

// verticalBand classifies a hand height against the torso.
type verticalBand int

const (
	bandBelowShoulder verticalBand = iota
	bandShoulderToHead
	bandAboveHead
)

// liftSegment matches the right hand held in front of its elbow inside one
// vertical band.
func liftSegment(band verticalBand) Segment {
	return SegmentFunc(func(b *skeleton.Body) Result {
		h := b.Position(skeleton.HandRight)
		if h.Z >= b.Position(skeleton.ElbowRight).Z {
			return Failed
		}

		shoulder, head := b.Position(skeleton.ShoulderRight).Y, b.Position(skeleton.Head).Y
		var in bool
		switch band {
		case bandBelowShoulder:
			in = h.Y > b.Position(skeleton.SpineBase).Y && h.Y < shoulder
		case bandShoulderToHead:
			in = h.Y >= shoulder && h.Y < head
		case bandAboveHead:
			in = h.Y >= head
		}

		if in {
			return Succeeded
		}
		return Undetermined
	})
}

// zoomSegment matches both hands held in front of the chest with their
// separation inside [lo, hi).
func zoomSegment(lo, hi float64) Segment {
	return SegmentFunc(func(b *skeleton.Body) Result {
		if !handInFront(b, skeleton.HandLeft, skeleton.ElbowLeft) || !handInFront(b, skeleton.HandRight, skeleton.ElbowRight) {
			return Failed
		}

		d := skeleton.Distance(b.Joint(skeleton.HandLeft), b.Joint(skeleton.HandRight))
		if d >= lo && d < hi {
			return Succeeded
		}
		return Undetermined
	})
}

// menuSegment matches the left arm held out and down, away from the torso.
var menuSegment = SegmentFunc(func(b *skeleton.Body) Result {
	hand, elbow, shoulder := b.Position(skeleton.HandLeft), b.Position(skeleton.ElbowLeft), b.Position(skeleton.ShoulderLeft)
	if hand.Y >= elbow.Y || elbow.Y >= shoulder.Y {
		return Failed
	}

	if hand.X < elbow.X-menuReach && elbow.X < shoulder.X {
		return Succeeded
	}
	return Undetermined
})

// joinedHandsSegment matches both hands held together in front of the torso.
var joinedHandsSegment = SegmentFunc(func(b *skeleton.Body) Result {
	left, right := b.Joint(skeleton.HandLeft), b.Joint(skeleton.HandRight)
	base, head := b.Position(skeleton.SpineBase).Y, b.Position(skeleton.Head).Y
	for _, h := range []skeleton.Joint{left, right} {
		if h.Position.Y <= base || h.Position.Y >= head {
			return Failed
		}
	}

	d := skeleton.Distance(left, right)
	switch {
	case d < joinedDistance:
		return Succeeded
	case d < joinedNearDistance:
		return Undetermined
	default:
		return Failed
	}
})

// repeat returns n references to the same segment, for poses that must be held.
func repeat(seg Segment, n int) []Segment {
	out := make([]Segment, n)
	for i := range out {
		out[i] = seg
	}
	return out
}

// Built-in segment instances. Each is stateless and shared by every matcher
// of the gestures that use it.
var (
	waveRightOut = waveSegment(skeleton.HandRight, skeleton.ElbowRight, true)
	waveRightIn  = waveSegment(skeleton.HandRight, skeleton.ElbowRight, false)
	waveLeftOut  = waveSegment(skeleton.HandLeft, skeleton.ElbowLeft, false)
	waveLeftIn   = waveSegment(skeleton.HandLeft, skeleton.ElbowLeft, true)

	swipeRightStart = swipeSegment(skeleton.HandLeft, skeleton.ElbowLeft, zoneLeftOfShoulders)
	swipeRightMid   = swipeSegment(skeleton.HandLeft, skeleton.ElbowLeft, zoneBetweenShoulders)
	swipeRightEnd   = swipeSegment(skeleton.HandLeft, skeleton.ElbowLeft, zoneRightOfShoulders)
	swipeLeftStart  = swipeSegment(skeleton.HandRight, skeleton.ElbowRight, zoneRightOfShoulders)
	swipeLeftMid    = swipeSegment(skeleton.HandRight, skeleton.ElbowRight, zoneBetweenShoulders)
	swipeLeftEnd    = swipeSegment(skeleton.HandRight, skeleton.ElbowRight, zoneLeftOfShoulders)

	liftLow  = liftSegment(bandBelowShoulder)
	liftMid  = liftSegment(bandShoulderToHead)
	liftHigh = liftSegment(bandAboveHead)

	zoomClose = zoomSegment(0, zoomCloseDistance)
	zoomMid   = zoomSegment(zoomCloseDistance, zoomWideDistance)
	zoomWide  = zoomSegment(zoomWideDistance, 10)
)
