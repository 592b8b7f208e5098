// Package testdata holds recorded body-tracking sequences for tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ayusman/natya/internal/skeleton"
)

//go:embed sequences/*.jsonl
var sequencesFS embed.FS

// Recorded sequences.
const (
	// WaveRight is one body waving its right hand three times, bracketed by
	// empty frames and standing still.
	WaveRight = "wave-right"
	// SwipeLeft is one body sweeping its right hand from right to left.
	SwipeLeft = "swipe-left"
	// Standing is one body standing still for 40 frames.
	Standing = "standing"
)

// WaveRightTrackingID is the tracking ID of the body in the WaveRight sequence.
const WaveRightTrackingID uint64 = 72057594037928100

func readSequence(name string) ([]byte, error) {
	data, err := sequencesFS.ReadFile("sequences/" + name + ".jsonl")
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}
	return data, nil
}

// LoadSequence loads every frame of a recorded sequence.
func LoadSequence(name string) ([][]skeleton.Body, error) {
	data, err := readSequence(name)
	if err != nil {
		return nil, err
	}

	frames, err := skeleton.ReadSequence(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode sequence %s: %w", name, err)
	}
	return frames, nil
}

// OpenSequence returns a finite source replaying a recorded sequence.
func OpenSequence(name string) (skeleton.Source, error) {
	data, err := readSequence(name)
	if err != nil {
		return nil, err
	}
	return skeleton.NewStreamSource(bytes.NewReader(data), skeleton.DefaultConfig()), nil
}
