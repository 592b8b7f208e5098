package skeleton

import "errors"

// ErrEndOfStream is returned by finite sources once every frame has been read.
var ErrEndOfStream = errors.New("end of body stream")

// Source defines the interface for body-tracking frame providers.
type Source interface {
	// Bodies returns the bodies visible in the next frame.
	// Returns an empty slice if nobody is in view.
	Bodies() ([]Body, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds configuration options for body sources.
type Config struct {
	// MaxBodies is the maximum number of bodies reported per frame (default: 6).
	MaxBodies int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxBodies: 6,
	}
}

// limit truncates a frame to the configured maximum number of bodies.
func (c Config) limit(bodies []Body) []Body {
	if c.MaxBodies > 0 && len(bodies) > c.MaxBodies {
		return bodies[:c.MaxBodies]
	}
	return bodies
}
