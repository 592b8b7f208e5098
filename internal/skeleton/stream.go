package skeleton

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Frame is the newline-delimited JSON record read by StreamSource.
type Frame struct {
	Bodies []Body `json:"bodies"`
}

// StreamSource reads frames from a newline-delimited JSON stream, one frame per
// line. Blank lines are skipped.
type StreamSource struct {
	config Config
	reader *bufio.Reader
	closer io.Closer
	line   int
	mu     sync.Mutex
}

// NewStreamSource creates a StreamSource reading from r.
func NewStreamSource(r io.Reader, config Config) *StreamSource {
	s := &StreamSource{
		config: config,
		reader: bufio.NewReader(r),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenReplay opens a recorded JSONL file as a StreamSource.
func OpenReplay(path string, config Config) (*StreamSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return NewStreamSource(f, config), nil
}

// Bodies returns the bodies of the next frame in the stream.
// Returns ErrEndOfStream once the stream is exhausted.
func (s *StreamSource) Bodies() ([]Body, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		raw, err := s.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read frame: %w", err)
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			if err != nil {
				return nil, ErrEndOfStream
			}
			continue
		}
		s.line++

		var frame Frame
		if uerr := json.Unmarshal(line, &frame); uerr != nil {
			return nil, fmt.Errorf("parse frame at line %d: %w", s.line, uerr)
		}
		return s.config.limit(frame.Bodies), nil
	}
}

// Close closes the underlying reader if it is closable.
func (s *StreamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// ReadSequence reads every frame of a recording into memory.
func ReadSequence(r io.Reader) ([][]Body, error) {
	src := NewStreamSource(r, Config{})

	var frames [][]Body
	for {
		bodies, err := src.Bodies()
		if errors.Is(err, ErrEndOfStream) {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, bodies)
	}
}

// WriteSequence writes frames in the format read by StreamSource.
func WriteSequence(w io.Writer, frames [][]Body) error {
	enc := json.NewEncoder(w)
	for i, bodies := range frames {
		if bodies == nil {
			bodies = []Body{}
		}
		if err := enc.Encode(Frame{Bodies: bodies}); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}
