package skeleton

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// BridgeSource reads frames from an external sensor bridge process. The bridge
// writes one JSON frame per line on stdout, in the format read by StreamSource.
type BridgeSource struct {
	config  Config
	command string
	args    []string
	cmd     *exec.Cmd
	stream  *StreamSource
	mu      sync.Mutex
	started bool
	closed  bool
}

// NewBridgeSource creates a new bridge source.
// The bridge process is started lazily on the first call to Bodies.
func NewBridgeSource(command string, args []string, config Config) (*BridgeSource, error) {
	if command == "" {
		return nil, fmt.Errorf("bridge command is required")
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("bridge %q not found: %w", command, err)
	}

	return &BridgeSource{
		config:  config,
		command: command,
		args:    args,
	}, nil
}

// Bodies returns the bodies of the next frame reported by the bridge. It
// blocks until the bridge writes a frame or the source is closed, after which
// it returns ErrEndOfStream.
func (b *BridgeSource) Bodies() ([]Body, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrEndOfStream
	}
	if err := b.ensureStarted(); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	stream := b.stream
	b.mu.Unlock()

	// The read happens unlocked so Close can kill a silent bridge.
	bodies, err := stream.Bodies()
	if err != nil {
		if b.isClosed() {
			return nil, ErrEndOfStream
		}
		return nil, err
	}
	return bodies, nil
}

// Close shuts down the bridge process and unblocks a pending Bodies call.
// The source cannot be restarted.
func (b *BridgeSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.shutdown()
}

func (b *BridgeSource) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *BridgeSource) ensureStarted() error {
	if b.started {
		return nil
	}

	b.cmd = exec.Command(b.command, b.args...)

	stdout, err := b.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Bridge diagnostics go straight to our stderr
	b.cmd.Stderr = os.Stderr

	if err := b.cmd.Start(); err != nil {
		return fmt.Errorf("start sensor bridge: %w", err)
	}

	b.stream = NewStreamSource(stdout, b.config)
	b.started = true

	return nil
}

func (b *BridgeSource) shutdown() error {
	if !b.started {
		return nil
	}

	if b.cmd.Process != nil {
		b.cmd.Process.Kill()
	}

	// Wait reports the kill signal and closes our end of stdout, which
	// fails any read still in flight.
	b.cmd.Wait()

	b.started = false
	b.cmd = nil
	b.stream = nil

	return nil
}
