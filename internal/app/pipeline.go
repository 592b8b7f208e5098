package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/natya/internal/gesture"
	"github.com/ayusman/natya/internal/monitoring"
	"github.com/ayusman/natya/internal/skeleton"
)

// ErrNoSource is returned by Start when the App has no body source.
var ErrNoSource = errors.New("no body source configured")

// Start begins the recognition pipeline on the configured source.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}
	if a.config.Source == nil {
		return ErrNoSource
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	monitoring.Logf("Recognition pipeline started")
	return nil
}

// Stop halts the pipeline, closes the body source, and waits for in-flight
// plugin actions. The App must not be used afterwards.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	// Closing the source unblocks a pipeline waiting on a silent bridge.
	if a.config.Source != nil {
		if err := a.config.Source.Close(); err != nil {
			monitoring.Logf("Error closing body source: %v", err)
		}
	}

	if doneCh != nil {
		<-doneCh
	}

	a.cancel()
	a.inflight.Wait()

	monitoring.Logf("Recognition pipeline stopped")
}

// Running reports whether the pipeline goroutine is active. It turns false
// once a finite source is exhausted.
func (a *App) Running() bool {
	a.mu.RLock()
	doneCh := a.doneCh
	a.mu.RUnlock()

	if doneCh == nil {
		return false
	}
	select {
	case <-doneCh:
		return false
	default:
		return true
	}
}

// runPipeline is the main recognition loop that reads frames from the source.
//
// It polls at the idle frame rate until a tracked body appears, then switches
// to the active rate. Once no body has been tracked for the idle timeout it
// drops back to the idle rate and resets the controller. A finite source ends
// the loop when it is exhausted.
func (a *App) runPipeline(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	idleInterval := time.Second / time.Duration(a.settings.GetIdleFPS())
	activeInterval := time.Second / time.Duration(a.settings.GetActiveFPS())
	idleTimeout := a.settings.GetIdleTimeout()

	activeMode := false
	lastSeen := time.Now()

	ticker := time.NewTicker(idleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			bodies, err := a.config.Source.Bodies()
			if errors.Is(err, skeleton.ErrEndOfStream) {
				monitoring.Logf("Body stream ended")
				return
			}
			if err != nil {
				select {
				case <-stopCh:
					return
				default:
				}
				monitoring.Logf("Error reading bodies: %v", err)
				continue
			}

			if anyTracked(bodies) {
				lastSeen = time.Now()
				if !activeMode {
					activeMode = true
					ticker.Reset(activeInterval)
					monitoring.Logf("Switched to active mode")
				}
			} else if activeMode && time.Since(lastSeen) > idleTimeout {
				activeMode = false
				ticker.Reset(idleInterval)
				a.controller.Reset()
				monitoring.Logf("Switched to idle mode")
			}

			a.Process(bodies)
		}
	}
}

func anyTracked(bodies []skeleton.Body) bool {
	for i := range bodies {
		if bodies[i].Tracked {
			return true
		}
	}
	return false
}

// Replay runs a finite source to completion on the calling goroutine, without
// frame pacing, and returns every recognition. It waits for the plugin actions
// it triggered before returning. The source is not closed.
func (a *App) Replay(ctx context.Context, src skeleton.Source) ([]gesture.Recognition, error) {
	var recs []gesture.Recognition
	defer a.inflight.Wait()

	for {
		if err := ctx.Err(); err != nil {
			return recs, err
		}

		bodies, err := src.Bodies()
		if errors.Is(err, skeleton.ErrEndOfStream) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}

		recs = append(recs, a.Process(bodies)...)
	}
}
