package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds each asynchronous tracker call.
const DefaultTimeout = 5 * time.Second

// Async runs Tracker calls in background goroutines so that callers never
// wait on persistence. Calls for the same call ID are applied in the order
// they were made. Failures are logged and dropped.
type Async struct {
	tracker Tracker
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu   sync.Mutex
	tail map[string]chan struct{}
}

// AsyncConfig configures NewAsync.
type AsyncConfig struct {
	// Timeout bounds each call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Logger receives failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewAsync wraps t.
func NewAsync(t Tracker, cfg AsyncConfig) *Async {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Async{
		tracker: t,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		tail:    make(map[string]chan struct{}),
	}
}

// Connected records the connected edge in the background.
func (a *Async) Connected(callID, streamID string) {
	a.run("connected", callID, func(ctx context.Context) error {
		return a.tracker.RecordConnected(ctx, callID, streamID)
	})
}

// Disconnected records the disconnected edge in the background.
func (a *Async) Disconnected(callID string, at time.Time) {
	a.run("disconnected", callID, func(ctx context.Context) error {
		return a.tracker.RecordDisconnected(ctx, callID, at)
	})
}

func (a *Async) run(edge, callID string, fn func(context.Context) error) {
	done := make(chan struct{})
	a.mu.Lock()
	prev := a.tail[callID]
	a.tail[callID] = done
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			close(done)
			a.mu.Lock()
			if a.tail[callID] == done {
				delete(a.tail, callID)
			}
			a.mu.Unlock()
		}()
		if prev != nil {
			<-prev
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			a.logger.Warn("tracker: record failed", "edge", edge, "callID", callID, "error", err)
		}
	}()
}

// Wait blocks until all pending calls have finished.
func (a *Async) Wait() {
	a.wg.Wait()
}

var _ Recorder = (*Async)(nil)
