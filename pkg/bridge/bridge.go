// Package bridge relays one phone call between a telephony media stream and a
// realtime speech model.
//
// A Bridge owns both legs of a call. Each leg is read by its own pump
// goroutine; every frame, dial result and timer lands in Run, which is the
// only goroutine that changes state or writes to a leg. Teardown happens in
// the same step that observed the failure: both legs are closed, the pumps
// are drained and the tracker sees exactly one disconnected edge.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/callbridge/pkg/mediastream"
	"github.com/haivivi/callbridge/pkg/realtime"
)

// ErrSetup is wrapped by Run errors for calls that never became active
// because of a bad start or an unavailable model.
var ErrSetup = errors.New("bridge: setup failed")

// pumpBuffer is the per-leg frame queue between a pump and Run.
const pumpBuffer = 64

// Session is a snapshot of the call a Bridge serves.
type Session struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id"`
	AgentID   string    `json:"agent_id"`
	StreamID  string    `json:"stream_id,omitempty"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

type telFrame struct {
	ev  *mediastream.Event
	err error
}

type modelFrame struct {
	ev  *realtime.ServerEvent
	err error
}

type dialResult struct {
	leg ModelLeg
	err error
}

// Bridge runs one call. Create it with New and call Run exactly once.
type Bridge struct {
	tel    TelephonyLeg
	dialer ModelDialer
	params SessionParams
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	session Session
	created bool

	// Owned by Run.
	model      ModelLeg
	dialCh     chan dialResult
	dialCancel context.CancelFunc
	readyTimer *time.Timer
	closeCode  int
	closeMsg   string
	closeErr   error

	stop      chan struct{}
	pumps     sync.WaitGroup
	closeReq  chan struct{}
	closeOnce sync.Once
	telOnce   sync.Once
	modelOnce sync.Once

	stats counters
}

// New creates a bridge for the call described by params, reading from tel
// and dialing the model with dialer once the stream starts.
func New(tel TelephonyLeg, dialer ModelDialer, params SessionParams, cfg Config) *Bridge {
	cfg = cfg.withDefaults()
	b := &Bridge{
		tel:      tel,
		dialer:   dialer,
		params:   params,
		cfg:      cfg,
		stop:     make(chan struct{}),
		closeReq: make(chan struct{}),
	}
	b.session = Session{
		ID:     uuid.NewString(),
		CallID: params.CallID,
		State:  StateInit,
	}
	if params.Profile != nil {
		b.session.AgentID = params.Profile.ID
	}
	b.logger = cfg.Logger.With("callID", params.CallID, "agentID", b.session.AgentID)
	return b
}

// Session returns a snapshot of the call.
func (b *Bridge) Session() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// State returns the current state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.State
}

// Stats returns the traffic counters so far.
func (b *Bridge) Stats() Stats {
	return b.stats.snapshot()
}

// Close asks Run to tear the call down. It does not wait.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.closeReq) })
}

// Run drives the call until both legs are closed. It returns nil when the
// call ended normally, an error wrapping ErrSetup when it never became
// active, and otherwise the transport or model error that ended it.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("bridge: started")

	telCh := make(chan telFrame, pumpBuffer)
	b.pumps.Add(1)
	go b.pumpTelephony(telCh)

	var modelCh chan modelFrame
	for b.state() != StateClosing {
		var readyC <-chan time.Time
		if b.readyTimer != nil {
			readyC = b.readyTimer.C
		}

		select {
		case <-ctx.Done():
			b.beginClose(mediastream.CloseNormal, "shutting down", nil)
		case <-b.closeReq:
			b.beginClose(mediastream.CloseNormal, "bridge closed", nil)
		case f := <-telCh:
			b.handleTelephony(ctx, f)
		case r := <-b.dialCh:
			b.dialCh = nil
			if m := b.handleDial(r); m != nil {
				modelCh = m
			}
		case f := <-modelCh:
			b.handleModel(f)
		case <-readyC:
			b.setupFailed(mediastream.CloseModelUnavailable, "model not ready",
				fmt.Errorf("%w: model not ready after %v", ErrSetup, b.cfg.ReadyTimeout))
		}
	}

	b.teardown()
	return b.closeErr
}

func (b *Bridge) state() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.State
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	from := b.session.State
	b.session.State = s
	b.mu.Unlock()
	b.logger.Debug("bridge: state changed", "from", from, "to", s)
}

// beginClose records why the call ends and moves to CLOSING. Only the
// first reason is kept.
func (b *Bridge) beginClose(code int, reason string, err error) {
	if b.state() >= StateClosing {
		return
	}
	b.closeCode, b.closeMsg, b.closeErr = code, reason, err
	b.setState(StateClosing)
}

func (b *Bridge) setupFailed(code int, reason string, err error) {
	b.logger.Warn("bridge: setup failed", "reason", reason, "error", err)
	b.beginClose(code, reason, err)
}

// startModel moves to MODEL_CONNECTING and dials in the background.
func (b *Bridge) startModel(ctx context.Context) {
	b.setState(StateModelConnecting)

	dctx, cancel := context.WithCancel(ctx)
	b.dialCancel = cancel
	b.dialCh = make(chan dialResult, 1)
	b.readyTimer = time.NewTimer(b.cfg.ReadyTimeout)

	go func(ch chan<- dialResult) {
		leg, err := b.dialer.DialModel(dctx)
		ch <- dialResult{leg: leg, err: err}
	}(b.dialCh)
}

func (b *Bridge) handleDial(r dialResult) chan modelFrame {
	if r.err != nil {
		b.setupFailed(mediastream.CloseModelUnavailable, "model unavailable",
			fmt.Errorf("%w: dial model: %w", ErrSetup, r.err))
		return nil
	}
	b.model = r.leg
	b.logger.Info("bridge: model connected, waiting for session")

	ch := make(chan modelFrame, pumpBuffer)
	b.pumps.Add(1)
	go b.pumpModel(r.leg, ch)
	return ch
}

func (b *Bridge) pumpTelephony(out chan<- telFrame) {
	defer b.pumps.Done()
	for {
		ev, err := b.tel.ReadEvent()
		select {
		case out <- telFrame{ev: ev, err: err}:
		case <-b.stop:
			return
		}
		if err != nil && !errors.Is(err, mediastream.ErrMalformed) {
			return
		}
	}
}

func (b *Bridge) pumpModel(leg ModelLeg, out chan<- modelFrame) {
	defer b.pumps.Done()
	for {
		ev, err := leg.ReadEvent()
		select {
		case out <- modelFrame{ev: ev, err: err}:
		case <-b.stop:
			return
		}
		if err != nil && !errors.Is(err, realtime.ErrMalformed) {
			return
		}
	}
}

// teardown closes both legs, waits for the pumps and reports the
// disconnected edge.
func (b *Bridge) teardown() {
	close(b.stop)
	if b.readyTimer != nil {
		b.readyTimer.Stop()
	}

	b.closeTelephony(b.closeCode, b.closeMsg)
	if b.dialCancel != nil {
		b.dialCancel()
	}
	if b.dialCh != nil {
		// The dial may still hand us a leg; nobody else will close it.
		if r := <-b.dialCh; r.leg != nil {
			b.model = r.leg
		}
		b.dialCh = nil
	}
	b.closeModel()
	b.pumps.Wait()

	b.setState(StateClosed)

	b.mu.Lock()
	created := b.created
	b.mu.Unlock()
	if created {
		b.cfg.Recorder.Disconnected(b.params.CallID, time.Now())
	}

	st := b.stats.snapshot()
	b.logger.Info("bridge: closed",
		"code", b.closeCode,
		"reason", b.closeMsg,
		"error", b.closeErr,
		"inFrames", st.InboundFrames,
		"outFrames", st.OutboundFrames,
		"inAudio", st.InboundDuration(),
		"outAudio", st.OutboundDuration(),
		"dropped", st.Dropped,
	)
}

func (b *Bridge) closeTelephony(code int, reason string) {
	b.telOnce.Do(func() {
		if err := b.tel.Close(code, reason); err != nil {
			b.logger.Debug("bridge: close telephony", "error", err)
		}
	})
}

func (b *Bridge) closeModel() {
	if b.model == nil {
		return
	}
	b.modelOnce.Do(func() {
		if err := b.model.Close(); err != nil {
			b.logger.Debug("bridge: close model", "error", err)
		}
	})
}
