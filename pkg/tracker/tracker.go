// Package tracker records call lifecycle edges for post-call persistence:
// one "connected" edge when a call's bridge goes active and one
// "disconnected" edge when it closes.
//
// The bridge reports through a Recorder, which never blocks and never fails.
// Async adapts any Tracker to that contract.
package tracker

import (
	"context"
	"time"
)

// Tracker persists lifecycle edges. Implementations may block and fail.
type Tracker interface {
	RecordConnected(ctx context.Context, callID, streamID string) error
	RecordDisconnected(ctx context.Context, callID string, at time.Time) error
}

// Recorder is the fire-and-forget view of a Tracker used on the call path.
type Recorder interface {
	Connected(callID, streamID string)
	Disconnected(callID string, at time.Time)
}

// Nop discards all edges.
type Nop struct{}

func (Nop) Connected(string, string)       {}
func (Nop) Disconnected(string, time.Time) {}

func (Nop) RecordConnected(context.Context, string, string) error      { return nil }
func (Nop) RecordDisconnected(context.Context, string, time.Time) error { return nil }
