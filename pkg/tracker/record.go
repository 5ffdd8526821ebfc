package tracker

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/callbridge/pkg/kv"
)

// Status is the last lifecycle edge seen for a call.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Record is the persisted state of one call.
type Record struct {
	CallID         string    `msgpack:"call_id"`
	StreamID       string    `msgpack:"stream_id,omitempty"`
	Status         Status    `msgpack:"status"`
	ConnectedAt    time.Time `msgpack:"connected_at,omitempty"`
	DisconnectedAt time.Time `msgpack:"disconnected_at,omitempty"`
}

// Duration is the connected time of a finished call, or 0.
func (r *Record) Duration() time.Duration {
	if r.ConnectedAt.IsZero() || r.DisconnectedAt.IsZero() {
		return 0
	}
	return r.DisconnectedAt.Sub(r.ConnectedAt)
}

// ErrNotFound is returned by Get for unknown calls.
var ErrNotFound = errors.New("tracker: call not found")

// Key layout:
//
//	call:{callID} → msgpack-encoded Record
const keyPrefix = "call"

func recordKey(callID string) kv.Key {
	return kv.Key{keyPrefix, callID}
}

// KV is a Tracker that keeps one Record per call in a kv.Store.
type KV struct {
	store kv.Store
	now   func() time.Time
}

// NewKV returns a Tracker over store.
func NewKV(store kv.Store) *KV {
	return &KV{store: store, now: time.Now}
}

// RecordConnected marks callID connected on streamID.
func (t *KV) RecordConnected(ctx context.Context, callID, streamID string) error {
	return t.update(ctx, callID, func(r *Record) {
		r.StreamID = streamID
		r.Status = StatusConnected
		r.ConnectedAt = t.now()
		r.DisconnectedAt = time.Time{}
	})
}

// RecordDisconnected marks callID disconnected at the given time. A call
// never seen connected still gets a record.
func (t *KV) RecordDisconnected(ctx context.Context, callID string, at time.Time) error {
	return t.update(ctx, callID, func(r *Record) {
		r.Status = StatusDisconnected
		r.DisconnectedAt = at
	})
}

func (t *KV) update(ctx context.Context, callID string, fn func(*Record)) error {
	if callID == "" {
		return errors.New("tracker: empty call id")
	}
	err := t.store.Update(ctx, recordKey(callID), func(old []byte, found bool) ([]byte, error) {
		r := Record{CallID: callID}
		if found {
			if err := msgpack.Unmarshal(old, &r); err != nil {
				return nil, fmt.Errorf("decode: %w", err)
			}
		}
		fn(&r)
		return msgpack.Marshal(&r)
	})
	if err != nil {
		return fmt.Errorf("tracker: update %s: %w", callID, err)
	}
	return nil
}

// Get returns the record of callID.
func (t *KV) Get(ctx context.Context, callID string) (*Record, error) {
	data, err := t.store.Get(ctx, recordKey(callID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, callID)
	}
	if err != nil {
		return nil, fmt.Errorf("tracker: get %s: %w", callID, err)
	}
	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("tracker: decode %s: %w", callID, err)
	}
	return &r, nil
}

// List iterates over all records in call ID order. Undecodable entries are
// skipped.
func (t *KV) List(ctx context.Context) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for entry, err := range t.store.List(ctx, kv.Key{keyPrefix}) {
			if err != nil {
				yield(nil, err)
				return
			}
			var r Record
			if err := msgpack.Unmarshal(entry.Value, &r); err != nil {
				continue
			}
			if !yield(&r, nil) {
				return
			}
		}
	}
}

var _ Tracker = (*KV)(nil)
