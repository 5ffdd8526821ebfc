package tracker_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haivivi/callbridge/pkg/kv"
	"github.com/haivivi/callbridge/pkg/tracker"
)

func newTestKV(t *testing.T) *tracker.KV {
	t.Helper()
	s := kv.NewMemory(nil)
	t.Cleanup(func() { s.Close() })
	return tracker.NewKV(s)
}

func TestKVLifecycle(t *testing.T) {
	tr := newTestKV(t)
	ctx := context.Background()

	if err := tr.RecordConnected(ctx, "CA1", "MZ1"); err != nil {
		t.Fatal(err)
	}
	r, err := tr.Get(ctx, "CA1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != tracker.StatusConnected || r.StreamID != "MZ1" || r.ConnectedAt.IsZero() {
		t.Fatalf("after connect: %+v", r)
	}
	if r.Duration() != 0 {
		t.Fatalf("Duration of live call = %v", r.Duration())
	}

	at := r.ConnectedAt.Add(90 * time.Second)
	if err := tr.RecordDisconnected(ctx, "CA1", at); err != nil {
		t.Fatal(err)
	}
	r, err = tr.Get(ctx, "CA1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != tracker.StatusDisconnected || r.StreamID != "MZ1" || !r.DisconnectedAt.Equal(at) {
		t.Fatalf("after disconnect: %+v", r)
	}
	if r.Duration() != 90*time.Second {
		t.Fatalf("Duration = %v", r.Duration())
	}
}

func TestKVDisconnectWithoutConnect(t *testing.T) {
	tr := newTestKV(t)
	ctx := context.Background()

	at := time.Now()
	if err := tr.RecordDisconnected(ctx, "CA2", at); err != nil {
		t.Fatal(err)
	}
	r, err := tr.Get(ctx, "CA2")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != tracker.StatusDisconnected || !r.ConnectedAt.IsZero() {
		t.Fatalf("record = %+v", r)
	}
}

func TestKVGetNotFound(t *testing.T) {
	tr := newTestKV(t)
	if _, err := tr.Get(context.Background(), "nope"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestKVRejectsEmptyCallID(t *testing.T) {
	tr := newTestKV(t)
	if err := tr.RecordConnected(context.Background(), "", "MZ"); err == nil {
		t.Fatal("expected error")
	}
}

func TestKVList(t *testing.T) {
	tr := newTestKV(t)
	ctx := context.Background()

	for _, id := range []string{"CA3", "CA1", "CA2"} {
		if err := tr.RecordConnected(ctx, id, "MZ-"+id); err != nil {
			t.Fatal(err)
		}
	}
	var ids []string
	for r, err := range tr.List(ctx) {
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.CallID)
	}
	if strings.Join(ids, ",") != "CA1,CA2,CA3" {
		t.Fatalf("List = %v", ids)
	}
}

type edge struct {
	kind     string
	callID   string
	streamID string
}

type fakeTracker struct {
	mu    sync.Mutex
	edges []edge
	err   error
	delay time.Duration

	// connectDelay slows only the connected edge.
	connectDelay time.Duration
}

func (f *fakeTracker) RecordConnected(ctx context.Context, callID, streamID string) error {
	if f.connectDelay > 0 {
		time.Sleep(f.connectDelay)
	}
	return f.record(ctx, edge{"connected", callID, streamID})
}

func (f *fakeTracker) RecordDisconnected(ctx context.Context, callID string, _ time.Time) error {
	return f.record(ctx, edge{"disconnected", callID, ""})
}

func (f *fakeTracker) record(ctx context.Context, e edge) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges = append(f.edges, e)
	return f.err
}

func TestAsyncDoesNotBlock(t *testing.T) {
	ft := &fakeTracker{delay: 200 * time.Millisecond}
	a := tracker.NewAsync(ft, tracker.AsyncConfig{})

	start := time.Now()
	a.Connected("CA1", "MZ1")
	a.Disconnected("CA1", time.Now())
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Recorder calls blocked for %v", elapsed)
	}

	a.Wait()
	if len(ft.edges) != 2 {
		t.Fatalf("edges = %+v", ft.edges)
	}
}

func TestAsyncOrdersEdgesPerCall(t *testing.T) {
	ft := &fakeTracker{connectDelay: 50 * time.Millisecond}
	a := tracker.NewAsync(ft, tracker.AsyncConfig{})

	a.Connected("CA1", "MZ1")
	a.Disconnected("CA1", time.Now())
	a.Disconnected("CA2", time.Now())
	a.Wait()

	var ca1 []string
	for _, e := range ft.edges {
		if e.callID == "CA1" {
			ca1 = append(ca1, e.kind)
		}
	}
	if len(ca1) != 2 || ca1[0] != "connected" || ca1[1] != "disconnected" {
		t.Fatalf("CA1 edges = %v", ca1)
	}
	// CA2 does not queue behind CA1.
	if ft.edges[0].callID != "CA2" {
		t.Errorf("first edge = %+v, want CA2", ft.edges[0])
	}
}

func TestAsyncLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ft := &fakeTracker{err: errors.New("db down")}
	a := tracker.NewAsync(ft, tracker.AsyncConfig{Logger: logger})

	a.Connected("CA9", "MZ9")
	a.Wait()

	out := buf.String()
	if !strings.Contains(out, "db down") || !strings.Contains(out, "callID=CA9") {
		t.Fatalf("log = %q", out)
	}
}

func TestAsyncTimeout(t *testing.T) {
	var buf bytes.Buffer
	ft := &fakeTracker{delay: time.Second}
	a := tracker.NewAsync(ft, tracker.AsyncConfig{
		Timeout: 20 * time.Millisecond,
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})

	a.Disconnected("CA1", time.Now())
	a.Wait()
	if !strings.Contains(buf.String(), "deadline exceeded") {
		t.Fatalf("log = %q", buf.String())
	}
}
