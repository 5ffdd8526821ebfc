package realtime_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/haivivi/callbridge/pkg/realtime"
	"github.com/haivivi/callbridge/pkg/realtime/realtimetest"
)

const timeout = 5 * time.Second

func dial(t *testing.T, opts realtimetest.Options) (*realtime.Session, *realtimetest.Conn) {
	t.Helper()
	srv := realtimetest.NewServer(opts)
	t.Cleanup(srv.Close)

	client := realtime.NewClient("sk-test",
		realtime.WithWebSocketURL(srv.URL),
		realtime.WithModel(realtime.ModelGPT4oMiniRealtimePreview),
		realtime.WithProject("proj_1"),
	)
	sess, err := client.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { sess.Close() })

	conn, err := srv.Accept(timeout)
	if err != nil {
		t.Fatal(err)
	}
	return sess, conn
}

func TestDialSendsAuthAndModel(t *testing.T) {
	sess, conn := dial(t, realtimetest.Options{})

	if got := conn.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q", got)
	}
	if got := conn.Header.Get("OpenAI-Beta"); got != "realtime=v1" {
		t.Errorf("OpenAI-Beta = %q", got)
	}
	if got := conn.Header.Get("OpenAI-Project"); got != "proj_1" {
		t.Errorf("OpenAI-Project = %q", got)
	}
	if got := conn.Query.Get("model"); got != realtime.ModelGPT4oMiniRealtimePreview {
		t.Errorf("model = %q", got)
	}

	ev, err := sess.ReadEvent()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != realtime.EventTypeSessionCreated {
		t.Fatalf("first event = %q", ev.Type)
	}
	if sess.SessionID() != "sess_test" {
		t.Fatalf("SessionID() = %q", sess.SessionID())
	}
}

func TestDialRejected(t *testing.T) {
	srv := realtimetest.NewServer(realtimetest.Options{RejectStatus: http.StatusUnauthorized})
	defer srv.Close()

	client := realtime.NewClient("sk-bad", realtime.WithWebSocketURL(srv.URL))
	_, err := client.Dial(context.Background())
	apiErr, ok := realtime.AsError(err)
	if !ok {
		t.Fatalf("error = %v, want *realtime.Error", err)
	}
	if apiErr.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("HTTPStatus = %d", apiErr.HTTPStatus)
	}
}

func TestDialUnreachable(t *testing.T) {
	client := realtime.NewClient("sk", realtime.WithWebSocketURL("ws://127.0.0.1:1/"), realtime.WithHandshakeTimeout(time.Second))
	if _, err := client.Dial(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSendEvents(t *testing.T) {
	sess, conn := dial(t, realtimetest.Options{Silent: true})

	cfg := &realtime.SessionConfig{
		Instructions:      "be brief",
		Voice:             realtime.VoiceAlloy,
		InputAudioFormat:  realtime.AudioFormatPCM16,
		OutputAudioFormat: realtime.AudioFormatPCM16,
		TurnDetection: &realtime.TurnDetection{
			Type:              realtime.VADServerVAD,
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 500,
		},
	}
	if err := sess.UpdateSession(cfg); err != nil {
		t.Fatal(err)
	}
	if err := sess.AppendAudio([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := sess.CommitInput(); err != nil {
		t.Fatal(err)
	}

	ev, err := conn.Next(timeout)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != realtime.EventTypeSessionUpdate || ev.Session == nil {
		t.Fatalf("event 1 = %+v", ev)
	}
	if ev.Session.Instructions != "be brief" || ev.Session.TurnDetection.SilenceDurationMs != 500 {
		t.Fatalf("session = %+v", ev.Session)
	}

	ev, err = conn.Next(timeout)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != realtime.EventTypeInputAudioBufferAppend || !bytes.Equal(ev.Audio, []byte{1, 2, 3, 4}) {
		t.Fatalf("event 2 = %+v", ev)
	}
	if !bytes.Contains(ev.Raw, []byte(`"event_id":"evt_`)) {
		t.Fatalf("event id missing: %s", ev.Raw)
	}

	ev, err = conn.Next(timeout)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != realtime.EventTypeInputAudioBufferCommit {
		t.Fatalf("event 3 = %+v", ev)
	}
}

func TestReadEvents(t *testing.T) {
	sess, conn := dial(t, realtimetest.Options{Silent: true})

	conn.SendAudio([]byte{0x10, 0x00, 0xF0, 0xFF})
	conn.SendRaw(`{"type":`)
	conn.SendRaw(`{"type":"response.audio.delta","delta":"@@@"}`)
	conn.Send(map[string]any{"type": realtime.EventTypeResponseAudioTranscriptDone, "transcript": "hello there"})
	conn.SendError("rate_limit_exceeded", "slow down")

	ev, err := sess.ReadEvent()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ev.Audio, []byte{0x10, 0x00, 0xF0, 0xFF}) {
		t.Fatalf("Audio = %x", ev.Audio)
	}

	for range 2 {
		if _, err := sess.ReadEvent(); !errors.Is(err, realtime.ErrMalformed) {
			t.Fatalf("error = %v, want ErrMalformed", err)
		}
	}

	ev, err = sess.ReadEvent()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Transcript != "hello there" {
		t.Fatalf("Transcript = %q", ev.Transcript)
	}

	ev, err = sess.ReadEvent()
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != realtime.EventTypeError || ev.Error == nil || ev.Error.Code != "rate_limit_exceeded" {
		t.Fatalf("error event = %+v", ev)
	}

	conn.Close()
	if _, err := sess.ReadEvent(); err == nil || errors.Is(err, realtime.ErrMalformed) {
		t.Fatalf("error after server close = %v, want transport error", err)
	}
}

func TestEventsIterator(t *testing.T) {
	sess, conn := dial(t, realtimetest.Options{})

	conn.SendRaw(`nope`)
	conn.Send(map[string]any{"type": realtime.EventTypeResponseDone, "response": map[string]any{"status": "completed"}})
	go func() {
		time.Sleep(50 * time.Millisecond)
		conn.Close()
	}()

	var types []string
	var malformed, transport int
	for ev, err := range sess.Events() {
		switch {
		case errors.Is(err, realtime.ErrMalformed):
			malformed++
		case err != nil:
			transport++
		default:
			types = append(types, ev.Type)
		}
	}
	if malformed != 1 || transport != 1 {
		t.Fatalf("malformed=%d transport=%d", malformed, transport)
	}
	if len(types) != 2 || types[0] != realtime.EventTypeSessionCreated || types[1] != realtime.EventTypeResponseDone {
		t.Fatalf("types = %v", types)
	}
}

func TestCloseIdempotent(t *testing.T) {
	sess, conn := dial(t, realtimetest.Options{})

	sess.Close()
	sess.Close()
	select {
	case <-conn.Done():
	case <-time.After(timeout):
		t.Fatal("server did not observe close")
	}
}

func TestParseEventErrorWithoutBody(t *testing.T) {
	ev, err := realtime.ParseEvent([]byte(`{"type":"error"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Error == nil {
		t.Fatal("Error not populated")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	realtime.NewClient("")
}
