package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 4 << 20
	writeTimeout   = 5 * time.Second
)

// Session is one realtime WebSocket session. ReadEvent must be called from a
// single goroutine; the send methods and Close are safe for concurrent use.
type Session struct {
	conn *websocket.Conn

	mu        sync.Mutex // serializes writes, guards sessionID
	sessionID string
	closeOnce sync.Once
	closeErr  error
}

func newSession(conn *websocket.Conn) *Session {
	conn.SetReadLimit(maxMessageSize)
	return &Session{conn: conn}
}

// generateEventID generates a unique event ID.
func generateEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// UpdateSession sends session.update.
func (s *Session) UpdateSession(config *SessionConfig) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeSessionUpdate,
		"session":  config,
	})
}

// AppendAudio appends PCM16 audio to the input audio buffer.
func (s *Session) AppendAudio(audio []byte) error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferAppend,
		"audio":    base64.StdEncoding.EncodeToString(audio),
	})
}

// CommitInput commits the input audio buffer.
func (s *Session) CommitInput() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferCommit,
	})
}

// ClearInput clears the input audio buffer.
func (s *Session) ClearInput() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeInputAudioBufferClear,
	})
}

// CancelResponse cancels the response in progress.
func (s *Session) CancelResponse() error {
	return s.sendEvent(map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeResponseCancel,
	})
}

// SessionID returns the server-assigned session ID, or "" before
// session.created has been read.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ReadEvent reads the next server event. Errors wrapping ErrMalformed
// concern a single message; any other error means the session is gone.
// Error events from the server are returned as events, not errors.
func (s *Session) ReadEvent() (*ServerEvent, error) {
	_, message, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("realtime: read: %w", err)
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		msgStr := string(message)
		if len(msgStr) > 1000 {
			msgStr = msgStr[:1000] + "..."
		}
		slog.Debug("realtime: received message", "len", len(message), "content", msgStr)
	}

	event, err := ParseEvent(message)
	if err != nil {
		return nil, err
	}
	if event.Type == EventTypeSessionCreated && event.Session != nil {
		s.mu.Lock()
		s.sessionID = event.Session.ID
		s.mu.Unlock()
	}
	return event, nil
}

// Events returns an iterator over server events. Malformed messages are
// yielded as errors and iteration continues; a transport error is yielded
// once and ends iteration.
func (s *Session) Events() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			ev, err := s.ReadEvent()
			if !yield(ev, err) {
				return
			}
			if err != nil && !errors.Is(err, ErrMalformed) {
				return
			}
		}
	}
}

// Close closes the session. Only the first call has any effect.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.mu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *Session) sendEvent(event map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if event["type"] != EventTypeInputAudioBufferAppend {
			if jsonBytes, err := json.Marshal(event); err == nil {
				str := string(jsonBytes)
				if len(str) > 500 {
					str = str[:500] + "..."
				}
				slog.Debug("realtime: sending event", "content", str)
			}
		}
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(event); err != nil {
		return fmt.Errorf("realtime: send %v: %w", event["type"], err)
	}
	return nil
}

// ParseEvent decodes one server message. Audio deltas are base64-decoded
// into Audio.
func ParseEvent(message []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	event.Raw = message

	if event.Type == EventTypeResponseAudioDelta {
		audio, err := base64.StdEncoding.DecodeString(event.Delta)
		if err != nil {
			return nil, fmt.Errorf("%w: audio delta: %v", ErrMalformed, err)
		}
		event.Audio = audio
	}
	if event.Type == EventTypeError && event.Error == nil {
		event.Error = &Error{Message: "unspecified error"}
	}
	return &event, nil
}
