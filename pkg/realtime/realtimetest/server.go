// Package realtimetest provides an in-process fake of the Realtime WebSocket
// service for tests.
package realtimetest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/callbridge/pkg/realtime"
)

// Options tunes the fake server.
type Options struct {
	// RejectStatus, if non-zero, fails every handshake with this HTTP status.
	RejectStatus int

	// Silent suppresses the session.created greeting.
	Silent bool
}

// Server is a fake Realtime endpoint.
type Server struct {
	// URL is the ws:// address to pass to realtime.WithWebSocketURL.
	URL string

	srv      *httptest.Server
	opts     Options
	upgrader websocket.Upgrader
	accepted chan *Conn

	mu    sync.Mutex
	conns []*Conn
}

// NewServer starts a fake server. Call Close when done.
func NewServer(opts Options) *Server {
	s := &Server{opts: opts, accepted: make(chan *Conn, 16)}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	s.URL = "ws" + strings.TrimPrefix(s.srv.URL, "http")
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if s.opts.RejectStatus != 0 {
		http.Error(w, "rejected", s.opts.RejectStatus)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Conn{
		Header:   r.Header.Clone(),
		Query:    r.URL.Query(),
		ws:       ws,
		received: make(chan ClientEvent, 1024),
		done:     make(chan struct{}),
	}
	go c.readLoop()

	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()

	if !s.opts.Silent {
		c.Send(map[string]any{
			"type":     realtime.EventTypeSessionCreated,
			"event_id": "evt_created",
			"session":  map[string]any{"id": "sess_test", "object": "realtime.session"},
		})
	}
	s.accepted <- c
}

// Accept waits for the next session to connect.
func (s *Server) Accept(timeout time.Duration) (*Conn, error) {
	select {
	case c := <-s.accepted:
		return c, nil
	case <-time.After(timeout):
		return nil, errors.New("realtimetest: no session accepted")
	}
}

// Close shuts down the server and all sessions.
func (s *Server) Close() {
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.srv.Close()
}

// ClientEvent is one event sent by the client under test.
type ClientEvent struct {
	Type    string
	Audio   []byte
	Session *realtime.SessionConfig
	Raw     []byte
}

// Conn is one accepted session.
type Conn struct {
	Header http.Header
	Query  url.Values

	ws        *websocket.Conn
	wmu       sync.Mutex
	received  chan ClientEvent
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var raw struct {
			Type    string                  `json:"type"`
			Audio   string                  `json:"audio"`
			Session *realtime.SessionConfig `json:"session"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		ev := ClientEvent{Type: raw.Type, Session: raw.Session, Raw: data}
		if raw.Audio != "" {
			ev.Audio, _ = base64.StdEncoding.DecodeString(raw.Audio)
		}
		select {
		case c.received <- ev:
		default:
		}
	}
}

// Next returns the next client event.
func (c *Conn) Next(timeout time.Duration) (ClientEvent, error) {
	select {
	case ev := <-c.received:
		return ev, nil
	case <-c.done:
		select {
		case ev := <-c.received:
			return ev, nil
		default:
		}
		return ClientEvent{}, errors.New("realtimetest: client disconnected")
	case <-time.After(timeout):
		return ClientEvent{}, errors.New("realtimetest: timed out waiting for client event")
	}
}

// Done is closed once the client side of the session is gone.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send writes v as a JSON server event.
func (c *Conn) Send(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteJSON(v)
}

// SendRaw writes a text frame verbatim.
func (c *Conn) SendRaw(data string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(data))
}

// SendAudio sends a response.audio.delta carrying pcm.
func (c *Conn) SendAudio(pcm []byte) error {
	return c.Send(map[string]any{
		"type":     realtime.EventTypeResponseAudioDelta,
		"event_id": "evt_audio",
		"delta":    base64.StdEncoding.EncodeToString(pcm),
	})
}

// SendError sends an error event.
func (c *Conn) SendError(code, message string) error {
	return c.Send(map[string]any{
		"type":  realtime.EventTypeError,
		"error": map[string]any{"type": "server_error", "code": code, "message": message},
	})
}

// Close drops the session abruptly.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { c.ws.Close() })
}
