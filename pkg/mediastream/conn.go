// Package mediastream speaks the telephony provider's Media Streams protocol:
// JSON envelopes over a WebSocket carrying base64 μ-law audio at 8 kHz.
//
// The provider dials us. Wrap the accepted WebSocket with NewConn, read
// events with ReadEvent and answer with SendMedia.
package mediastream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrMalformed is wrapped by ReadEvent errors for messages that could not be
// understood. The connection itself is still usable.
var ErrMalformed = errors.New("mediastream: malformed message")

// Close codes sent to the provider. The 4xxx range is application defined.
const (
	CloseNormal           = websocket.CloseNormalClosure // 1000
	CloseBadRequest       = 4400                         // missing identifiers or malformed start
	CloseNotFound         = 4404                         // agent profile unknown or unusable
	CloseTooManySessions  = 4429                         // accept rate or session cap exceeded
	CloseInternalError    = 4500                         // profile store failure
	CloseModelUnavailable = 4502                         // model leg failed to connect or errored
)

const (
	maxMessageSize = 1 << 20
	writeTimeout   = 5 * time.Second
)

// Conn is a Media Streams connection. ReadEvent must be called from a single
// goroutine; the send methods and Close are safe for concurrent use.
type Conn struct {
	ws *websocket.Conn

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an accepted WebSocket.
func NewConn(ws *websocket.Conn) *Conn {
	ws.SetReadLimit(maxMessageSize)
	return &Conn{ws: ws}
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

// ReadEvent reads the next event. Media payloads are base64-decoded into
// Media.Audio. Errors wrapping ErrMalformed concern a single message; any
// other error means the connection is gone.
func (c *Conn) ReadEvent() (*Event, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("mediastream: read: %w", err)
	}
	ev, err := ParseEvent(data)
	if err != nil {
		return nil, err
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) && ev.Event != EventMedia {
		slog.Debug("mediastream: received", "event", ev.Event, "streamSid", ev.StreamSID)
	}
	return ev, nil
}

// ParseEvent decodes one wire message.
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch ev.Event {
	case "":
		return nil, fmt.Errorf("%w: missing event", ErrMalformed)
	case EventStart:
		if ev.Start == nil {
			return nil, fmt.Errorf("%w: start without payload", ErrMalformed)
		}
		if ev.StreamSID == "" {
			ev.StreamSID = ev.Start.StreamSID
		}
	case EventMedia:
		if ev.Media == nil {
			return nil, fmt.Errorf("%w: media without payload", ErrMalformed)
		}
		audio, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: media payload: %v", ErrMalformed, err)
		}
		ev.Media.Audio = audio
	}
	return &ev, nil
}

// SendMedia sends μ-law audio to be played on the stream.
func (c *Conn) SendMedia(streamSID string, ulaw []byte) error {
	return c.write(&Event{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     &Media{Payload: base64.StdEncoding.EncodeToString(ulaw)},
	})
}

// SendMark asks the provider to echo name once queued audio has played.
func (c *Conn) SendMark(streamSID, name string) error {
	return c.write(&Event{Event: EventMark, StreamSID: streamSID, Mark: &Mark{Name: name}})
}

// SendClear discards audio queued for playback.
func (c *Conn) SendClear(streamSID string) error {
	return c.write(&Event{Event: EventClear, StreamSID: streamSID})
}

func (c *Conn) write(ev *Event) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(ev); err != nil {
		return fmt.Errorf("mediastream: write %s: %w", ev.Event, err)
	}
	return nil
}

// Close sends a close frame with code and reason, then closes the socket.
// Only the first call has any effect.
func (c *Conn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		c.wmu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.wmu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
