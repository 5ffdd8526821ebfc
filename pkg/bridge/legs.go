package bridge

import (
	"context"

	"github.com/haivivi/callbridge/pkg/mediastream"
	"github.com/haivivi/callbridge/pkg/realtime"
)

// TelephonyLeg is the provider side of a call. ReadEvent is called from a
// single goroutine; it returns errors wrapping mediastream.ErrMalformed for
// bad frames and any other error once the leg is gone.
type TelephonyLeg interface {
	ReadEvent() (*mediastream.Event, error)
	SendMedia(streamSID string, ulaw []byte) error
	Close(code int, reason string) error
}

// ModelLeg is the speech model side of a call. ReadEvent follows the same
// error contract as TelephonyLeg with realtime.ErrMalformed.
type ModelLeg interface {
	ReadEvent() (*realtime.ServerEvent, error)
	UpdateSession(cfg *realtime.SessionConfig) error
	AppendAudio(pcm []byte) error
	CommitInput() error
	Close() error
}

// ModelDialer opens model legs.
type ModelDialer interface {
	DialModel(ctx context.Context) (ModelLeg, error)
}

// DialerFunc adapts a function to ModelDialer.
type DialerFunc func(ctx context.Context) (ModelLeg, error)

// DialModel calls f(ctx).
func (f DialerFunc) DialModel(ctx context.Context) (ModelLeg, error) {
	return f(ctx)
}

// RealtimeDialer dials model legs with c.
func RealtimeDialer(c *realtime.Client) ModelDialer {
	return DialerFunc(func(ctx context.Context) (ModelLeg, error) {
		s, err := c.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

var (
	_ TelephonyLeg = (*mediastream.Conn)(nil)
	_ ModelLeg     = (*realtime.Session)(nil)
)
