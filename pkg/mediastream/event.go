package mediastream

import "encoding/json"

// Event names used on the media stream.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventDTMF      = "dtmf"
	EventStop      = "stop"
	EventClear     = "clear"
)

// Event is one JSON message on the media stream. Exactly one of the
// per-event payloads is set, matching Event.
type Event struct {
	Event          string `json:"event"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
	StreamSID      string `json:"streamSid,omitempty"`

	// connected
	Protocol string `json:"protocol,omitempty"`
	Version  string `json:"version,omitempty"`

	Start *Start `json:"start,omitempty"`
	Media *Media `json:"media,omitempty"`
	Mark  *Mark  `json:"mark,omitempty"`
	DTMF  *DTMF  `json:"dtmf,omitempty"`
	Stop  *Stop  `json:"stop,omitempty"`
}

// Start opens the stream and carries the call identity.
type Start struct {
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid,omitempty"`
	CallSID          string            `json:"callSid,omitempty"`
	Tracks           []string          `json:"tracks,omitempty"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// MediaFormat describes the audio carried in media events.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// DefaultMediaFormat is the only format the provider streams.
var DefaultMediaFormat = MediaFormat{Encoding: "audio/x-mulaw", SampleRate: 8000, Channels: 1}

// Media carries one chunk of μ-law audio.
type Media struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`

	// Payload is base64 μ-law audio as sent on the wire.
	Payload string `json:"payload"`

	// Audio is the decoded Payload. Populated by Conn.ReadEvent.
	Audio []byte `json:"-"`
}

// Mark echoes a named marker after preceding audio has played.
type Mark struct {
	Name string `json:"name"`
}

// DTMF carries a keypad digit pressed by the caller.
type DTMF struct {
	Track string `json:"track,omitempty"`
	Digit string `json:"digit"`
}

// Stop closes the stream.
type Stop struct {
	AccountSID string `json:"accountSid,omitempty"`
	CallSID    string `json:"callSid,omitempty"`
}

// CallSID returns the call identifier from start or stop, if present.
func (e *Event) CallSID() string {
	switch {
	case e.Start != nil:
		return e.Start.CallSID
	case e.Stop != nil:
		return e.Stop.CallSID
	}
	return ""
}

// String renders the event as compact JSON for logs.
func (e *Event) String() string {
	b, err := json.Marshal(e)
	if err != nil {
		return e.Event
	}
	return string(b)
}
