package bridge

import (
	"log/slog"
	"time"

	"github.com/haivivi/callbridge/pkg/profile"
	"github.com/haivivi/callbridge/pkg/realtime"
	"github.com/haivivi/callbridge/pkg/tracker"
)

// Defaults applied by Config for zero fields.
const (
	DefaultVoice             = realtime.VoiceAlloy
	DefaultVADThreshold      = 0.5
	DefaultPrefixPaddingMs   = 300
	DefaultSilenceDurationMs = 500
	DefaultReadyTimeout      = 10 * time.Second
)

// Config holds the settings shared by every bridge an acceptor creates.
type Config struct {
	// DefaultVoice is used when a profile names none.
	DefaultVoice string

	// Server VAD parameters sent in session.update.
	VADThreshold      float64
	PrefixPaddingMs   int
	SilenceDurationMs int

	// ReadyTimeout bounds MODEL_CONNECTING: dial plus session.created.
	ReadyTimeout time.Duration

	// TranscriptionModel, if set, enables caller transcripts.
	TranscriptionModel string

	// Recorder receives lifecycle edges. Defaults to tracker.Nop.
	Recorder tracker.Recorder

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.DefaultVoice == "" {
		c.DefaultVoice = DefaultVoice
	}
	if c.VADThreshold == 0 {
		c.VADThreshold = DefaultVADThreshold
	}
	if c.PrefixPaddingMs == 0 {
		c.PrefixPaddingMs = DefaultPrefixPaddingMs
	}
	if c.SilenceDurationMs == 0 {
		c.SilenceDurationMs = DefaultSilenceDurationMs
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = DefaultReadyTimeout
	}
	if c.Recorder == nil {
		c.Recorder = tracker.Nop{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// SessionParams identifies the call a bridge serves.
type SessionParams struct {
	CallID  string
	Profile *profile.Profile
}

// sessionConfig builds the session.update payload for p.
func (c Config) sessionConfig(p *profile.Profile) *realtime.SessionConfig {
	voice := p.Voice
	if voice == "" {
		voice = c.DefaultVoice
	}
	sc := &realtime.SessionConfig{
		Modalities:        []string{realtime.ModalityText, realtime.ModalityAudio},
		Instructions:      p.Instructions,
		Voice:             voice,
		InputAudioFormat:  realtime.AudioFormatPCM16,
		OutputAudioFormat: realtime.AudioFormatPCM16,
		TurnDetection: &realtime.TurnDetection{
			Type:              realtime.VADServerVAD,
			Threshold:         c.VADThreshold,
			PrefixPaddingMs:   c.PrefixPaddingMs,
			SilenceDurationMs: c.SilenceDurationMs,
		},
		Temperature: p.Temperature,
	}
	if c.TranscriptionModel != "" {
		sc.InputAudioTranscription = &realtime.TranscriptionConfig{Model: c.TranscriptionModel}
	}
	return sc
}
