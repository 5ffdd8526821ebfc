package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/callbridge/pkg/audio/mulaw"
	"github.com/haivivi/callbridge/pkg/mediastream"
	"github.com/haivivi/callbridge/pkg/realtime"
)

func (b *Bridge) handleTelephony(ctx context.Context, f telFrame) {
	state := b.state()

	if f.err != nil {
		switch {
		case errors.Is(f.err, mediastream.ErrMalformed) && state == StateInit:
			b.setupFailed(mediastream.CloseBadRequest, "malformed start",
				fmt.Errorf("%w: %w", ErrSetup, f.err))
		case errors.Is(f.err, mediastream.ErrMalformed):
			b.stats.dropped.Add(1)
			b.logger.Warn("bridge: dropped telephony frame", "error", f.err)
		case isNormalClose(f.err):
			b.logger.Info("bridge: telephony hung up")
			b.beginClose(mediastream.CloseNormal, "telephony closed", nil)
		default:
			b.logger.Warn("bridge: telephony leg failed", "error", f.err)
			b.beginClose(mediastream.CloseNormal, "telephony closed", f.err)
		}
		return
	}

	ev := f.ev
	switch ev.Event {
	case mediastream.EventStart:
		if state != StateInit {
			b.logger.Warn("bridge: ignoring repeated start", "streamSid", ev.StreamSID)
			return
		}
		if ev.StreamSID == "" {
			b.setupFailed(mediastream.CloseBadRequest, "missing stream id",
				fmt.Errorf("%w: start without streamSid", ErrSetup))
			return
		}
		b.mu.Lock()
		b.session.StreamID = ev.StreamSID
		b.session.CreatedAt = time.Now()
		b.created = true
		b.mu.Unlock()
		b.logger = b.logger.With("streamID", ev.StreamSID)
		b.logger.Info("bridge: stream started", "callSid", ev.CallSID(), "format", ev.Start.MediaFormat)
		b.startModel(ctx)

	case mediastream.EventMedia:
		if state != StateActive {
			b.stats.dropped.Add(1)
			return
		}
		b.relayToModel(ev.Media.Audio)

	case mediastream.EventStop:
		b.logger.Info("bridge: stream stopped")
		b.beginClose(mediastream.CloseNormal, "stream stopped", nil)

	default:
		b.logger.Debug("bridge: telephony event", "event", ev.Event)
	}
}

func (b *Bridge) handleModel(f modelFrame) {
	state := b.state()

	if f.err != nil {
		switch {
		case state == StateModelConnecting:
			b.setupFailed(mediastream.CloseModelUnavailable, "model unavailable",
				fmt.Errorf("%w: %w", ErrSetup, f.err))
		case errors.Is(f.err, realtime.ErrMalformed):
			b.stats.dropped.Add(1)
			b.logger.Warn("bridge: dropped model event", "error", f.err)
		default:
			b.logger.Warn("bridge: model leg failed", "error", f.err)
			b.beginClose(mediastream.CloseModelUnavailable, "model disconnected", f.err)
		}
		return
	}

	ev := f.ev
	switch ev.Type {
	case realtime.EventTypeSessionCreated:
		if state != StateModelConnecting {
			return
		}
		if err := b.model.UpdateSession(b.cfg.sessionConfig(b.params.Profile)); err != nil {
			b.setupFailed(mediastream.CloseModelUnavailable, "model unavailable",
				fmt.Errorf("%w: session update: %w", ErrSetup, err))
			return
		}
		b.readyTimer.Stop()
		b.readyTimer = nil
		b.setState(StateActive)

		sess := b.Session()
		b.cfg.Recorder.Connected(sess.CallID, sess.StreamID)
		b.logger.Info("bridge: active")

	case realtime.EventTypeError:
		var err error = &realtime.Error{Message: "unknown error"}
		if ev.Error != nil {
			err = ev.Error
		}
		if state == StateModelConnecting {
			b.setupFailed(mediastream.CloseModelUnavailable, "model error",
				fmt.Errorf("%w: %w", ErrSetup, err))
			return
		}
		b.logger.Warn("bridge: model error", "error", err)
		b.beginClose(mediastream.CloseModelUnavailable, "model error", err)

	case realtime.EventTypeResponseAudioDelta:
		if state != StateActive {
			b.stats.dropped.Add(1)
			return
		}
		b.relayToTelephony(ev.Audio)

	case realtime.EventTypeResponseAudioTranscriptDone:
		b.logger.Info("bridge: agent said", "transcript", ev.Transcript)

	case realtime.EventTypeConversationItemInputAudioTranscriptionCompleted:
		b.logger.Info("bridge: caller said", "transcript", ev.Transcript)

	case realtime.EventTypeResponseAudioTranscriptDelta:
		b.logger.Debug("bridge: transcript delta", "delta", ev.Delta)

	default:
		b.logger.Debug("bridge: model event", "type", ev.Type)
	}
}

// relayToModel sends one caller chunk and commits it.
func (b *Bridge) relayToModel(ulaw []byte) {
	if len(ulaw) == 0 {
		b.stats.dropped.Add(1)
		return
	}
	pcm := mulaw.Decode(ulaw)
	if err := b.model.AppendAudio(pcm); err != nil {
		b.beginClose(mediastream.CloseModelUnavailable, "model disconnected", err)
		return
	}
	if err := b.model.CommitInput(); err != nil {
		b.beginClose(mediastream.CloseModelUnavailable, "model disconnected", err)
		return
	}
	b.stats.inFrames.Add(1)
	b.stats.inBytes.Add(int64(len(ulaw)))
}

// relayToTelephony plays one model chunk to the caller.
func (b *Bridge) relayToTelephony(pcm []byte) {
	ulaw := mulaw.Encode(pcm)
	if len(ulaw) == 0 {
		b.stats.dropped.Add(1)
		return
	}
	if err := b.tel.SendMedia(b.Session().StreamID, ulaw); err != nil {
		b.logger.Warn("bridge: telephony send failed", "error", err)
		b.beginClose(mediastream.CloseNormal, "telephony closed", err)
		return
	}
	b.stats.outFrames.Add(1)
	b.stats.outBytes.Add(int64(len(ulaw)))
}

// isNormalClose reports whether err is a peer close frame that ended the
// stream on purpose.
func isNormalClose(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
}
