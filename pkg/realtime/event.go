package realtime

// Client event types.
const (
	EventTypeSessionUpdate          = "session.update"
	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	EventTypeInputAudioBufferClear  = "input_audio_buffer.clear"
	EventTypeResponseCancel         = "response.cancel"
)

// Server event types.
const (
	EventTypeError = "error"

	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	EventTypeInputAudioBufferCommitted     = "input_audio_buffer.committed"
	EventTypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	EventTypeResponseCreated = "response.created"
	EventTypeResponseDone    = "response.done"

	EventTypeResponseAudioDelta = "response.audio.delta"
	EventTypeResponseAudioDone  = "response.audio.done"

	EventTypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventTypeResponseAudioTranscriptDone  = "response.audio_transcript.done"

	EventTypeConversationItemInputAudioTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"

	EventTypeRateLimitsUpdated = "rate_limits.updated"
)

// ServerEvent is one event received from the Realtime API. Fields not used
// by Type are zero.
type ServerEvent struct {
	// Type is the event type.
	Type string `json:"type"`

	// EventID is the unique identifier for this event.
	EventID string `json:"event_id,omitzero"`

	// Session is set for session.created and session.updated.
	Session *SessionResource `json:"session,omitzero"`

	// Response is set for response.created and response.done.
	Response *ResponseResource `json:"response,omitzero"`

	ResponseID   string `json:"response_id,omitzero"`
	ItemID       string `json:"item_id,omitzero"`
	OutputIndex  int    `json:"output_index,omitzero"`
	ContentIndex int    `json:"content_index,omitzero"`

	// AudioStartMs and AudioEndMs are set for speech_started and speech_stopped.
	AudioStartMs int `json:"audio_start_ms,omitzero"`
	AudioEndMs   int `json:"audio_end_ms,omitzero"`

	// Delta is base64 audio for response.audio.delta and text for
	// transcript deltas.
	Delta string `json:"delta,omitzero"`

	// Audio is the decoded Delta of response.audio.delta.
	Audio []byte `json:"-"`

	// Transcript is set for transcript done events.
	Transcript string `json:"transcript,omitzero"`

	// Error is set for error events.
	Error *Error `json:"error,omitzero"`

	// Raw is the original JSON message.
	Raw []byte `json:"-"`
}
