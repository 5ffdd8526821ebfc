package realtime

// Models.
const (
	ModelGPT4oRealtimePreview     = "gpt-4o-realtime-preview"
	ModelGPT4oMiniRealtimePreview = "gpt-4o-mini-realtime-preview"
)

// Audio formats.
const (
	// AudioFormatPCM16 is 16-bit little-endian mono PCM.
	AudioFormatPCM16 = "pcm16"
	// AudioFormatG711ULaw is G.711 μ-law at 8kHz.
	AudioFormatG711ULaw = "g711_ulaw"
)

// Voice options for audio output.
const (
	VoiceAlloy   = "alloy"
	VoiceAsh     = "ash"
	VoiceBallad  = "ballad"
	VoiceCoral   = "coral"
	VoiceEcho    = "echo"
	VoiceSage    = "sage"
	VoiceShimmer = "shimmer"
	VoiceVerse   = "verse"
)

// VADServerVAD enables server-side voice activity detection.
const VADServerVAD = "server_vad"

// Modality types.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// SessionConfig is the payload of session.update.
type SessionConfig struct {
	// Modalities specifies the output modalities.
	Modalities []string `json:"modalities,omitzero"`

	// Instructions is the system prompt.
	Instructions string `json:"instructions,omitzero"`

	// Voice is the voice ID for audio output.
	Voice string `json:"voice,omitzero"`

	InputAudioFormat  string `json:"input_audio_format,omitzero"`
	OutputAudioFormat string `json:"output_audio_format,omitzero"`

	// InputAudioTranscription enables transcripts of caller audio.
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitzero"`

	// TurnDetection configures voice activity detection.
	TurnDetection *TurnDetection `json:"turn_detection,omitzero"`

	// Temperature controls randomness (0.6-1.2).
	Temperature *float64 `json:"temperature,omitzero"`
}

// TranscriptionConfig configures input audio transcription.
type TranscriptionConfig struct {
	// Model is the transcription model, e.g. whisper-1.
	Model string `json:"model,omitzero"`
}

// TurnDetection configures voice activity detection.
type TurnDetection struct {
	// Type is the VAD mode, e.g. "server_vad".
	Type string `json:"type,omitzero"`

	// Threshold is the VAD sensitivity (0.0-1.0).
	Threshold float64 `json:"threshold,omitzero"`

	// PrefixPaddingMs is the audio kept before detected speech.
	PrefixPaddingMs int `json:"prefix_padding_ms,omitzero"`

	// SilenceDurationMs is the silence that ends a turn.
	SilenceDurationMs int `json:"silence_duration_ms,omitzero"`
}

// SessionResource is the session state reported by the server.
type SessionResource struct {
	ID                string         `json:"id,omitzero"`
	Object            string         `json:"object,omitzero"`
	Model             string         `json:"model,omitzero"`
	ExpiresAt         int64          `json:"expires_at,omitzero"`
	Modalities        []string       `json:"modalities,omitzero"`
	Instructions      string         `json:"instructions,omitzero"`
	Voice             string         `json:"voice,omitzero"`
	InputAudioFormat  string         `json:"input_audio_format,omitzero"`
	OutputAudioFormat string         `json:"output_audio_format,omitzero"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitzero"`
}

// ResponseResource is a model response.
type ResponseResource struct {
	ID     string `json:"id,omitzero"`
	Object string `json:"object,omitzero"`
	// Status is one of in_progress, completed, cancelled, incomplete, failed.
	Status string `json:"status,omitzero"`
	Usage  *Usage `json:"usage,omitzero"`
}

// Usage contains token usage information.
type Usage struct {
	TotalTokens  int `json:"total_tokens,omitzero"`
	InputTokens  int `json:"input_tokens,omitzero"`
	OutputTokens int `json:"output_tokens,omitzero"`
}
