package livecoach

import "errors"

const (
	// InputMimeType tags uplink media with its format and capture rate.
	InputMimeType = "audio/pcm;rate=16000"
	// OutputSampleRate is the PCM rate of downlink audio chunks.
	OutputSampleRate = 24000
)

var (
	ErrConnectionFailed = errors.New("live session handshake failed")
	ErrSessionClosed    = errors.New("live session closed")
)

// Config carries dialer-level settings for the hosted inference endpoint.
type Config struct {
	Endpoint string
	APIKey   string
}

// SessionConfig is sent once during the handshake.
type SessionConfig struct {
	Model        string `json:"model"`
	Voice        string `json:"voice,omitempty"`
	SystemPrompt string `json:"system_instruction,omitempty"`
}

// MediaFrame is one encoded uplink payload: base64 audio bytes tagged with
// format and sample-rate metadata.
type MediaFrame struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// Callbacks deliver session events. All callbacks fire on the session's read
// goroutine; they must not block.
type Callbacks struct {
	OnOpen         func()
	OnAudioChunk   func(data, mimeType string)
	OnTurnComplete func()
	OnInterrupted  func()
	OnError        func(err error)
	OnClose        func()
}
