package ports

import (
	"context"

	"github.com/JCorts1/GermanAI/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate   int
	Channels     int
	InputFormat  string
	InputDevice  string
	OutputFormat string
	MediaType    string
	ChunkSize    int
}

// CaptureSession is a live microphone capture. Chunks delivers binary
// fragments in emission order and is closed once the device is released;
// concatenating all chunks reproduces the clip.
type CaptureSession interface {
	Chunks() <-chan []byte
	// Stop requests end-of-capture. A no-op when capture already ended.
	Stop() error
	// Wait blocks until the capture has fully ended and returns the
	// terminal error, nil on a clean stop.
	Wait() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (CaptureSession, error)
}

// RecognitionConfig describes provider-agnostic streaming settings.
// Locale selects the recognizer language and vocabulary bias. An empty
// Encoding means the audio is containerized and self-describing.
type RecognitionConfig struct {
	Locale         string
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// RecognitionSession is an active streaming recognition session. Events is
// closed once the session shuts down; events already queued may still be
// delivered after CloseSend.
type RecognitionSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptionEvent
	Wait() error
	Close() error
}

// Recognizer starts streaming recognition sessions. Start returns
// domain.ErrRecognitionUnavailable when the capability is not configured.
type Recognizer interface {
	Start(ctx context.Context, cfg RecognitionConfig) (RecognitionSession, error)
}

// RecordingStore is the persistence gateway for recorded clips. No
// operation retries internally.
type RecordingStore interface {
	List(ctx context.Context) ([]domain.Recording, error)
	Upload(ctx context.Context, blob domain.AudioBlob) (int64, error)
	AttachTranscript(ctx context.Context, id int64, text string) error
	FetchAudio(ctx context.Context, id int64) ([]byte, error)
	Delete(ctx context.Context, id int64) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	InterimTranscript(text string)
	TranscriptChanged(text string)
	ListeningChanged(listening bool)
	SessionError(code domain.ErrorCode, detail string)
}
