package domain

// SessionState models the recording-session lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateCapturing  SessionState = "capturing"
	SessionStateFinalizing SessionState = "finalizing"
	SessionStateCompleted  SessionState = "completed"
	SessionStateFailed     SessionState = "failed"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady                  SessionStateReason = "ready"
	SessionReasonRecordingStarted       SessionStateReason = "recording_started"
	SessionReasonFinalizing             SessionStateReason = "finalizing"
	SessionReasonRecordingSaved         SessionStateReason = "recording_saved"
	SessionReasonSavedWithoutTranscript SessionStateReason = "saved_without_transcript"
	SessionReasonRecordingDiscarded     SessionStateReason = "recording_discarded"
	SessionReasonCaptureFailed          SessionStateReason = "capture_failed"
	SessionReasonUploadFailed           SessionStateReason = "upload_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodePermissionDenied  ErrorCode = "permission_denied"
	ErrorCodeDeviceUnavailable ErrorCode = "device_unavailable"
	ErrorCodeCapture           ErrorCode = "capture"
	ErrorCodeRecognition       ErrorCode = "recognition"
	ErrorCodeStore             ErrorCode = "store"
	ErrorCodeAnnotation        ErrorCode = "annotation"
	ErrorCodePlayback          ErrorCode = "playback"
)

// TranscriptionEvent is one incremental result from the speech recognizer.
// Alternatives are ordered best-first; only the first one is consumed.
type TranscriptionEvent struct {
	ResultIndex  int      `json:"resultIndex"`
	Alternatives []string `json:"alternatives"`
	IsFinal      bool     `json:"isFinal"`
}

// BestAlternative returns the recognizer's top candidate, or "" when the
// event carries no alternatives.
func (e TranscriptionEvent) BestAlternative() string {
	if len(e.Alternatives) == 0 {
		return ""
	}
	return e.Alternatives[0]
}

// AudioBlob is a sealed recording clip. The content is opaque to the core;
// MediaType declares how collaborators should interpret it.
type AudioBlob struct {
	Data      []byte
	MediaType string
}

// Recording is a persisted item as returned by the remote store. CreatedAt
// is passed through verbatim; display formatting is the frontend's concern.
type Recording struct {
	ID            int64  `json:"id"`
	CreatedAt     string `json:"created_at"`
	Transcription string `json:"transcription,omitempty"`
}

// StopResult is returned once a session has been finalized and persisted.
type StopResult struct {
	RecordingID int64  `json:"recordingId"`
	Transcript  string `json:"transcript"`
	Annotated   bool   `json:"annotated"`
}

// Status summarizes the current session for the UI.
type Status struct {
	State     SessionState `json:"state"`
	Active    bool         `json:"active"`
	Listening bool         `json:"listening"`
	Message   string       `json:"message,omitempty"`
}
