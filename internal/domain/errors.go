package domain

import "errors"

var (
	// ErrPermissionDenied is returned when the user or platform refuses
	// access to the audio input device. Fatal to the session.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceUnavailable is returned when no usable audio input device
	// exists. Fatal to the session.
	ErrDeviceUnavailable = errors.New("no audio input device available")

	// ErrRecognitionUnavailable is returned when the platform has no
	// speech-recognition capability. Recording proceeds without live text.
	ErrRecognitionUnavailable = errors.New("speech recognition unavailable")

	// ErrStoreUnavailable is returned on transport failure against the
	// recording store. Surfaced per operation; never retried.
	ErrStoreUnavailable = errors.New("recording store unavailable")
)
