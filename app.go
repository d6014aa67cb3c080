package germanai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/JCorts1/GermanAI/internal/bootstrap"
	"github.com/JCorts1/GermanAI/internal/config"
	"github.com/JCorts1/GermanAI/internal/domain"
	"github.com/JCorts1/GermanAI/internal/ports"
	"github.com/JCorts1/GermanAI/internal/usecase"
)

const (
	eventSession    = "germanai:session"
	eventInterim    = "germanai:interim"
	eventTranscript = "germanai:transcript"
	eventListening  = "germanai:listening"
	eventError      = "germanai:error"
	eventRecordings = "germanai:recordings"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	store      ports.RecordingStore
	cfg        config.Config
	bootErr    error

	recordings recordingsCache
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.store = services.Store
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)

	if _, err := a.RefreshRecordings(); err != nil {
		log.Printf("initial recordings fetch failed: %v", err)
	}
}

// StartRecording begins a new recording session.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopRecording finalizes the session and persists the clip plus its
// reconciled transcript, then refreshes the listing.
func (a *App) StopRecording() (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	result, err := a.controller.Stop(a.ctx)
	if err != nil {
		return domain.StopResult{}, err
	}
	if _, err := a.RefreshRecordings(); err != nil {
		log.Printf("recordings refresh after save failed: %v", err)
	}
	return result, nil
}

// DiscardRecording throws away an in-progress recording.
func (a *App) DiscardRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Discard(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateFailed, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.controller.Status()
}

// LiveTranscript returns the active session's authoritative transcript.
func (a *App) LiveTranscript() string {
	if a.controller == nil {
		return ""
	}
	return a.controller.Transcript()
}

// Recordings returns the cached listing.
func (a *App) Recordings() []domain.Recording {
	return a.recordings.snapshot()
}

// RefreshRecordings replaces the listing cache wholesale from the store
// and notifies the frontend. The cache is never patched incrementally.
func (a *App) RefreshRecordings() ([]domain.Recording, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	listing, err := a.store.List(a.ctx)
	if err != nil {
		a.SessionError(domain.ErrorCodeStore, err.Error())
		return nil, err
	}
	a.recordings.replace(listing)
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, eventRecordings, listing)
	}
	return listing, nil
}

// PlayRecording fetches a clip's audio and returns it as a data URL for
// the frontend's audio element.
func (a *App) PlayRecording(id int64) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	data, err := a.store.FetchAudio(a.ctx, id)
	if err != nil {
		a.SessionError(domain.ErrorCodePlayback, err.Error())
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", a.cfg.Audio.MediaType(), base64.StdEncoding.EncodeToString(data)), nil
}

// DeleteRecording removes a persisted recording. The frontend asks the
// user for confirmation before calling this.
func (a *App) DeleteRecording(id int64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.store.Delete(a.ctx, id); err != nil {
		a.SessionError(domain.ErrorCodeStore, err.Error())
		return err
	}
	if _, err := a.RefreshRecordings(); err != nil {
		log.Printf("recordings refresh after delete failed: %v", err)
	}
	return nil
}

// UpdateTranscription replaces a recording's transcription text, e.g.
// after a manual correction.
func (a *App) UpdateTranscription(id int64, text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.store.AttachTranscript(a.ctx, id, text); err != nil {
		a.SessionError(domain.ErrorCodeStore, err.Error())
		return err
	}
	if _, err := a.RefreshRecordings(); err != nil {
		log.Printf("recordings refresh after update failed: %v", err)
	}
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"store":      a.cfg.Store.BaseURL,
		"locale":     a.cfg.Session.Locale,
		"model":      a.cfg.Deepgram.Model,
		"audioInput": a.cfg.Audio.InputDevice,
		"mediaType":  a.cfg.Audio.MediaType(),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// InterimTranscript emits transient preview text while the user speaks.
func (a *App) InterimTranscript(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventInterim, map[string]string{"text": text})
}

// TranscriptChanged emits the authoritative transcript after it grows.
func (a *App) TranscriptChanged(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{"text": text})
}

// ListeningChanged emits the listening indicator state.
func (a *App) ListeningChanged(listening bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventListening, map[string]bool{"listening": listening})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready to record"
	case domain.SessionReasonRecordingStarted:
		return "Recording in progress..."
	case domain.SessionReasonFinalizing:
		return "Recording stopped. Saving..."
	case domain.SessionReasonRecordingSaved:
		return "Recording saved with transcription"
	case domain.SessionReasonSavedWithoutTranscript:
		return "Recording saved"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonCaptureFailed:
		return "Recording failed"
	case domain.SessionReasonUploadFailed:
		return "Could not save recording"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermissionDenied:
		return "Please allow microphone access to record audio"
	case domain.ErrorCodeDeviceUnavailable:
		return "No microphone available"
	case domain.ErrorCodeCapture:
		return "Audio capture issue"
	case domain.ErrorCodeRecognition:
		return "Live transcription unavailable"
	case domain.ErrorCodeStore:
		return "Recording store unreachable"
	case domain.ErrorCodeAnnotation:
		return "Saved, but the transcription could not be attached"
	case domain.ErrorCodePlayback:
		return "Playback failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
