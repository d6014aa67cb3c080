package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JCorts1/GermanAI/internal/domain"
	"github.com/JCorts1/GermanAI/internal/ports"
)

var ErrNoActiveSession = errors.New("no active recording session")

// Config controls capture and recognition behavior for new sessions.
type Config struct {
	Audio       ports.AudioConfig
	Recognition ports.RecognitionConfig
}

// SessionController orchestrates the recording-session lifecycle: it
// starts capture and live transcription as one logical session, owns the
// session state, and hands the sealed clip plus the reconciled transcript
// to the recording store exactly once per completed session.
type SessionController struct {
	capture    ports.AudioCapture
	recognizer ports.Recognizer
	store      ports.RecordingStore
	events     ports.EventSink
	cfg        Config

	mu      sync.Mutex
	current *activeSession
	// finalizing keeps a stopping session visible to Status until its
	// persistence handoff resolves; the active slot is already free for
	// the next session by then.
	finalizing *activeSession
	latest     uuid.UUID
}

func NewSessionController(
	capture ports.AudioCapture,
	recognizer ports.Recognizer,
	store ports.RecordingStore,
	events ports.EventSink,
	cfg Config,
) *SessionController {
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Audio.MediaType == "" {
		cfg.Audio.MediaType = "audio/webm"
	}
	return &SessionController{
		capture:    capture,
		recognizer: recognizer,
		store:      store,
		events:     events,
		cfg:        cfg,
	}
}

// Start begins a new capture/transcription session. A start while a
// session is already active is ignored. Capture-start failures are fatal
// to the session; a recognizer that cannot start degrades silently and
// recording proceeds without live text.
func (c *SessionController) Start(ctx context.Context) error {
	sess := &activeSession{
		id:         uuid.New(),
		state:      domain.SessionStateCapturing,
		reconciler: newTranscriptReconciler(),
		buffer:     &chunkBuffer{},
		chunksDone: make(chan struct{}),
		eventsDone: make(chan struct{}),
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil
	}
	c.current = sess
	c.latest = sess.id
	c.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	sess.cancel = cancel

	captureSession, err := c.capture.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		cancel()
		c.clearCurrent(sess)
		sess.setState(domain.SessionStateFailed)
		c.events.SessionError(captureErrorCode(err), err.Error())
		c.events.SessionStateChanged(domain.SessionStateFailed, domain.SessionReasonCaptureFailed)
		return err
	}
	sess.capture = captureSession

	if c.recognizer != nil {
		recognition, recErr := c.recognizer.Start(sessionCtx, c.cfg.Recognition)
		if recErr != nil {
			log.Printf("live transcription disabled for this session: %v", recErr)
		} else {
			sess.recognition = recognition
		}
	}

	live := c.liveGuard(sess)
	go drainCaptureChunks(sess.capture, sess.recognition, sess.buffer, c.events, live, sess.chunksDone)
	if sess.recognition != nil {
		go consumeRecognitionEvents(sess.recognition, sess.reconciler, c.events, live, sess.eventsDone)
	} else {
		close(sess.eventsDone)
	}
	go c.superviseCapture(sess)

	c.events.TranscriptChanged("")
	c.events.SessionStateChanged(domain.SessionStateCapturing, domain.SessionReasonRecordingStarted)
	return nil
}

// Stop finalizes the active session: both adapters are asked to stop, the
// sealed blob is awaited (the sole gating condition), the transcript is
// snapshotted synchronously, and the pair is persisted. A stop while no
// session is active is ignored.
func (c *SessionController) Stop(ctx context.Context) (domain.StopResult, error) {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	if sess != nil {
		c.finalizing = sess
	}
	c.mu.Unlock()
	if sess == nil {
		return domain.StopResult{}, nil
	}

	sess.setState(domain.SessionStateFinalizing)
	c.events.SessionStateChanged(domain.SessionStateFinalizing, domain.SessionReasonFinalizing)

	if err := sess.capture.Stop(); err != nil {
		c.events.SessionError(domain.ErrorCodeCapture, fmt.Sprintf("failed to stop audio capture cleanly: %v", err))
	}
	<-sess.chunksDone

	// Chunk forwarding has ended, so the recognizer's send side can close
	// safely. Transcription shutdown is deliberately not awaited:
	// everything the recognizer delivered so far is already in the
	// reconciler.
	if sess.recognition != nil {
		_ = sess.recognition.CloseSend()
	}

	transcript := sess.reconciler.Freeze()
	blob := sess.buffer.seal(c.cfg.Audio.MediaType)
	sess.cancel()
	c.events.ListeningChanged(false)

	result, err := c.persist(ctx, sess, blob, transcript)
	c.clearFinalizing(sess)
	return result, err
}

// Discard cancels and throws away the active session without persisting.
func (c *SessionController) Discard() error {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	c.mu.Unlock()
	if sess == nil {
		return ErrNoActiveSession
	}

	sess.cancel()
	_ = sess.capture.Stop()
	if sess.recognition != nil {
		_ = sess.recognition.Close()
	}
	<-sess.chunksDone
	<-sess.eventsDone

	sess.reconciler.Fail()
	sess.setState(domain.SessionStateIdle)
	c.events.ListeningChanged(false)
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonRecordingDiscarded)
	return nil
}

// Status returns the current session status. A session stays visible
// while it finalizes, even though the active slot is already free.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	sess := c.current
	if sess == nil {
		sess = c.finalizing
	}
	c.mu.Unlock()
	if sess == nil {
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	state := sess.getState()
	return domain.Status{
		State:     state,
		Active:    state != domain.SessionStateIdle,
		Listening: sess.reconciler.Listening(),
	}
}

// Transcript returns the active session's authoritative transcript so far,
// or "" when no session is active.
func (c *SessionController) Transcript() string {
	c.mu.Lock()
	sess := c.current
	if sess == nil {
		sess = c.finalizing
	}
	c.mu.Unlock()
	if sess == nil {
		return ""
	}
	return sess.reconciler.Snapshot()
}

func (c *SessionController) persist(ctx context.Context, sess *activeSession, blob domain.AudioBlob, transcript string) (domain.StopResult, error) {
	// A clip is never uploaded once a newer session has started.
	if !c.isLatest(sess.id) {
		log.Printf("discarding sealed clip: a newer session superseded %s", sess.id)
		sess.setState(domain.SessionStateFailed)
		c.events.SessionStateChanged(domain.SessionStateFailed, domain.SessionReasonRecordingDiscarded)
		return domain.StopResult{}, nil
	}

	id, err := c.store.Upload(ctx, blob)
	if err != nil {
		sess.setState(domain.SessionStateFailed)
		c.events.SessionError(domain.ErrorCodeStore, err.Error())
		c.events.SessionStateChanged(domain.SessionStateFailed, domain.SessionReasonUploadFailed)
		return domain.StopResult{}, err
	}

	result := domain.StopResult{RecordingID: id, Transcript: transcript}
	reason := domain.SessionReasonSavedWithoutTranscript
	if strings.TrimSpace(transcript) != "" {
		if err := c.store.AttachTranscript(ctx, id, transcript); err != nil {
			// Best-effort annotation; the recording is already saved.
			log.Printf("could not attach transcript to recording %d: %v", id, err)
			c.events.SessionError(domain.ErrorCodeAnnotation, err.Error())
		} else {
			result.Annotated = true
			reason = domain.SessionReasonRecordingSaved
		}
	}

	sess.setState(domain.SessionStateCompleted)
	c.events.SessionStateChanged(domain.SessionStateCompleted, reason)
	return result, nil
}

// superviseCapture fails the session when capture ends without a stop
// request, e.g. the device disappearing mid-recording.
func (c *SessionController) superviseCapture(sess *activeSession) {
	<-sess.chunksDone
	err := sess.capture.Wait()

	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()

	sess.cancel()
	if sess.recognition != nil {
		_ = sess.recognition.Close()
	}
	sess.reconciler.Fail()
	sess.setState(domain.SessionStateFailed)

	detail := "audio capture ended unexpectedly"
	if err != nil {
		detail = err.Error()
	}
	c.events.SessionError(domain.ErrorCodeCapture, detail)
	c.events.ListeningChanged(false)
	c.events.SessionStateChanged(domain.SessionStateFailed, domain.SessionReasonCaptureFailed)
}

// liveGuard reports whether sess still owns the active-session slot. Late
// adapter events for a closed session are filtered, not terminated.
func (c *SessionController) liveGuard(sess *activeSession) func() bool {
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.current == sess
	}
}

func (c *SessionController) isLatest(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest == id
}

func (c *SessionController) clearFinalizing(sess *activeSession) {
	c.mu.Lock()
	if c.finalizing == sess {
		c.finalizing = nil
	}
	c.mu.Unlock()
}

func (c *SessionController) clearCurrent(sess *activeSession) {
	c.mu.Lock()
	if c.current == sess {
		c.current = nil
	}
	c.mu.Unlock()
}

func captureErrorCode(err error) domain.ErrorCode {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return domain.ErrorCodePermissionDenied
	case errors.Is(err, domain.ErrDeviceUnavailable):
		return domain.ErrorCodeDeviceUnavailable
	default:
		return domain.ErrorCodeCapture
	}
}
