package usecase

import (
	"strings"
	"sync"

	"github.com/JCorts1/GermanAI/internal/domain"
	"github.com/JCorts1/GermanAI/internal/ports"
)

// transcriptReconciler folds the recognizer's event stream into the single
// authoritative transcript plus a listening flag. Text marked final is
// appended permanently, each fragment followed by one separator space;
// interim text is preview-only and never committed.
type transcriptReconciler struct {
	mu         sync.Mutex
	transcript strings.Builder
	listening  bool
	frozen     bool
	lastFinal  int
}

func newTranscriptReconciler() *transcriptReconciler {
	return &transcriptReconciler{lastFinal: -1}
}

// Apply merges one recognizer event. It returns the interim preview text,
// if any, and whether the authoritative transcript grew.
func (r *transcriptReconciler) Apply(event domain.TranscriptionEvent) (interim string, committed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return "", false
	}
	// Once an index is committed as final, later events for it are no
	// longer authoritative.
	if event.ResultIndex <= r.lastFinal {
		return "", false
	}

	best := event.BestAlternative()
	if event.IsFinal {
		r.transcript.WriteString(best)
		r.transcript.WriteString(" ")
		r.lastFinal = event.ResultIndex
		return "", true
	}
	if best != "" {
		r.listening = true
	}
	return best, false
}

// Snapshot returns the authoritative transcript accumulated so far.
func (r *transcriptReconciler) Snapshot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript.String()
}

// Freeze stops all further mutation and returns the final transcript.
func (r *transcriptReconciler) Freeze() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	r.listening = false
	return r.transcript.String()
}

// Fail marks the recognizer stream as failed; text committed before the
// failure is kept, nothing further is processed.
func (r *transcriptReconciler) Fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	r.listening = false
}

func (r *transcriptReconciler) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// consumeRecognitionEvents drains one session's recognition stream into its
// reconciler. UI emissions are suppressed once the session is no longer
// live; the reconciler itself stays authoritative for the session's text.
func consumeRecognitionEvents(
	session ports.RecognitionSession,
	reconciler *transcriptReconciler,
	events ports.EventSink,
	live func() bool,
	done chan struct{},
) {
	defer close(done)

	wasListening := false
	for event := range session.Events() {
		interim, committed := reconciler.Apply(event)
		if !live() {
			continue
		}
		if committed {
			events.TranscriptChanged(reconciler.Snapshot())
		}
		if interim != "" {
			events.InterimTranscript(interim)
		}
		if listening := reconciler.Listening(); listening != wasListening {
			wasListening = listening
			events.ListeningChanged(listening)
		}
	}

	if err := session.Wait(); err != nil {
		reconciler.Fail()
		if live() {
			events.ListeningChanged(false)
			events.SessionError(domain.ErrorCodeRecognition, err.Error())
		}
	}
}
