package usecase

import (
	"sync"

	"github.com/google/uuid"

	"github.com/JCorts1/GermanAI/internal/domain"
	"github.com/JCorts1/GermanAI/internal/ports"
)

type activeSession struct {
	id      uuid.UUID
	cancel  func()
	capture ports.CaptureSession
	// recognition is nil when the capability is absent or failed to start.
	recognition ports.RecognitionSession

	reconciler *transcriptReconciler
	buffer     *chunkBuffer

	stateMu sync.Mutex
	state   domain.SessionState

	chunksDone chan struct{}
	eventsDone chan struct{}
}

func (s *activeSession) setState(state domain.SessionState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

func (s *activeSession) getState() domain.SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}
