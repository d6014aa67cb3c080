package usecase

import (
	"fmt"
	"sync"

	"github.com/JCorts1/GermanAI/internal/domain"
	"github.com/JCorts1/GermanAI/internal/ports"
)

// chunkBuffer accumulates capture chunks in emission order. It is cleared
// at session start by construction (one buffer per session) and sealed
// into a single blob once capture ends.
type chunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
}

func (b *chunkBuffer) add(chunk []byte) {
	copied := append([]byte(nil), chunk...)
	b.mu.Lock()
	b.chunks = append(b.chunks, copied)
	b.mu.Unlock()
}

// seal concatenates all chunks into one opaque blob. A capture that
// produced no chunks seals into an empty, well-formed blob.
func (b *chunkBuffer) seal(mediaType string) domain.AudioBlob {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, chunk := range b.chunks {
		total += len(chunk)
	}
	data := make([]byte, 0, total)
	for _, chunk := range b.chunks {
		data = append(data, chunk...)
	}
	return domain.AudioBlob{Data: data, MediaType: mediaType}
}

// drainCaptureChunks buffers every capture chunk and forwards it to the
// recognizer. Forwarding is best-effort: a send failure stops the live
// transcription feed but never the capture itself.
func drainCaptureChunks(
	capture ports.CaptureSession,
	recognition ports.RecognitionSession,
	buffer *chunkBuffer,
	events ports.EventSink,
	live func() bool,
	done chan struct{},
) {
	defer close(done)

	forward := recognition
	for chunk := range capture.Chunks() {
		buffer.add(chunk)
		if forward == nil {
			continue
		}
		if err := forward.SendAudio(chunk); err != nil {
			if live() {
				events.SessionError(domain.ErrorCodeRecognition, fmt.Sprintf("stopped streaming audio to recognizer: %v", err))
			}
			forward = nil
		}
	}
}
