package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JCorts1/GermanAI/internal/domain"
	"github.com/JCorts1/GermanAI/internal/ports"
)

func TestNewRecognizerDefaults(t *testing.T) {
	t.Parallel()

	r := NewRecognizer(Config{})
	if r.cfg.APIBaseURL != "https://api.deepgram.com/v1" {
		t.Fatalf("unexpected base url: %q", r.cfg.APIBaseURL)
	}
	if r.cfg.Model != "nova-2" {
		t.Fatalf("unexpected model: %q", r.cfg.Model)
	}
}

func TestRecognizerStartRequiresAPIKey(t *testing.T) {
	t.Parallel()

	r := NewRecognizer(Config{APIKey: ""})
	_, err := r.Start(context.Background(), ports.RecognitionConfig{})
	if !errors.Is(err, domain.ErrRecognitionUnavailable) {
		t.Fatalf("expected recognizer-unavailable error, got %v", err)
	}
}

func TestBuildListenURLWithRawEncoding(t *testing.T) {
	t.Parallel()

	url, err := buildListenURL(
		Config{APIBaseURL: "https://api.deepgram.com/v1", Model: "nova-2"},
		ports.RecognitionConfig{Encoding: "linear16"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(url, "wss://api.deepgram.com/v1/listen") {
		t.Fatalf("unexpected ws url: %s", url)
	}
	if !strings.Contains(url, "encoding=linear16") {
		t.Fatalf("expected encoding in url: %s", url)
	}
	if !strings.Contains(url, "sample_rate=16000") {
		t.Fatalf("expected default sample_rate in url: %s", url)
	}
	if !strings.Contains(url, "channels=1") {
		t.Fatalf("expected default channels in url: %s", url)
	}
}

func TestBuildListenURLContainerizedAudioOmitsEncoding(t *testing.T) {
	t.Parallel()

	url, err := buildListenURL(
		Config{APIBaseURL: "https://api.deepgram.com/v1", Model: "nova-2"},
		ports.RecognitionConfig{Encoding: "", SampleRate: 48000},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(url, "encoding=") {
		t.Fatalf("encoding must be absent for self-describing audio: %s", url)
	}
	if strings.Contains(url, "sample_rate=") {
		t.Fatalf("sample_rate must be absent for self-describing audio: %s", url)
	}
}

func TestBuildListenURLWithLanguageAndSmartFormat(t *testing.T) {
	t.Parallel()

	url, err := buildListenURL(
		Config{APIBaseURL: "http://localhost:8080/v1", Model: "m", SmartFormat: true},
		ports.RecognitionConfig{Locale: "de-DE", Encoding: "linear16", SampleRate: 8000, Channels: 2, InterimResults: true},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(url, "ws://localhost:8080/v1/listen") {
		t.Fatalf("unexpected ws url: %s", url)
	}
	if !strings.Contains(url, "language=de-DE") {
		t.Fatalf("expected language in url: %s", url)
	}
	if !strings.Contains(url, "smart_format=true") {
		t.Fatalf("expected smart_format in url: %s", url)
	}
	if !strings.Contains(url, "interim_results=true") {
		t.Fatalf("expected interim_results in url: %s", url)
	}
}

func TestBuildListenURLInvalidBase(t *testing.T) {
	t.Parallel()

	_, err := buildListenURL(Config{APIBaseURL: ":// bad"}, ports.RecognitionConfig{})
	if err == nil {
		t.Fatalf("expected invalid base url error")
	}
}

func TestExtractAlternatives(t *testing.T) {
	t.Parallel()

	r1 := deepgramResponse{}
	r1.Channel.Alternatives = append(r1.Channel.Alternatives,
		struct {
			Transcript string "json:\"transcript\""
		}{Transcript: " beste "},
		struct {
			Transcript string "json:\"transcript\""
		}{Transcript: ""},
		struct {
			Transcript string "json:\"transcript\""
		}{Transcript: "zweite"},
	)
	if got := extractAlternatives(r1); len(got) != 2 || got[0] != "beste" || got[1] != "zweite" {
		t.Fatalf("unexpected alternatives from channel: %v", got)
	}

	r2 := deepgramResponse{}
	r2.Results.Channels = append(r2.Results.Channels, struct {
		Alternatives []struct {
			Transcript string "json:\"transcript\""
		} "json:\"alternatives\""
	}{
		Alternatives: []struct {
			Transcript string "json:\"transcript\""
		}{{Transcript: "batch"}},
	})
	if got := extractAlternatives(r2); len(got) != 1 || got[0] != "batch" {
		t.Fatalf("unexpected alternatives from results: %v", got)
	}

	if got := extractAlternatives(deepgramResponse{}); got != nil {
		t.Fatalf("expected no alternatives, got %v", got)
	}
}

func TestRecognitionSessionEventIndexes(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		payloads := []string{
			`{"channel":{"alternatives":[{"transcript":"Hallo"}]},"is_final":false}`,
			`{"channel":{"alternatives":[{"transcript":"Hallo Welt"}]},"is_final":true}`,
			`{"channel":{"alternatives":[{"transcript":"wie geht es"}]},"is_final":true}`,
		}
		for _, payload := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return
			}
		}

		// Hold the connection until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	recognizer := NewRecognizer(Config{APIKey: "test-key", APIBaseURL: server.URL})
	session, err := recognizer.Start(context.Background(), ports.RecognitionConfig{InterimResults: true})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Close()

	want := []domain.TranscriptionEvent{
		{ResultIndex: 0, Alternatives: []string{"Hallo"}, IsFinal: false},
		{ResultIndex: 0, Alternatives: []string{"Hallo Welt"}, IsFinal: true},
		{ResultIndex: 1, Alternatives: []string{"wie geht es"}, IsFinal: true},
	}
	for i, expected := range want {
		select {
		case event := <-session.Events():
			if event.ResultIndex != expected.ResultIndex || event.IsFinal != expected.IsFinal {
				t.Fatalf("event %d: got %+v, want %+v", i, event, expected)
			}
			if event.BestAlternative() != expected.Alternatives[0] {
				t.Fatalf("event %d: unexpected text %q", i, event.BestAlternative())
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestRecognitionSessionSendAudioClosed(t *testing.T) {
	t.Parallel()

	s := &recognitionSession{audio: make(chan []byte, 1), sendDone: make(chan struct{})}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SendAudio([]byte("x")); !errors.Is(err, errAudioStreamClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestRecognitionSessionCloseSendIsIdempotent(t *testing.T) {
	t.Parallel()

	s := &recognitionSession{audio: make(chan []byte, 1), sendDone: make(chan struct{})}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected second error: %v", err)
	}
}

func TestRecognitionSessionCloseSendUnblocksPendingSend(t *testing.T) {
	t.Parallel()

	s := &recognitionSession{
		audio:    make(chan []byte, 1),
		sendDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.audio <- []byte("queued")

	result := make(chan error, 1)
	go func() { result <- s.SendAudio([]byte("pending")) }()

	select {
	case err := <-result:
		t.Fatalf("send should block while the buffer is full, got %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := s.CloseSend(); err != nil {
		t.Fatalf("close send failed: %v", err)
	}
	select {
	case err := <-result:
		if !errors.Is(err, errAudioStreamClosed) {
			t.Fatalf("expected closed error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("blocked send was not released by close")
	}
}

func TestRecognitionSessionEmitBlocksForFinals(t *testing.T) {
	t.Parallel()

	s := &recognitionSession{
		events: make(chan domain.TranscriptionEvent, 1),
		done:   make(chan struct{}),
	}
	s.events <- domain.TranscriptionEvent{ResultIndex: 0, Alternatives: []string{"voll"}}

	delivered := make(chan struct{})
	go func() {
		s.emit(domain.TranscriptionEvent{ResultIndex: 1, Alternatives: []string{"wichtig"}, IsFinal: true})
		close(delivered)
	}()

	select {
	case <-delivered:
		t.Fatalf("final emit must wait for buffer space, not drop")
	case <-time.After(50 * time.Millisecond):
	}

	<-s.events
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatalf("final emit never completed")
	}

	got := <-s.events
	if !got.IsFinal || got.BestAlternative() != "wichtig" {
		t.Fatalf("unexpected delivered event: %+v", got)
	}
}

func TestRecognitionSessionEmitShedsInterimWhenFull(t *testing.T) {
	t.Parallel()

	s := &recognitionSession{
		events: make(chan domain.TranscriptionEvent, 1),
		done:   make(chan struct{}),
	}
	s.events <- domain.TranscriptionEvent{ResultIndex: 0, Alternatives: []string{"voll"}}

	s.emit(domain.TranscriptionEvent{ResultIndex: 1, Alternatives: []string{"vorschau"}})
	if len(s.events) != 1 {
		t.Fatalf("interim emit must not block or grow the buffer, got %d queued", len(s.events))
	}
}

func TestRecognitionSessionSetErrIgnoresCloseErrors(t *testing.T) {
	t.Parallel()

	s := &recognitionSession{}
	s.setErr(&websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "closed"})
	if s.terminalErr() != nil {
		t.Fatalf("expected close error to be ignored")
	}

	s.setErr(errors.New("boom"))
	if s.terminalErr() == nil || s.terminalErr().Error() != "boom" {
		t.Fatalf("expected non-close error to be captured")
	}
}

func TestRecognitionSessionSetErrFirstWins(t *testing.T) {
	t.Parallel()

	s := &recognitionSession{}
	s.setErr(errors.New("first"))
	s.setErr(errors.New("second"))
	if s.terminalErr() == nil || s.terminalErr().Error() != "first" {
		t.Fatalf("expected first error to win")
	}
}
