package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/JCorts1/GermanAI/internal/domain"
	"github.com/JCorts1/GermanAI/internal/ports"
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
}

// Recognizer implements ports.Recognizer against Deepgram's streaming API.
type Recognizer struct {
	cfg Config
}

func NewRecognizer(cfg Config) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Recognizer{cfg: cfg}
}

func (r *Recognizer) Start(ctx context.Context, cfg ports.RecognitionConfig) (ports.RecognitionSession, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is not configured", domain.ErrRecognitionUnavailable)
	}

	wsURL, err := buildListenURL(r.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	session := &recognitionSession{
		conn:     conn,
		events:   make(chan domain.TranscriptionEvent, 64),
		audio:    make(chan []byte, 32),
		sendDone: make(chan struct{}),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

var errAudioStreamClosed = errors.New("audio stream is already closed")

type recognitionSession struct {
	conn *websocket.Conn

	events chan domain.TranscriptionEvent
	audio  chan []byte
	// sendDone signals end-of-audio. The audio channel itself is never
	// closed, so a concurrent SendAudio can never hit a closed channel.
	sendDone chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
}

func (s *recognitionSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	select {
	case <-s.sendDone:
		return errAudioStreamClosed
	default:
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.sendDone:
		return errAudioStreamClosed
	case <-s.done:
		if err := s.terminalErr(); err != nil {
			return err
		}
		return errors.New("session closed")
	}
}

func (s *recognitionSession) CloseSend() error {
	s.closeSendOnce.Do(func() {
		close(s.sendDone)
	})
	return nil
}

func (s *recognitionSession) Events() <-chan domain.TranscriptionEvent {
	return s.events
}

func (s *recognitionSession) Wait() error {
	<-s.done
	return s.terminalErr()
}

func (s *recognitionSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.terminalErr()
}

func (s *recognitionSession) terminalErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *recognitionSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}
	// A read torn down by our own Close is not a stream failure.
	if errors.Is(err, net.ErrClosed) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *recognitionSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(fmt.Errorf("failed to send audio: %w", err))
				return
			}
		case <-s.sendDone:
			// Flush audio queued before the close request, then announce
			// end-of-stream.
			for {
				select {
				case chunk := <-s.audio:
					if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
						s.setErr(fmt.Errorf("failed to send audio: %w", err))
						return
					}
				default:
					if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
						s.setErr(fmt.Errorf("failed to close stream: %w", err))
					}
					return
				}
			}
		}
	}
}

func (s *recognitionSession) readLoop() {
	defer s.wg.Done()

	// resultIndex mirrors the recognizer's overall result sequence:
	// interim and final events share an index until that index commits as
	// final, then the index advances.
	resultIndex := 0
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(err)
			return
		}

		var response deepgramResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.setErr(errors.New(message))
			return
		}

		alternatives := extractAlternatives(response)
		if len(alternatives) == 0 {
			continue
		}

		event := domain.TranscriptionEvent{
			ResultIndex:  resultIndex,
			Alternatives: alternatives,
			IsFinal:      response.IsFinal || response.SpeechFinal,
		}
		if event.IsFinal {
			resultIndex++
		}
		s.emit(event)
	}
}

// emit delivers an event to the consumer. Final events carry committed
// transcript text and are never dropped; a full buffer only sheds
// interim previews.
func (s *recognitionSession) emit(event domain.TranscriptionEvent) {
	if event.IsFinal {
		select {
		case s.events <- event:
		case <-s.done:
		}
		return
	}
	select {
	case s.events <- event:
	case <-s.done:
	default:
	}
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// extractAlternatives collects the non-empty candidate texts, best first.
func extractAlternatives(response deepgramResponse) []string {
	var alternatives []string
	for _, alt := range response.Channel.Alternatives {
		if text := strings.TrimSpace(alt.Transcript); text != "" {
			alternatives = append(alternatives, text)
		}
	}
	if len(alternatives) > 0 {
		return alternatives
	}
	if len(response.Results.Channels) > 0 {
		for _, alt := range response.Results.Channels[0].Alternatives {
			if text := strings.TrimSpace(alt.Transcript); text != "" {
				alternatives = append(alternatives, text)
			}
		}
	}
	return alternatives
}

func buildListenURL(recognizerCfg Config, streamCfg ports.RecognitionConfig) (string, error) {
	base := strings.TrimSpace(recognizerCfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", recognizerCfg.Model)
	// An empty encoding means the audio is containerized and
	// self-describing; Deepgram then detects the format itself.
	if streamCfg.Encoding != "" {
		sampleRate := streamCfg.SampleRate
		if sampleRate <= 0 {
			sampleRate = 16000
		}
		channels := streamCfg.Channels
		if channels <= 0 {
			channels = 1
		}
		query.Set("encoding", streamCfg.Encoding)
		query.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
		query.Set("channels", fmt.Sprintf("%d", channels))
	}
	query.Set("interim_results", fmt.Sprintf("%t", streamCfg.InterimResults))
	query.Set("smart_format", fmt.Sprintf("%t", recognizerCfg.SmartFormat))
	if streamCfg.Locale != "" {
		query.Set("language", streamCfg.Locale)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
