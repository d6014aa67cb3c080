package bootstrap

import (
	"github.com/JCorts1/GermanAI/internal/audio"
	"github.com/JCorts1/GermanAI/internal/config"
	"github.com/JCorts1/GermanAI/internal/ports"
	"github.com/JCorts1/GermanAI/internal/recognition/deepgram"
	"github.com/JCorts1/GermanAI/internal/store"
	"github.com/JCorts1/GermanAI/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Store      ports.RecordingStore
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(events ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	recordingStore := store.NewClient(cfg.Store.BaseURL, nil)

	controller := usecase.NewSessionController(
		audio.NewFFmpegCapture(cfg.Audio.RecorderCommand),
		deepgram.NewRecognizer(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}),
		recordingStore,
		events,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:   cfg.Audio.SampleRate,
				Channels:     cfg.Audio.Channels,
				InputFormat:  cfg.Audio.InputFormat,
				InputDevice:  cfg.Audio.InputDevice,
				OutputFormat: cfg.Audio.OutputFormat,
				MediaType:    cfg.Audio.MediaType(),
				ChunkSize:    cfg.Audio.ChunkSize,
			},
			Recognition: ports.RecognitionConfig{
				Locale:         cfg.Session.Locale,
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       cfg.Audio.Encoding(),
				InterimResults: true,
			},
		},
	)

	return Services{Controller: controller, Store: recordingStore, Config: cfg}, nil
}
