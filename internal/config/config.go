package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for the capture client. Values come
// from built-in defaults, an optional YAML file, then environment
// variables, in that order.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Deepgram DeepgramConfig `yaml:"deepgram"`
	Audio    AudioConfig    `yaml:"audio"`
	Session  SessionConfig  `yaml:"session"`
}

type StoreConfig struct {
	BaseURL string `yaml:"base_url"`
}

type DeepgramConfig struct {
	APIKey      string `yaml:"api_key"`
	APIBaseURL  string `yaml:"api_base_url"`
	Model       string `yaml:"model"`
	SmartFormat bool   `yaml:"smart_format"`
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorder_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	OutputFormat    string `yaml:"output_format"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	ChunkSize       int    `yaml:"chunk_size"`
}

type SessionConfig struct {
	// Locale controls the recognizer language and vocabulary bias.
	Locale string `yaml:"locale"`
}

// MediaType declares how the sealed clip should be interpreted, derived
// from the capture output format.
func (a AudioConfig) MediaType() string {
	switch a.OutputFormat {
	case "webm":
		return "audio/webm"
	case "ogg":
		return "audio/ogg"
	default:
		return fmt.Sprintf("audio/L16;rate=%d", a.SampleRate)
	}
}

// Encoding returns the recognizer encoding hint; containerized formats
// are self-describing and need none.
func (a AudioConfig) Encoding() string {
	switch a.OutputFormat {
	case "webm", "ogg":
		return ""
	default:
		return "linear16"
	}
}

// Load resolves configuration from defaults, an optional config file, and
// environment variables.
func Load() (Config, error) {
	cfg := Config{
		Store: StoreConfig{BaseURL: "http://localhost:8000"},
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			SmartFormat: true,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			OutputFormat:    "webm",
			SampleRate:      16000,
			Channels:        1,
			ChunkSize:       4096,
		},
		Session: SessionConfig{Locale: "de-DE"},
	}

	if path := configFilePath(); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("could not load config file %s: %w", path, err)
		}
	}

	cfg.Store.BaseURL = envOrDefault("GERMANAI_STORE_URL", cfg.Store.BaseURL)
	cfg.Deepgram.APIKey = envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.SmartFormat = envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)
	cfg.Audio.RecorderCommand = envOrDefault("GERMANAI_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = envOrDefault("GERMANAI_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOrDefault("GERMANAI_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.OutputFormat = envOrDefault("GERMANAI_AUDIO_FORMAT", cfg.Audio.OutputFormat)
	cfg.Audio.SampleRate = envOrDefaultInt("GERMANAI_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("GERMANAI_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.ChunkSize = envOrDefaultInt("GERMANAI_AUDIO_CHUNK_SIZE", cfg.Audio.ChunkSize)
	cfg.Session.Locale = envOrDefault("GERMANAI_LOCALE", cfg.Session.Locale)

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}

	return cfg, nil
}

func configFilePath() string {
	if path := strings.TrimSpace(os.Getenv("GERMANAI_CONFIG")); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "germanai", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	return decoder.Decode(cfg)
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
