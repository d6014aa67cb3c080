package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GERMANAI_CONFIG", "")
	t.Setenv("DEEPGRAM_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Store.BaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected store url: %q", cfg.Store.BaseURL)
	}
	if cfg.Deepgram.Model != "nova-2" || !cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram defaults: %+v", cfg.Deepgram)
	}
	if cfg.Audio.RecorderCommand != "ffmpeg" || cfg.Audio.InputFormat != "pulse" || cfg.Audio.OutputFormat != "webm" {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 || cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("unexpected audio numeric defaults: %+v", cfg.Audio)
	}
	if cfg.Session.Locale != "de-DE" {
		t.Fatalf("unexpected default locale: %q", cfg.Session.Locale)
	}
}

func TestLoadRespectsEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GERMANAI_CONFIG", "")
	t.Setenv("GERMANAI_STORE_URL", "http://store.local:9000")
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	t.Setenv("DEEPGRAM_API_BASE", "https://example.com/v1")
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "false")
	t.Setenv("GERMANAI_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("GERMANAI_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("GERMANAI_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("GERMANAI_AUDIO_FORMAT", "raw")
	t.Setenv("GERMANAI_SAMPLE_RATE", "22050")
	t.Setenv("GERMANAI_CHANNELS", "2")
	t.Setenv("GERMANAI_AUDIO_CHUNK_SIZE", "512")
	t.Setenv("GERMANAI_LOCALE", "en-US")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Store.BaseURL != "http://store.local:9000" {
		t.Fatalf("unexpected store url: %q", cfg.Store.BaseURL)
	}
	if cfg.Deepgram.APIKey != "test-key" || cfg.Deepgram.APIBaseURL != "https://example.com/v1" {
		t.Fatalf("unexpected deepgram config: %+v", cfg.Deepgram)
	}
	if cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram model/smart format: %+v", cfg.Deepgram)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.OutputFormat != "raw" || cfg.Audio.SampleRate != 22050 || cfg.Audio.Channels != 2 || cfg.Audio.ChunkSize != 512 {
		t.Fatalf("unexpected audio overrides: %+v", cfg.Audio)
	}
	if cfg.Session.Locale != "en-US" {
		t.Fatalf("unexpected locale: %q", cfg.Session.Locale)
	}
}

func TestLoadLayersConfigFileUnderEnvironment(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	contents := "store:\n  base_url: http://file.local:8000\ndeepgram:\n  model: file-model\nsession:\n  locale: de-AT\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("GERMANAI_CONFIG", path)
	t.Setenv("DEEPGRAM_MODEL", "env-model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Store.BaseURL != "http://file.local:8000" {
		t.Fatalf("file value was not applied: %q", cfg.Store.BaseURL)
	}
	if cfg.Deepgram.Model != "env-model" {
		t.Fatalf("environment must win over the file, got %q", cfg.Deepgram.Model)
	}
	if cfg.Session.Locale != "de-AT" {
		t.Fatalf("unexpected locale from file: %q", cfg.Session.Locale)
	}
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GERMANAI_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GERMANAI_CONFIG", "")
	t.Setenv("GERMANAI_SAMPLE_RATE", "bad")
	t.Setenv("GERMANAI_CHANNELS", "-1")
	t.Setenv("GERMANAI_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "not-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Fatalf("expected default channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Audio.ChunkSize)
	}
	if !cfg.Deepgram.SmartFormat {
		t.Fatalf("expected default smart format true")
	}
}

func TestAudioConfigDerivedFormats(t *testing.T) {
	webm := AudioConfig{OutputFormat: "webm", SampleRate: 48000}
	if webm.MediaType() != "audio/webm" || webm.Encoding() != "" {
		t.Fatalf("unexpected webm derivation: %q %q", webm.MediaType(), webm.Encoding())
	}

	ogg := AudioConfig{OutputFormat: "ogg"}
	if ogg.MediaType() != "audio/ogg" || ogg.Encoding() != "" {
		t.Fatalf("unexpected ogg derivation: %q %q", ogg.MediaType(), ogg.Encoding())
	}

	raw := AudioConfig{OutputFormat: "raw", SampleRate: 16000}
	if raw.MediaType() != "audio/L16;rate=16000" || raw.Encoding() != "linear16" {
		t.Fatalf("unexpected raw derivation: %q %q", raw.MediaType(), raw.Encoding())
	}
}
