package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JCorts1/GermanAI/internal/domain"
	"github.com/JCorts1/GermanAI/internal/ports"
)

// FFmpegCapture streams microphone audio using an ffmpeg child process.
type FFmpegCapture struct {
	command string
}

func NewFFmpegCapture(command string) *FFmpegCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFmpegCapture{command: command}
}

func (c *FFmpegCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.CaptureSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
	}
	if cfg.OutputFormat == "webm" {
		args = append(args, "-c:a", "libopus", "-f", "webm", "-")
	} else {
		args = append(args, "-f", "s16le", "-")
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		return nil, classifyStartFailure(err, stderr.String())
	case <-time.After(250 * time.Millisecond):
	}

	session := &ffmpegSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
		chunks:  make(chan []byte, 8),
		done:    make(chan struct{}),
	}
	go session.readLoop(cfg.ChunkSize)

	return session, nil
}

// classifyStartFailure maps an early ffmpeg exit onto the capture error
// taxonomy using its stderr output.
func classifyStartFailure(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	lower := strings.ToLower(detail)

	switch {
	case strings.Contains(lower, "permission denied") || strings.Contains(lower, "access denied"):
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, detail)
	case strings.Contains(lower, "no such") ||
		strings.Contains(lower, "device or resource busy") ||
		strings.Contains(lower, "not found") ||
		strings.Contains(lower, "connection refused"):
		return fmt.Errorf("%w: %s", domain.ErrDeviceUnavailable, detail)
	}
	if err != nil {
		if detail != "" {
			return fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, detail)
		}
		return fmt.Errorf("ffmpeg exited before capture started: %w", err)
	}
	return errors.New("ffmpeg exited before capture started")
}

type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	chunks chan []byte
	done   chan struct{}

	errMu sync.Mutex
	err   error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Chunks() <-chan []byte {
	return s.chunks
}

func (s *ffmpegSession) readLoop(chunkSize int) {
	defer close(s.chunks)
	defer close(s.done)

	buf := make([]byte, chunkSize)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			s.chunks <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				s.setErr(fmt.Errorf("audio capture read failed: %w", err))
			}
			return
		}
	}
}

// Stop signals end-of-capture and waits for the device to be released.
// A no-op when capture already ended.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.setErr(normalizeStopErr(err))
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.setErr(normalizeStopErr(err))
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			s.setErr(closeErr)
		}
		<-s.done

		s.stopErr = s.terminalErr()
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})

	return s.stopErr
}

// Wait blocks until capture has fully ended and returns the terminal
// error, nil after a clean stop.
func (s *ffmpegSession) Wait() error {
	<-s.done
	if err, ok := <-s.waitErr; ok {
		s.setErr(normalizeStopErr(err))
	}
	return s.terminalErr()
}

func (s *ffmpegSession) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *ffmpegSession) terminalErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// normalizeStopErr drops the exit error an interrupted ffmpeg reports on
// a requested stop.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
