// Package store is the HTTP client for the remote recordings store. Each
// operation is a single attempt; retry policy is the caller's decision.
package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/JCorts1/GermanAI/internal/domain"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// List returns all persisted recordings in store order.
func (c *Client) List(ctx context.Context) ([]domain.Recording, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/recordings", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var recordings []domain.Recording
	if err := json.NewDecoder(resp.Body).Decode(&recordings); err != nil {
		return nil, fmt.Errorf("failed to decode recordings listing: %w", err)
	}
	return recordings, nil
}

// Upload creates a new recording from the sealed blob and returns its
// server-assigned identifier.
func (c *Client) Upload(ctx context.Context, blob domain.AudioBlob) (int64, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, blobFilename(blob.MediaType)))
	if blob.MediaType != "" {
		header.Set("Content-Type", blob.MediaType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(blob.Data); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/recordings", &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return created.ID, nil
}

// AttachTranscript sets the transcription text on an existing recording.
func (c *Client) AttachTranscript(ctx context.Context, id int64, text string) error {
	payload, err := json.Marshal(map[string]string{"transcription": text})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/recordings/%d/transcription", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// FetchAudio returns the stored clip content for playback. Audio travels
// as a base64 payload and is decoded here.
func (c *Client) FetchAudio(ctx context.Context, id int64) ([]byte, error) {
	url := fmt.Sprintf("%s/api/recordings/%d/audio", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Audio string `json:"audio"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(payload.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}
	return data, nil
}

// Delete removes a recording. Confirmation is the caller's gate.
func (c *Client) Delete(ctx context.Context, id int64) error {
	url := fmt.Sprintf("%s/api/recordings/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status %s", domain.ErrStoreUnavailable, resp.Status)
	}
	return resp, nil
}

func blobFilename(mediaType string) string {
	switch mediaType {
	case "audio/webm":
		return "recording.webm"
	case "audio/ogg":
		return "recording.ogg"
	default:
		return "recording.pcm"
	}
}
