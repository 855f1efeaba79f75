package autocurator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Local backend defaults: an Ollama-compatible service on localhost.
const (
	DefaultOllamaEndpoint = "http://localhost:11434"
	DefaultOllamaModel    = "llava:latest"
	defaultOllamaTimeout  = 60 * time.Second
)

// maxResponseBytes caps backend response bodies.
const maxResponseBytes = 1 << 20 // 1MB

// OllamaBackend evaluates photos against a local Ollama vision model via
// POST /api/generate.
type OllamaBackend struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaBackend builds the local backend. Zero-value options use the
// default endpoint, model and timeout.
func NewOllamaBackend(opts BackendOptions) *OllamaBackend {
	b := &OllamaBackend{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		model:    opts.Model,
		client:   opts.HTTPClient,
	}
	if b.endpoint == "" {
		b.endpoint = DefaultOllamaEndpoint
	}
	if b.model == "" {
		b.model = DefaultOllamaModel
	}
	if b.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultOllamaTimeout
		}
		b.client = &http.Client{Timeout: timeout}
	}
	return b
}

func (b *OllamaBackend) Name() string { return BackendLocal }

// Close releases idle connections held by the backend's HTTP client. Called
// by the pipeline at run end.
func (b *OllamaBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Images []string `json:"images"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Evaluate sends the instruction and base64 image to the local service and
// returns the model's raw text response.
func (b *OllamaBackend) Evaluate(ctx context.Context, prompt string, image EncodedImage) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  b.model,
		Prompt: prompt,
		Stream: false,
		Images: []string{image.Base64},
	})
	if err != nil {
		return "", fmt.Errorf("encoding ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &BackendError{Backend: b.Name(), Status: resp.StatusCode}
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", &BackendError{Backend: b.Name(), Err: fmt.Errorf("decoding response: %w", err)}
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", &BackendError{Backend: b.Name(), Err: fmt.Errorf("empty model response")}
	}
	return out.Response, nil
}
