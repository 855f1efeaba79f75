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

// Cloud backend defaults: an OpenAI-style chat-completions API.
const (
	DefaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel    = "gpt-4o"
	defaultOpenAITimeout  = 30 * time.Second
	openAIMaxTokens       = 500
)

// OpenAIBackend evaluates photos against a cloud vision model using the
// chat-completions wire format with a data-URL image part.
type OpenAIBackend struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewOpenAIBackend builds the cloud backend. The API key is required;
// NewBackend enforces that.
func NewOpenAIBackend(opts BackendOptions) *OpenAIBackend {
	b := &OpenAIBackend{
		endpoint: opts.Endpoint,
		model:    opts.Model,
		apiKey:   opts.APIKey,
		client:   opts.HTTPClient,
	}
	if b.endpoint == "" {
		b.endpoint = DefaultOpenAIEndpoint
	}
	if b.model == "" {
		b.model = DefaultOpenAIModel
	}
	if b.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultOpenAITimeout
		}
		b.client = &http.Client{Timeout: timeout}
	}
	return b
}

func (b *OpenAIBackend) Name() string { return BackendCloud }

// Close releases idle connections held by the backend's HTTP client. Called
// by the pipeline at run end.
func (b *OpenAIBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Evaluate sends the instruction and image to the cloud API and returns the
// model's raw text response.
func (b *OpenAIBackend) Evaluate(ctx context.Context, prompt string, image EncodedImage) (string, error) {
	payload := chatCompletionRequest{
		Model: b.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: DataURL(image)}},
			},
		}},
		MaxTokens: openAIMaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", &BackendError{Backend: b.Name(), Status: resp.StatusCode, Err: fmt.Errorf("credential rejected")}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &BackendError{Backend: b.Name(), Status: resp.StatusCode}
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", &BackendError{Backend: b.Name(), Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", &BackendError{Backend: b.Name(), Err: fmt.Errorf("empty model response")}
	}
	return out.Choices[0].Message.Content, nil
}
