package autocurator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaBackend_Evaluate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Stream {
			t.Error("stream = true, want false")
		}
		if req.Model != "llava:latest" {
			t.Errorf("model = %q, want llava:latest", req.Model)
		}
		if len(req.Images) != 1 || req.Images[0] != "aW1n" {
			t.Errorf("images = %v, want the base64 payload", req.Images)
		}
		if !strings.Contains(req.Prompt, "scale of 1-100") {
			t.Error("prompt not forwarded")
		}
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "SCORE: 71\nVERDICT: PASS", Done: true})
	}))
	defer srv.Close()

	b := NewOllamaBackend(BackendOptions{Endpoint: srv.URL, HTTPClient: srv.Client()})
	got, err := b.Evaluate(context.Background(), EvalPrompt, EncodedImage{Base64: "aW1n", MIMEType: "image/jpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "SCORE: 71") {
		t.Errorf("response = %q", got)
	}
}

func TestOllamaBackend_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewOllamaBackend(BackendOptions{Endpoint: srv.URL, HTTPClient: srv.Client()})
	_, err := b.Evaluate(context.Background(), EvalPrompt, EncodedImage{Base64: "aW1n"})
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BackendError", err)
	}
	if be.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", be.Status)
	}
}

func TestOpenAIBackend_Evaluate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want bearer credential", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Fatalf("messages = %+v, want one message with text + image parts", req.Messages)
		}
		img := req.Messages[0].Content[1]
		if img.Type != "image_url" || img.ImageURL == nil || !strings.HasPrefix(img.ImageURL.URL, "data:image/png;base64,") {
			t.Errorf("image part = %+v, want a data URL", img)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"score": 92, "main_subject": "GT-R", "reasoning": "Crisp."}`}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	b := NewOpenAIBackend(BackendOptions{Endpoint: srv.URL, APIKey: "sk-test", HTTPClient: srv.Client()})
	got, err := b.Evaluate(context.Background(), EvalPrompt, EncodedImage{Base64: "aW1n", MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, `"score": 92`) {
		t.Errorf("response = %q", got)
	}
}

func TestOpenAIBackend_Unauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := NewOpenAIBackend(BackendOptions{Endpoint: srv.URL, APIKey: "bad", HTTPClient: srv.Client()})
	_, err := b.Evaluate(context.Background(), EvalPrompt, EncodedImage{Base64: "aW1n"})
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BackendError", err)
	}
	if be.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", be.Status)
	}
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(BackendCloud, BackendOptions{}); err == nil {
		t.Error("cloud backend without credential should fail")
	}
	if _, err := NewBackend("both", BackendOptions{}); err == nil {
		t.Error("unknown kind should fail")
	}
	b, err := NewBackend(BackendLocal, BackendOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name() != BackendLocal {
		t.Errorf("Name() = %q, want %q", b.Name(), BackendLocal)
	}
}

func TestEvaluatePhoto_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "SCORE: 58\nVERDICT: PASS", Done: true})
	}))
	defer srv.Close()

	cfg := &Config{
		Backend:      NewOllamaBackend(BackendOptions{Endpoint: srv.URL, HTTPClient: srv.Client()}),
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
	cfg.defaults()

	rec := &PhotoRecord{Name: "retry.jpg", Data: []byte("img")}
	res, err := cfg.evaluatePhoto(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 58 {
		t.Errorf("Score = %d, want 58", res.Score)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if res.Raw == "" || res.EvaluatedAt.IsZero() {
		t.Error("raw response and timestamp must be recorded")
	}
}

func TestEvaluatePhoto_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := &Config{
		Backend:      NewOllamaBackend(BackendOptions{Endpoint: srv.URL, HTTPClient: srv.Client()}),
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
	cfg.defaults()

	_, err := cfg.evaluatePhoto(context.Background(), &PhotoRecord{Name: "down.jpg", Data: []byte("img")})
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BackendError", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
}
