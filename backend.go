package autocurator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Backend kinds accepted by NewBackend. One backend is selected per run and
// never mixed with the other.
const (
	BackendLocal = "local"
	BackendCloud = "cloud"
)

// EncodedImage is an image payload ready for a backend request.
type EncodedImage struct {
	Base64   string
	MIMEType string // e.g. "image/jpeg"
}

// Backend abstracts one vision-model service: given an instruction and an
// image, return the model's raw text response or fail. Implementations carry
// no retry logic; the pipeline owns retries and sequencing.
type Backend interface {
	Name() string
	Evaluate(ctx context.Context, prompt string, image EncodedImage) (string, error)
}

// BackendOptions configures a backend built by NewBackend. Zero values fall
// back to the backend's defaults.
type BackendOptions struct {
	Endpoint   string
	Model      string
	APIKey     string // required for the cloud backend
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewBackend builds a backend by kind: BackendLocal (Ollama-style service at
// a fixed default endpoint) or BackendCloud (OpenAI-style API requiring a
// credential).
func NewBackend(kind string, opts BackendOptions) (Backend, error) {
	switch kind {
	case BackendLocal:
		return NewOllamaBackend(opts), nil
	case BackendCloud:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("cloud backend requires an API key")
		}
		return NewOpenAIBackend(opts), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
}

// EvalPrompt is the fixed evaluation instruction sent with every photo.
// The answer shape keeps free-form model output extractable by ParseEvaluation.
const EvalPrompt = `Rate this car photo for social media appeal on a scale of 1-100.

TECHNICAL REQUIREMENTS FIRST:
- Photo must be sharp and in focus
- Subject must be clearly visible
- No excessive blur or camera shake
- Acceptable exposure (not too dark or too bright to see details)

If the photo fails these requirements, score 30 or below.

IF TECHNICAL QUALITY IS GOOD, consider:
- Clear, interesting car as the main subject
- Good lighting on the car itself
- Clean or interesting background
- Eye-catching composition that would stop someone scrolling

A sharp photo of an average car beats a blurry photo of an amazing car.

Respond in this exact format:
SCORE: <number 1-100>
VERDICT: <PASS or FAIL for the technical requirements>
SUBJECT: <one line describing the primary subject>
ANALYSIS: <brief explanation of the score>`

// evaluatePhoto runs one photo through the backend with bounded retries and
// a short blocking backoff local to this photo. Transport failures and
// unparseable responses both count as retryable attempts. After exhausting
// retries the last error is returned and the photo is marked failed by the
// caller; the rest of the batch is unaffected.
func (cfg *Config) evaluatePhoto(ctx context.Context, rec *PhotoRecord) (*EvaluationResult, error) {
	img := EncodedImage{
		Base64:   EncodeBase64(rec.Data),
		MIMEType: mimeTypeForFile(rec.Name),
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("autocurator: retrying evaluation", "file", rec.Name, "attempt", attempt)
			select {
			case <-time.After(cfg.RetryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, err := cfg.Backend.Evaluate(ctx, cfg.Prompt, img)
		if err != nil {
			lastErr = err
			continue
		}

		res, err := ParseEvaluation(raw)
		if err != nil {
			lastErr = err
			continue
		}
		res.Raw = raw
		res.EvaluatedAt = time.Now()
		return res, nil
	}
	return nil, lastErr
}
