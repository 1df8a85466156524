// Package gemini implements the vision model client backed by the Gemini
// generateContent API.
package gemini

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/sheet-reeval/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/sheet-reeval/internal/adapter/observability"
	"github.com/fairyhunter13/sheet-reeval/internal/config"
	"github.com/fairyhunter13/sheet-reeval/internal/domain"
	"github.com/fairyhunter13/sheet-reeval/pkg/textx"
)

// Client implements domain.VisionModel over an ordered priority list of
// vision-capable models. One pass through the list, no per-model repetition:
// retry policy above this layer belongs to the caller.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs a Gemini client with an instrumented HTTP transport.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.ModelRequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		counter: tokencount.NewCounter(),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type genConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate walks the configured model list in order. Transient upstream
// failures (and empty responses) advance to the next model; any other
// upstream failure aborts immediately. An exhausted list surfaces the last
// transient error.
func (c *Client) Generate(ctx domain.Context, prompt string, payload domain.InlinePayload) (string, error) {
	if c.cfg.GeminiAPIKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY missing", domain.ErrInvalidArgument)
	}
	if len(c.cfg.GeminiModels) == 0 {
		return "", fmt.Errorf("%w: no models configured", domain.ErrInvalidArgument)
	}

	slog.Debug("model prompt prepared",
		slog.Int("prompt_tokens", c.counter.CountTokens(prompt, c.cfg.GeminiModels[0])),
		slog.Int("payload_bytes", len(payload.Data)),
		slog.String("payload_mime", payload.MIMEType))

	var lastErr error
	for i, model := range c.cfg.GeminiModels {
		text, err := c.call(ctx, model, prompt, payload)
		if err == nil {
			if text == "" {
				// Empty text counts as transient: try the next model.
				lastErr = fmt.Errorf("%w: model %s returned empty response", domain.ErrModelTransient, model)
				slog.Warn("model returned empty response, trying next",
					slog.String("model", model), slog.Int("model_index", i))
				continue
			}
			slog.Info("model call succeeded",
				slog.String("model", model),
				slog.Int("model_index", i),
				slog.Int("response_length", len(text)),
				slog.String("response_preview", textx.Truncate(textx.CollapseWhitespace(text), 120)))
			return text, nil
		}

		if !IsTransient(err.Error()) {
			slog.Error("model hard failure, aborting",
				slog.String("model", model), slog.Any("error", err))
			return "", fmt.Errorf("%w: model %s: %v", domain.ErrModelHard, model, err)
		}
		lastErr = fmt.Errorf("%w: model %s: %v", domain.ErrModelTransient, model, err)
		slog.Warn("model transient failure, trying next",
			slog.String("model", model), slog.Int("model_index", i), slog.Any("error", err))
	}

	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: all models failed", domain.ErrModelTransient)
}

// call performs a single generateContent request against one model.
func (c *Client) call(ctx domain.Context, model, prompt string, payload domain.InlinePayload) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MIMEType: payload.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(payload.Data),
				}},
			},
		}},
		Config: genConfig{
			Temperature:     c.cfg.ModelTemperature,
			MaxOutputTokens: c.cfg.ModelMaxOutputTokens,
		},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("op=gemini.marshal: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.GeminiBaseURL, model, c.cfg.GeminiAPIKey)
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("op=gemini.request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(r)
	observability.AIRequestsTotal.WithLabelValues("gemini", model).Inc()
	observability.AIRequestDuration.WithLabelValues("gemini", model).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("op=gemini.read_body: %w", err)
	}

	var out generateResponse
	if unmarshalErr := json.Unmarshal(bodyBytes, &out); unmarshalErr != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return "", fmt.Errorf("op=gemini.decode: %w", unmarshalErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		slog.Warn("model provider non-2xx",
			slog.String("model", model),
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg))
		return "", fmt.Errorf("%s", msg)
	}
	if out.Error != nil && out.Error.Message != "" {
		return "", fmt.Errorf("%s", out.Error.Message)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
