// Package ai generates questions with the Gemini generateContent REST API.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Isaacolagoke/Testai/internal/logger"
)

const (
	DefaultBaseURL  = "https://generativelanguage.googleapis.com"
	temperature     = 0.7
	maxOutputTokens = 8192
)

// Generator produces validated questions from material.
type Generator interface {
	Generate(ctx context.Context, in Input, spec Spec) ([]Generated, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
}

type GeminiClient struct {
	log         *logger.Logger
	apiKey      string
	baseURL     string
	model       string
	visionModel string
	httpClient  *http.Client
}

var _ Generator = (*GeminiClient)(nil)

func NewGeminiClient(log *logger.Logger, cfg Config) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &GeminiClient{
		log:         log.With("service", "GeminiClient"),
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func buildRequest(in Input, spec Spec) generateRequest {
	prompt := Prompt(spec)
	var parts []part
	if in.IsImage() {
		mt := in.MimeType
		if mt == "" {
			mt = "image/jpeg"
		}
		parts = []part{
			{Text: prompt + "\n\nGenerate questions based on this image content:"},
			{InlineData: &inlineData{MimeType: mt, Data: base64.StdEncoding.EncodeToString(in.Image)}},
		}
	} else {
		parts = []part{{Text: prompt + "\n\nContent to analyze: " + in.Text}}
	}
	return generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			MaxOutputTokens:  maxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}
}

// Generate makes a single generateContent call; there are no retries.
func (c *GeminiClient) Generate(ctx context.Context, in Input, spec Spec) ([]Generated, error) {
	spec = spec.WithDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	model := c.model
	if in.IsImage() {
		model = c.visionModel
	}

	start := time.Now()
	var resp generateResponse
	if err := c.do(ctx, "/v1beta/models/"+model+":generateContent", buildRequest(in, spec), &resp); err != nil {
		return nil, err
	}
	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	qs, err := ParseQuestions(text, spec)
	if err != nil {
		c.log.Warn("model output rejected", "model", model, "error", err.Error())
		return nil, err
	}
	c.log.Info("questions generated",
		"model", model,
		"question_type", string(spec.QuestionType),
		"requested", spec.NumQuestions,
		"returned", len(qs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return qs, nil
}

func responseText(resp generateResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", malformed(-1, "prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", malformed(-1, "no candidates")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (c *GeminiClient) do(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini request: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gemini decode error: %w", err)
	}
	return nil
}
