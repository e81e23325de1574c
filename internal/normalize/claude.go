package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/mdsplit/internal/section"
)

const (
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultModel    = "claude-sonnet-4-5"
)

// ClaudeNormalizer rewrites sections through the Anthropic Messages API.
type ClaudeNormalizer struct {
	apiKey     string
	model      string
	httpClient *http.Client
	log        *slog.Logger

	// Endpoint defaults to DefaultEndpoint.
	Endpoint string
	// Stats records the latency of every API call.
	Stats *LLMStats
	// MaxRetries bounds retries of RetryableError responses.
	MaxRetries int
	// Backoff returns the wait before retry n (0-indexed).
	Backoff func(attempt int) time.Duration
}

func NewClaudeNormalizer(apiKey, model string, log *slog.Logger) *ClaudeNormalizer {
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ClaudeNormalizer{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log:        log,
		Endpoint:   DefaultEndpoint,
		Stats:      NewLLMStats(time.Hour),
		MaxRetries: MaxRetries,
		Backoff:    Backoff,
	}
}

func (c *ClaudeNormalizer) Name() string { return NameClaude }

// Model returns the configured model name.
func (c *ClaudeNormalizer) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// rewrite is one parsed API answer.
type rewrite struct {
	Header       string `json:"section_header"`
	Text         string `json:"section_text"`
	tokens       int
	modelVersion string
}

// Normalize rewrites s. Sections that are already ASCII skip the API call.
// Any failure returns s unchanged with the error recorded.
func (c *ClaudeNormalizer) Normalize(ctx context.Context, s section.Section) section.Normalized {
	if isASCII(s.Header()) && isASCII(s.Body()) {
		return section.Rewrite(s, s.Header(), s.Body(), section.NormalizeMeta{Normalizer: NameClaude})
	}

	log := c.log.With("section", s.Header(), "level", s.Level())

	var res *rewrite
	var err error
	for attempt := 0; ; attempt++ {
		res, err = c.call(ctx, s)
		if err == nil {
			break
		}
		if !IsRetryable(err) || attempt >= c.MaxRetries {
			log.Warn("normalize failed", "attempts", attempt+1, "error", err)
			return section.Unnormalized(s, NameClaude, err)
		}
		wait := c.Backoff(attempt)
		log.Info("retrying normalize", "attempt", attempt+1, "backoff", wait, "error", err)
		if err := sleep(ctx, wait); err != nil {
			return section.Unnormalized(s, NameClaude, err)
		}
	}

	if err := ValidateResult(s, res.Header, res.Text); err != nil {
		log.Warn("normalize result rejected", "error", err)
		return section.Unnormalized(s, NameClaude, err)
	}

	return section.Rewrite(s, strings.TrimSpace(res.Header), strings.Trim(res.Text, "\n"), section.NormalizeMeta{
		Normalizer:   NameClaude,
		TokenCount:   res.tokens,
		ModelVersion: res.modelVersion,
	})
}

func (c *ClaudeNormalizer) call(ctx context.Context, s section.Section) (*rewrite, error) {
	prompt, err := BuildPrompt(s.Markdown())
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 8192,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(start, true)
		return nil, fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()
	c.record(start, resp.StatusCode != http.StatusOK)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("empty response from claude")
	}

	text := stripCodeBlock(apiResp.Content[0].Text)
	var out rewrite
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse rewrite json: %w (raw: %s)", err, truncate(text, 200))
	}
	out.tokens = apiResp.Usage.OutputTokens
	out.modelVersion = apiResp.Model
	return &out, nil
}

func (c *ClaudeNormalizer) record(start time.Time, failed bool) {
	if c.Stats != nil {
		c.Stats.Record(time.Since(start), failed)
	}
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// Close releases resources.
func (c *ClaudeNormalizer) Close() {
	c.httpClient.CloseIdleConnections()
}
