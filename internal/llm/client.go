package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ai-werewolf/internal/session"

	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout     = 60 * time.Second
	maxSingleAttempts  = 4
	maxBatchAttempts   = 3
	maxRetryAfterDelay = 15 * time.Second
)

type Config struct {
	BaseURL string
	APIKey  string
	// Model is the default generator model; Models is the fallback pool.
	Model  string
	Models []string
	// Timeout caps every upstream call. Zero means 60s.
	Timeout time.Duration
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Reasoning struct {
	Enabled   bool   `json:"enabled"`
	Effort    string `json:"effort,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Reasoning      *Reasoning      `json:"reasoning,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

type Result struct {
	Content string
	Usage   Usage
}

// Client issues chat-completion requests against one OpenAI-compatible
// endpoint. The invalid-model blacklist and the stats tracker are owned by
// the client (session scope), never process-wide.
type Client struct {
	cfg    Config
	http   *http.Client
	stats  *session.Tracker
	models *blacklist
}

func NewClient(cfg Config, stats *session.Tracker) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cfg.Timeout = timeout
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		stats:  stats,
		models: newBlacklist(),
	}
}

// pickFallbackModel chooses a pool model that is neither blacklisted nor
// already attempted, falling back to the configured generator model.
func (c *Client) pickFallbackModel(current string, attempted map[string]bool) string {
	candidates := make([]string, 0, len(c.cfg.Models))
	for _, m := range c.cfg.Models {
		if m == "" || m == current || c.models.has(m) || attempted[m] {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) > 0 {
		return candidates[rand.Intn(len(candidates))]
	}
	if g := c.cfg.Model; g != "" && g != current && !c.models.has(g) && !attempted[g] {
		return g
	}
	return ""
}

func (c *Client) Complete(ctx context.Context, req Request) (*Result, error) {
	return c.completeAttempts(ctx, req, maxSingleAttempts)
}

func (c *Client) decodeResult(req Request, body []byte) (*Result, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &APIError{Kind: KindMalformed, Message: "undecodable completion response"}
	}
	if len(parsed.Choices) == 0 {
		return nil, &APIError{Kind: KindMalformed, Message: "no response from model"}
	}
	choice := parsed.Choices[0]
	if choice.FinishReason == "length" {
		log.Warn().Str("model", req.Model).Msg("output truncated at max_tokens")
	}

	if c.stats != nil {
		stats := session.AICallStats{
			InputChars:  inputChars(req.Messages),
			OutputChars: len(choice.Message.Content),
		}
		if parsed.Usage != nil {
			stats.PromptTokens = parsed.Usage.PromptTokens
			stats.CompletionTokens = parsed.Usage.CompletionTokens
		}
		c.stats.AddAICall(stats)
	}

	res := &Result{Content: choice.Message.Content}
	if parsed.Usage != nil {
		res.Usage = *parsed.Usage
	}
	return res, nil
}

// postWithRetry performs the HTTP call with exponential backoff on retryable
// statuses and transport failures. A timeout is an ordinary retryable network
// failure, not a special case.
func (c *Client) postWithRetry(ctx context.Context, req Request, maxAttempts int) (int, []byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, nil, err
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	var lastStatus int
	var lastBody []byte
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		status, body, retryAfter, err := c.postOnce(callCtx, url, payload)
		cancel()
		if err == nil {
			lastStatus, lastBody = status, body
			if status < 400 || !retryableStatus[status] || attempt == maxAttempts {
				return status, body, nil
			}
			sleepCtx(ctx, backoffDelay(status, attempt, retryAfter))
			continue
		}
		if ctx.Err() != nil {
			return 0, nil, &APIError{Kind: KindRetryable, Message: ctx.Err().Error()}
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		sleepCtx(ctx, backoffDelay(0, attempt, 0))
	}
	if lastBody != nil || lastStatus != 0 {
		return lastStatus, lastBody, nil
	}
	return 0, nil, &APIError{Kind: KindRetryable, Message: lastErr.Error()}
}

func (c *Client) postOnce(ctx context.Context, url string, payload []byte) (status int, body []byte, retryAfter time.Duration, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, err
	}
	return resp.StatusCode, b, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if sec, err := strconv.ParseFloat(raw, 64); err == nil && sec > 0 {
		return time.Duration(sec * float64(time.Second))
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func backoffDelay(status, attempt int, retryAfter time.Duration) time.Duration {
	jitter := time.Duration(rand.Intn(200)) * time.Millisecond
	if retryAfter > 0 {
		if retryAfter > maxRetryAfterDelay {
			retryAfter = maxRetryAfterDelay
		}
		return retryAfter + jitter
	}
	base := 400 * time.Millisecond
	if status == 429 {
		base = time.Second
	}
	return base*time.Duration(1<<(attempt-1)) + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func inputChars(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total
}

const jsonOnlySuffix = "\n\nRespond with valid JSON only. No markdown, no code blocks, just raw JSON. " +
	`If you need to include double quotes inside string values, escape them as \".`

// GenerateJSON appends a strict JSON-only instruction to the final user turn,
// runs the completion and tolerantly decodes the output into v.
func (c *Client) GenerateJSON(ctx context.Context, req Request, v any) error {
	if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == "user" {
		messages := make([]Message, n)
		copy(messages, req.Messages)
		messages[n-1].Content += jsonOnlySuffix
		req.Messages = messages
	}
	res, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	return ParseTolerant(res.Content, v)
}

// blacklist is the set of model names rejected upstream, scoped to one client.
type blacklist struct {
	mu  sync.Mutex
	bad map[string]bool
}

func newBlacklist() *blacklist {
	return &blacklist{bad: map[string]bool{}}
}

func (b *blacklist) add(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bad[model] = true
}

func (b *blacklist) has(model string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bad[model]
}
