package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"ai-werewolf/internal/session"
)

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// CompleteStream issues a streaming completion and invokes fn for every
// delta.content chunk until the [DONE] sentinel. Malformed SSE lines are
// skipped, matching the lenient read side of the wire contract.
func (c *Client) CompleteStream(ctx context.Context, req Request, fn func(delta string) error) error {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	req.Model = model
	req.Stream = true

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	// Streaming reads must outlive the per-call timeout of the shared client.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return &APIError{Kind: KindRetryable, Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return classifyAPIError(resp.StatusCode, buf.String())
	}

	outputChars := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "data: [DONE]" {
			break
		}
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(line[len("data: "):]), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		outputChars += len(delta)
		if err := fn(delta); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &APIError{Kind: KindRetryable, Message: err.Error()}
	}

	if c.stats != nil {
		c.stats.AddAICall(session.AICallStats{
			InputChars:  inputChars(req.Messages),
			OutputChars: outputChars,
		})
	}
	return nil
}
