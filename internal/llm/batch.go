package llm

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog/log"
)

// BatchResult is the same-shaped union for one batch item: either a content
// payload or an error string plus optional HTTP status. A failed item never
// fails its siblings.
type BatchResult struct {
	OK      bool   `json:"ok"`
	Content string `json:"content,omitempty"`
	Usage   Usage  `json:"usage,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// CompleteBatch fans requests out as independent concurrent calls and joins
// on all of them completing.
func (c *Client) CompleteBatch(ctx context.Context, requests []Request) []BatchResult {
	if len(requests) == 0 {
		return nil
	}
	results := make([]BatchResult, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			res, err := c.completeAttempts(gctx, req, maxBatchAttempts)
			if err != nil {
				item := BatchResult{Error: err.Error()}
				var apiErr *APIError
				if errors.As(err, &apiErr) {
					item.Status = apiErr.Status
				}
				results[i] = item
				return nil
			}
			results[i] = BatchResult{OK: true, Content: res.Content, Usage: res.Usage}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// completeAttempts is Complete with a smaller retry budget per attempt chain.
func (c *Client) completeAttempts(ctx context.Context, req Request, attempts int) (*Result, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	attempted := map[string]bool{}
	for {
		if c.models.has(model) {
			if fb := c.pickFallbackModel(model, attempted); fb != "" {
				model = fb
			}
		}
		attempted[model] = true
		req.Model = model

		status, body, err := c.postWithRetry(ctx, req, attempts)
		if err != nil {
			return nil, err
		}
		if status < 400 {
			return c.decodeResult(req, body)
		}
		apiErr := classifyAPIError(status, string(body))
		if apiErr.Kind == KindInvalidModel {
			c.models.add(model)
			log.Warn().Str("model", model).Msg("model rejected upstream, trying fallback")
			if fb := c.pickFallbackModel(model, attempted); fb != "" {
				model = fb
				continue
			}
		}
		return nil, apiErr
	}
}
