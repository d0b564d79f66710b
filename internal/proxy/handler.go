// Package proxy relays OpenAI-compatible chat completion requests to the
// provider configured per request or stored in the DB. The browser never
// talks to the provider directly, so the API key stays server-side.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ai-werewolf/internal/store"
)

const defaultTimeout = 60 * time.Second

type Handler struct {
	Store      *store.Store
	HTTPClient *http.Client

	// StreamClient carries no timeout. Streaming reads must outlive the
	// per-call timeout of the shared client.
	StreamClient *http.Client
}

// ChatRequest is one upstream call. BaseURL and APIKey are proxy-level
// fields stripped before forwarding; the rest passes through untouched so
// provider-specific knobs (response_format, reasoning_effort) keep working.
type ChatRequest map[string]any

type BatchRequest struct {
	BaseURL  string        `json:"baseUrl"`
	APIKey   string        `json:"apiKey"`
	Requests []ChatRequest `json:"requests"`
}

// BatchResult is the per-item outcome; items fail independently.
type BatchResult struct {
	OK     bool            `json:"ok"`
	Status int             `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func NewHandler(st *store.Store) *Handler {
	return &Handler{
		Store:        st,
		HTTPClient:   &http.Client{Timeout: defaultTimeout},
		StreamClient: &http.Client{},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request")
		return
	}

	var batch BatchRequest
	if err := json.Unmarshal(body, &batch); err == nil && batch.Requests != nil {
		h.serveBatch(w, r, batch)
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request")
		return
	}
	h.serveSingle(w, r, req)
}

func (h *Handler) serveSingle(w http.ResponseWriter, r *http.Request, req ChatRequest) {
	baseURL, apiKey := h.resolveProvider(r.Context(), req)
	targetURL := normalizeChatCompletionsURL(baseURL)
	if targetURL == "" {
		writeErr(w, http.StatusBadRequest, "missing_base_url")
		return
	}
	if req["model"] == nil || req["messages"] == nil {
		writeErr(w, http.StatusBadRequest, "missing_model_or_messages")
		return
	}

	stream, _ := req["stream"].(bool)
	payload, err := json.Marshal(stripProxyFields(req))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request")
		return
	}

	client := h.HTTPClient
	if stream {
		client = h.streamClient()
	}
	resp, err := h.forward(r.Context(), client, targetURL, apiKey, payload)
	if err != nil {
		writeErr(w, http.StatusBadGateway, "upstream_error")
		return
	}
	defer resp.Body.Close()

	if stream {
		ct := resp.Header.Get("Content-Type")
		if ct == "" {
			ct = "text/event-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(resp.StatusCode)
		flushCopy(w, resp.Body)
		return
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		writeErr(w, http.StatusBadGateway, "upstream_error")
		return
	}
	if resp.StatusCode >= 400 {
		writeErr(w, resp.StatusCode, strings.TrimSpace(string(b)))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *Handler) serveBatch(w http.ResponseWriter, r *http.Request, batch BatchRequest) {
	if len(batch.Requests) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"results": []BatchResult{}})
		return
	}
	for _, req := range batch.Requests {
		if stream, _ := req["stream"].(bool); stream {
			writeErr(w, http.StatusBadRequest, "batch_stream_unsupported")
			return
		}
	}

	results := make([]BatchResult, len(batch.Requests))
	g, ctx := errgroup.WithContext(r.Context())
	for i, req := range batch.Requests {
		i, req := i, req
		g.Go(func() error {
			results[i] = h.runBatchItem(ctx, batch, req)
			return nil
		})
	}
	_ = g.Wait()
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) runBatchItem(ctx context.Context, batch BatchRequest, req ChatRequest) BatchResult {
	baseURL := batch.BaseURL
	apiKey := batch.APIKey
	if baseURL == "" || apiKey == "" {
		itemBase, itemKey := h.resolveProvider(ctx, req)
		if baseURL == "" {
			baseURL = itemBase
		}
		if apiKey == "" {
			apiKey = itemKey
		}
	}
	targetURL := normalizeChatCompletionsURL(baseURL)
	if targetURL == "" {
		return BatchResult{OK: false, Status: http.StatusBadRequest, Error: "missing_base_url"}
	}
	payload, err := json.Marshal(stripProxyFields(req))
	if err != nil {
		return BatchResult{OK: false, Status: http.StatusBadRequest, Error: "invalid_request"}
	}
	resp, err := h.forward(ctx, h.HTTPClient, targetURL, apiKey, payload)
	if err != nil {
		return BatchResult{OK: false, Status: http.StatusInternalServerError, Error: err.Error()}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return BatchResult{OK: false, Status: http.StatusBadGateway, Error: "upstream_error"}
	}
	if resp.StatusCode >= 400 {
		return BatchResult{OK: false, Status: resp.StatusCode, Error: strings.TrimSpace(string(b))}
	}
	return BatchResult{OK: true, Data: b}
}

// resolveProvider prefers credentials carried in the request itself and falls
// back to the stored config row.
func (h *Handler) resolveProvider(ctx context.Context, req ChatRequest) (baseURL, apiKey string) {
	baseURL, _ = req["baseUrl"].(string)
	apiKey, _ = req["apiKey"].(string)
	if baseURL != "" && apiKey != "" {
		return baseURL, apiKey
	}
	if h.Store == nil {
		return baseURL, apiKey
	}
	cfg, err := h.Store.GetLLMConfig(ctx)
	if err != nil {
		return baseURL, apiKey
	}
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	return baseURL, apiKey
}

func (h *Handler) streamClient() *http.Client {
	if h.StreamClient != nil {
		return h.StreamClient
	}
	return h.HTTPClient
}

func (h *Handler) forward(ctx context.Context, client *http.Client, url, key string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if k := strings.TrimSpace(key); k != "" {
		req.Header.Set("Authorization", "Bearer "+k)
	}
	return client.Do(req)
}

var chatCompletionsSuffix = regexp.MustCompile(`(?i)/chat/completions$`)
var v1Suffix = regexp.MustCompile(`(?i)/v1$`)

// normalizeChatCompletionsURL accepts a bare host, a /v1 base, or a full
// chat-completions URL and returns the full endpoint.
func normalizeChatCompletionsURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return ""
	}
	if chatCompletionsSuffix.MatchString(trimmed) {
		return trimmed
	}
	if v1Suffix.MatchString(trimmed) {
		return trimmed + "/chat/completions"
	}
	return trimmed + "/v1/chat/completions"
}

func stripProxyFields(req ChatRequest) map[string]any {
	out := make(map[string]any, len(req))
	for k, v := range req {
		if k == "baseUrl" || k == "apiKey" {
			continue
		}
		out[k] = v
	}
	return out
}

// flushCopy streams the upstream body chunk by chunk so SSE tokens reach the
// client as they arrive.
func flushCopy(w http.ResponseWriter, r io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	if msg == "" {
		msg = "upstream_error"
	}
	writeJSON(w, code, map[string]any{"error": msg})
}
