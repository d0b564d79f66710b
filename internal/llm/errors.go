package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies upstream failures so callers can branch without
// re-parsing error text.
type ErrorKind string

const (
	KindRetryable      ErrorKind = "retryable_upstream"
	KindInvalidModel   ErrorKind = "invalid_model"
	KindQuotaExhausted ErrorKind = "quota_exhausted"
	KindMalformed      ErrorKind = "malformed_response"
)

var ErrJSONParse = errors.New("json_parse_failed")

type APIError struct {
	Status  int
	Kind    ErrorKind
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: api error %d: %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func IsInvalidModel(err error) bool   { return hasKind(err, KindInvalidModel) }
func IsQuotaExhausted(err error) bool { return hasKind(err, KindQuotaExhausted) }
func IsRetryable(err error) bool      { return hasKind(err, KindRetryable) }
func IsMalformed(err error) bool      { return hasKind(err, KindMalformed) }

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

var retryableStatus = map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true}

func isQuotaExhaustedError(status int, errorText string) bool {
	if status == 402 {
		return true
	}
	lower := strings.ToLower(errorText)
	return strings.Contains(lower, "insufficient") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "balance") ||
		strings.Contains(lower, "余额") ||
		strings.Contains(lower, "欠费") ||
		strings.Contains(lower, "arrearage")
}

func isInvalidModelError(status int, errorText string) bool {
	if status == 404 {
		return true
	}
	lower := strings.ToLower(errorText)
	return (strings.Contains(lower, "model") && strings.Contains(lower, "not found")) ||
		strings.Contains(lower, "invalid model") ||
		(strings.Contains(lower, "model") && strings.Contains(lower, "does not exist")) ||
		(strings.Contains(lower, "unknown") && strings.Contains(lower, "model"))
}

// classifyAPIError turns an upstream error response into a tagged APIError.
// Quota checks run before invalid-model checks: a 404-ish body that also
// mentions balance is billing trouble, not a bad model name.
func classifyAPIError(status int, errorText string) *APIError {
	msg := fmt.Sprintf("api error: %d", status)
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Details struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		} `json:"details"`
	}
	if err := json.Unmarshal([]byte(errorText), &envelope); err == nil {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && strings.TrimSpace(s) != "" {
			msg = strings.TrimSpace(s)
		}
		if d := strings.TrimSpace(envelope.Details.Error.Message); d != "" {
			msg = msg + " - " + d
		}
	} else if trimmed := strings.TrimSpace(errorText); trimmed != "" {
		if len(trimmed) > 600 {
			trimmed = trimmed[:600]
		}
		msg = msg + " - " + trimmed
	}

	kind := KindRetryable
	switch {
	case isQuotaExhaustedError(status, errorText):
		kind = KindQuotaExhausted
	case isInvalidModelError(status, errorText):
		kind = KindInvalidModel
	case !retryableStatus[status]:
		kind = KindMalformed
	}
	return &APIError{Status: status, Kind: kind, Message: msg}
}
