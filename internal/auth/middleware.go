package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const (
	CookieName   = "wolfcha.totp"
	cookieMaxAge = 24 * 60 * 60
)

// LoginHandler verifies a submitted code and sets the session cookie.
func LoginHandler(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret == "" {
			writeAuthJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "totp_not_configured"})
			return
		}
		var body struct {
			Code string `json:"code"`
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil || json.Unmarshal(raw, &body) != nil {
			writeAuthJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid_payload"})
			return
		}
		if body.Code == "" {
			writeAuthJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing_code"})
			return
		}
		if !VerifyCode(secret, body.Code, time.Now()) {
			writeAuthJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "invalid_code"})
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "1",
			Path:     "/",
			MaxAge:   cookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeAuthJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// Middleware gates API routes behind the session cookie. With no secret
// configured the service runs open for local single-player use.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			c, err := r.Cookie(CookieName)
			if err != nil || c.Value != "1" {
				writeAuthJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
