package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// RFC 6238 test vector: secret "12345678901234567890" (base32
// GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ) at t=59 yields 94287082 with 8 digits,
// which is 287082 truncated to 6.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestVerifyCodeRFCVector(t *testing.T) {
	at := time.Unix(59, 0)
	if !VerifyCode(rfcSecret, "287082", at) {
		t.Fatal("RFC vector code rejected")
	}
	if VerifyCode(rfcSecret, "000000", at) {
		t.Fatal("wrong code accepted")
	}
}

func TestVerifyCodeWindow(t *testing.T) {
	at := time.Unix(59, 0)
	// One step later the same code still verifies through the drift window.
	if !VerifyCode(rfcSecret, "287082", at.Add(30*time.Second)) {
		t.Fatal("code rejected within drift window")
	}
	// Two steps later it must not.
	if VerifyCode(rfcSecret, "287082", at.Add(90*time.Second)) {
		t.Fatal("code accepted outside drift window")
	}
}

func TestVerifyCodeEmpty(t *testing.T) {
	if VerifyCode("", "287082", time.Now()) {
		t.Fatal("empty secret accepted")
	}
	if VerifyCode(rfcSecret, "", time.Now()) {
		t.Fatal("empty code accepted")
	}
	if VerifyCode(rfcSecret, "12345", time.Now()) {
		t.Fatal("short code accepted")
	}
}

func TestMiddlewareOpenWithoutSecret(t *testing.T) {
	called := false
	h := Middleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/game-state", nil))
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("called = %v code = %d", called, rec.Code)
	}
}

func TestMiddlewareRejectsWithoutCookie(t *testing.T) {
	h := Middleware(rfcSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/game-state", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestLoginSetsCookie(t *testing.T) {
	h := LoginHandler(rfcSecret)
	// Use a code valid right now.
	key, err := decodeSecret(rfcSecret)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	code := hotp(key, uint64(time.Now().Unix())/30)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/totp", strings.NewReader(`{"code":"`+code+`"}`))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != "1" {
		t.Fatalf("cookies = %+v", cookies)
	}

	// The cookie unlocks the middleware.
	mw := Middleware(rfcSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/api/game-state", nil)
	req2.AddCookie(cookies[0])
	mw.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("middleware code = %d", rec2.Code)
	}
}

func TestLoginBadCode(t *testing.T) {
	h := LoginHandler(rfcSecret)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/totp", strings.NewReader(`{"code":"000001"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestLoginNotConfigured(t *testing.T) {
	h := LoginHandler("")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/totp", strings.NewReader(`{"code":"123456"}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
}
