package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeRegistrar struct {
	id      string
	err     error
	program string
}

func (f *fakeRegistrar) Register(program, clientIP string) (string, error) {
	f.program = program
	return f.id, f.err
}

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	token, err := GenerateSessionToken("sess-1", "snake")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	claims, err := ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("ValidateSessionToken: %v", err)
	}
	if claims.SessionID != "sess-1" || claims.Program != "snake" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateSessionTokenRejects(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	sign := func(claims PlayClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
	foreign := valid
	foreign.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "invalid.token.here"},
		{"wrong secret", sign(PlayClaims{SessionID: "s", RegisteredClaims: valid}, "other")},
		{"expired", sign(PlayClaims{SessionID: "s", RegisteredClaims: expired}, "test-secret")},
		{"wrong issuer", sign(PlayClaims{SessionID: "s", RegisteredClaims: foreign}, "test-secret")},
		{"no session", sign(PlayClaims{RegisteredClaims: valid}, "test-secret")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateSessionToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestExtractTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *http.Request)
		want    string
		wantErr bool
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, "abc", false},
		{"bad header", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, "", true},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "play_token", Value: "c"}) }, "c", false},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=q" }, "q", false},
		{"none", func(r *http.Request) {}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tt.setup(r)
			got, err := ExtractTokenFromRequest(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenHandler(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	reg := &fakeRegistrar{id: "sess-42"}
	handler := NewTokenHandler(reg)

	req := httptest.NewRequest(http.MethodPost, "/api/token", bytes.NewBufferString(`{"program":"pong"}`))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.SessionID != "sess-42" {
		t.Errorf("response = %+v", resp)
	}
	if reg.program != "pong" {
		t.Errorf("registrar got program %q", reg.program)
	}
	claims, err := ValidateSessionToken(resp.Token)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.Program != "pong" {
		t.Errorf("claims.Program = %q", claims.Program)
	}
}

func TestTokenHandlerRefused(t *testing.T) {
	handler := NewTokenHandler(&fakeRegistrar{err: errors.New("server full")})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/api/token", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/token", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", w.Code)
	}
}

func TestRequireSessionToken(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	var gotSession string
	protected := RequireSessionToken(func(w http.ResponseWriter, r *http.Request) {
		gotSession, _ = GetSessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	protected(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("without token: status = %d", w.Code)
	}

	token, err := GenerateSessionToken("sess-7", "")
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	w = httptest.NewRecorder()
	protected(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("with token: status = %d", w.Code)
	}
	if gotSession != "sess-7" {
		t.Errorf("session in context = %q", gotSession)
	}
}
