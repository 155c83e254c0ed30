package tls

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestTLSConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TLSConfig
		wantErr bool
	}{
		{"disabled", TLSConfig{}, false},
		{"letsencrypt without domain", TLSConfig{Enabled: true, LetsEncrypt: true, Email: "a@b.c"}, true},
		{"letsencrypt without email", TLSConfig{Enabled: true, LetsEncrypt: true, Domain: "play.example.org"}, true},
		{"letsencrypt complete", TLSConfig{Enabled: true, LetsEncrypt: true, Domain: "play.example.org", Email: "a@b.c"}, false},
		{"manual", TLSConfig{Enabled: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := &TLSManager{config: tt.cfg}
			if err := tm.validateConfig(); (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDisabledManager(t *testing.T) {
	tm, err := NewTLSManager(TLSConfig{})
	if err != nil {
		t.Fatalf("NewTLSManager: %v", err)
	}
	if tm.IsEnabled() || tm.GetTLSConfig() != nil || tm.HTTPHandler() != nil {
		t.Error("disabled manager should expose no TLS state")
	}
}

func TestSelfSignedCertLoads(t *testing.T) {
	dir := t.TempDir()
	cfg := TLSConfig{
		CertFile: filepath.Join(dir, "server.crt"),
		KeyFile:  filepath.Join(dir, "server.key"),
	}
	if err := (&TLSManager{config: cfg}).GenerateSelfSignedCert("localhost", time.Hour); err != nil {
		t.Fatalf("GenerateSelfSignedCert: %v", err)
	}

	cfg.Enabled = true
	tm, err := NewTLSManager(cfg)
	if err != nil {
		t.Fatalf("NewTLSManager with generated pair: %v", err)
	}
	if c := tm.GetTLSConfig(); c == nil || len(c.Certificates) != 1 {
		t.Fatalf("expected one loaded certificate, got %+v", c)
	}
}

func TestHTTPSRedirect(t *testing.T) {
	tm := &TLSManager{config: TLSConfig{Enabled: true, HTTPSRedirect: true}}
	h := tm.HTTPHandler()
	if h == nil {
		t.Fatal("expected redirect handler")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://play.local:8080/ws?x=1", nil))
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "https://play.local/ws?x=1" {
		t.Errorf("Location = %q", got)
	}
}
