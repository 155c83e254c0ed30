package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antibyte/pixelbasic/pkg/configuration"
	"github.com/antibyte/pixelbasic/pkg/logger"

	"golang.org/x/crypto/acme/autocert"
)

// TLSConfig holds the [TLS] settings of the play server.
type TLSConfig struct {
	Enabled       bool
	LetsEncrypt   bool
	Domain        string
	Email         string
	CacheDir      string
	CertFile      string
	KeyFile       string
	HTTPSRedirect bool
}

// ConfigFromSettings reads the [TLS] section.
func ConfigFromSettings() TLSConfig {
	return TLSConfig{
		Enabled:       configuration.GetBool("TLS", "enabled", false),
		LetsEncrypt:   configuration.GetBool("TLS", "letsencrypt", false),
		Domain:        configuration.GetString("TLS", "domain", ""),
		Email:         configuration.GetString("TLS", "email", ""),
		CacheDir:      configuration.GetString("TLS", "cache_dir", "certs"),
		CertFile:      configuration.GetString("TLS", "cert_file", "certs/server.crt"),
		KeyFile:       configuration.GetString("TLS", "key_file", "certs/server.key"),
		HTTPSRedirect: configuration.GetBool("TLS", "https_redirect", false),
	}
}

// TLSManager serves the play server over HTTPS, either with Let's Encrypt
// certificates or with a certificate pair from disk.
type TLSManager struct {
	config      TLSConfig
	autocertMgr *autocert.Manager
	tlsConfig   *tls.Config
}

// NewTLSManager validates cfg and prepares certificates when TLS is enabled.
func NewTLSManager(cfg TLSConfig) (*TLSManager, error) {
	tm := &TLSManager{config: cfg}
	if err := tm.validateConfig(); err != nil {
		return nil, fmt.Errorf("TLS configuration validation failed: %w", err)
	}
	if !cfg.Enabled {
		return tm, nil
	}
	var err error
	if cfg.LetsEncrypt {
		err = tm.initializeLetsEncrypt()
	} else {
		err = tm.initializeManualTLS()
	}
	if err != nil {
		return nil, fmt.Errorf("TLS initialization failed: %w", err)
	}
	return tm, nil
}

func (tm *TLSManager) validateConfig() error {
	if !tm.config.Enabled || !tm.config.LetsEncrypt {
		return nil
	}
	if strings.TrimSpace(tm.config.Domain) == "" {
		return errors.New("domain is required when Let's Encrypt is enabled")
	}
	if strings.TrimSpace(tm.config.Email) == "" {
		return errors.New("email is required when Let's Encrypt is enabled")
	}
	return nil
}

func (tm *TLSManager) initializeLetsEncrypt() error {
	logger.Info(logger.AreaSecurity, "Initializing Let's Encrypt for domain: %s", tm.config.Domain)
	if err := os.MkdirAll(tm.config.CacheDir, 0700); err != nil {
		return fmt.Errorf("failed to create certificate cache directory: %w", err)
	}

	tm.autocertMgr = &autocert.Manager{
		Cache:      autocert.DirCache(tm.config.CacheDir),
		Prompt:     autocert.AcceptTOS,
		Email:      tm.config.Email,
		HostPolicy: autocert.HostWhitelist(tm.config.Domain),
	}
	tm.tlsConfig = tm.autocertMgr.TLSConfig()
	tm.tlsConfig.MinVersion = tls.VersionTLS12
	return nil
}

// initializeManualTLS lädt das Zertifikatspaar von der Platte.
func (tm *TLSManager) initializeManualTLS() error {
	logger.Info(logger.AreaSecurity, "Initializing manual TLS with cert: %s, key: %s", tm.config.CertFile, tm.config.KeyFile)
	cert, err := tls.LoadX509KeyPair(tm.config.CertFile, tm.config.KeyFile)
	if err != nil {
		return fmt.Errorf("loading certificate pair: %w", err)
	}
	tm.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"h2", "http/1.1"},
	}
	return nil
}

// IsEnabled reports whether HTTPS is on.
func (tm *TLSManager) IsEnabled() bool { return tm.config.Enabled }

// GetTLSConfig returns the server TLS config, nil when TLS is disabled.
func (tm *TLSManager) GetTLSConfig() *tls.Config {
	if !tm.config.Enabled {
		return nil
	}
	return tm.tlsConfig
}

// HTTPHandler answers ACME http-01 challenges and redirects everything else
// to HTTPS when that is configured. Nil when no plain HTTP listener is needed.
func (tm *TLSManager) HTTPHandler() http.Handler {
	if !tm.config.Enabled {
		return nil
	}
	var fallback http.Handler
	if tm.config.HTTPSRedirect {
		fallback = http.HandlerFunc(redirectToHTTPS)
	}
	if tm.autocertMgr != nil {
		return tm.autocertMgr.HTTPHandler(fallback)
	}
	return fallback
}

func redirectToHTTPS(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	target := "https://" + host + r.URL.RequestURI()
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

// ListenAndServe runs srv over TLS if enabled, otherwise plain HTTP.
func (tm *TLSManager) ListenAndServe(srv *http.Server) error {
	if !tm.config.Enabled {
		return srv.ListenAndServe()
	}
	srv.TLSConfig = tm.tlsConfig
	return srv.ListenAndServeTLS("", "")
}

// GenerateSelfSignedCert writes a self-signed ECDSA certificate for host
// to the configured cert and key files. It is meant for local development.
func (tm *TLSManager) GenerateSelfSignedCert(host string, validFor time.Duration) error {
	if tm.config.LetsEncrypt {
		return errors.New("cannot generate self-signed certificate when Let's Encrypt is enabled")
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return err
	}
	now := time.Now()
	tmpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"PixelBASIC development"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	if ip := net.ParseIP(host); ip != nil {
		tmpl.IPAddresses = []net.IP{ip}
	} else {
		tmpl.DNSNames = []string{host}
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return err
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}

	if err := writePEM(tm.config.CertFile, "CERTIFICATE", der, 0644); err != nil {
		return err
	}
	if err := writePEM(tm.config.KeyFile, "EC PRIVATE KEY", keyDER, 0600); err != nil {
		return err
	}
	logger.Info(logger.AreaSecurity, "self-signed certificate for %s written to %s", host, tm.config.CertFile)
	return nil
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), perm)
}
