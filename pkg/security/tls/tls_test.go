package tls

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	crand "crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// writeCertPair writes a self-signed certificate and key to dir and returns
// their paths.
func writeCertPair(t *testing.T, dir string, notAfter time.Time) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), crand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "proxy.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"proxy.test"},
	}

	der, err := x509.CreateCertificate(crand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}

	certPath := filepath.Join(dir, "tls.crt")
	keyPath := filepath.Join(dir, "tls.key")

	certOut, err := os.Create(certPath)
	if err != nil {
		t.Fatalf("creating cert file: %v", err)
	}
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		t.Fatalf("encoding cert: %v", err)
	}
	certOut.Close()

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshaling key: %v", err)
	}
	keyOut, err := os.Create(keyPath)
	if err != nil {
		t.Fatalf("creating key file: %v", err)
	}
	if err := pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}); err != nil {
		t.Fatalf("encoding key: %v", err)
	}
	keyOut.Close()

	return certPath, keyPath
}

func TestBuildDisabled(t *testing.T) {
	cfg := &config.TLSConfig{Enabled: false}
	tlsConfig, reloader, err := Build(cfg, nopLogger{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if tlsConfig != nil || reloader != nil {
		t.Error("expected nil config and reloader when disabled")
	}
}

func TestBuildRequiresCertAndKey(t *testing.T) {
	cfg := &config.TLSConfig{Enabled: true}
	if _, _, err := Build(cfg, nopLogger{}); err == nil {
		t.Fatal("expected error without cert_file")
	}

	cfg.CertFile = "/certs/tls.crt"
	if _, _, err := Build(cfg, nopLogger{}); err == nil {
		t.Fatal("expected error without key_file")
	}
}

func TestReloaderServesCertificate(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCertPair(t, dir, time.Now().Add(24*time.Hour))

	cfg := &config.TLSConfig{
		Enabled:        true,
		CertFile:       certPath,
		KeyFile:        keyPath,
		MinVersion:     "1.3",
		ReloadInterval: time.Minute,
	}

	tlsConfig, reloader, err := Build(cfg, nopLogger{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if tlsConfig.MinVersion != tls.VersionTLS13 {
		t.Errorf("expected TLS 1.3 minimum, got %x", tlsConfig.MinVersion)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reloader.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cert, err := tlsConfig.GetCertificate(&tls.ClientHelloInfo{})
	if err != nil {
		t.Fatalf("GetCertificate failed: %v", err)
	}
	if cert == nil || len(cert.Certificate) == 0 {
		t.Fatal("expected a loaded certificate")
	}
}

func TestReloaderRejectsExpiredCertificate(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCertPair(t, dir, time.Now().Add(-time.Hour))

	reloader := NewCertificateReloader(certPath, keyPath, time.Minute, nopLogger{})
	if err := reloader.Start(context.Background()); err == nil {
		t.Fatal("expected error for expired certificate")
	}
}

func TestReloaderPicksUpNewCertificate(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCertPair(t, dir, time.Now().Add(24*time.Hour))

	reloader := NewCertificateReloader(certPath, keyPath, time.Minute, nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := reloader.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	first := reloader.GetCertificate()

	// Rewrite the pair with a future mod time and force a check.
	time.Sleep(10 * time.Millisecond)
	writeCertPair(t, dir, time.Now().Add(48*time.Hour))
	if !reloader.needsReload() {
		t.Fatal("expected needsReload after rewrite")
	}
	if err := reloader.reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	second := reloader.GetCertificate()
	if string(first.Certificate[0]) == string(second.Certificate[0]) {
		t.Error("expected a different certificate after reload")
	}
}
