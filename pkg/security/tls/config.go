package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

// Build converts the TLS configuration into a crypto/tls.Config wired to a
// certificate reloader, so certificate rotation (cert-manager, Let's
// Encrypt) takes effect without a restart. The returned reloader must be
// started before the server accepts connections.
func Build(cfg *config.TLSConfig, logger Logger) (*tls.Config, *CertificateReloader, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	if cfg.CertFile == "" {
		return nil, nil, fmt.Errorf("cert_file is required when TLS is enabled")
	}
	if cfg.KeyFile == "" {
		return nil, nil, fmt.Errorf("key_file is required when TLS is enabled")
	}

	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)

	tlsConfig := &tls.Config{
		MinVersion: parseTLSVersion(cfg.MinVersion),
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			cert := reloader.GetCertificate()
			if cert == nil {
				return nil, fmt.Errorf("no certificate loaded")
			}
			return cert, nil
		},
	}

	if cfg.MTLS.Enabled {
		if err := configureMTLS(tlsConfig, &cfg.MTLS); err != nil {
			return nil, nil, fmt.Errorf("failed to configure mTLS: %w", err)
		}
	}

	return tlsConfig, reloader, nil
}

// parseTLSVersion converts the MinVersion string to a tls version constant.
// TLS 1.0 and 1.1 are not supported.
func parseTLSVersion(version string) uint16 {
	switch version {
	case "1.2":
		return tls.VersionTLS12
	default:
		return tls.VersionTLS13
	}
}

// configureMTLS sets up client certificate verification.
func configureMTLS(tlsConfig *tls.Config, cfg *config.MTLSConfig) error {
	if cfg.ClientCAFile == "" {
		return fmt.Errorf("client_ca_file is required when mTLS is enabled")
	}

	caPEM, err := os.ReadFile(cfg.ClientCAFile)
	if err != nil {
		return fmt.Errorf("reading client CA file: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return fmt.Errorf("no certificates found in client CA file %q", cfg.ClientCAFile)
	}
	tlsConfig.ClientCAs = pool

	switch cfg.ClientAuthType {
	case "request":
		tlsConfig.ClientAuth = tls.RequestClientCert
	case "verify_if_given":
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	default:
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return nil
}
