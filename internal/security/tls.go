package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ServerTLSConfig holds HTTPS listener settings.
type ServerTLSConfig struct {
	CertFile string
	KeyFile  string
	// ClientCAFile enables mutual TLS when set.
	ClientCAFile string
}

// Enabled reports whether a certificate is configured.
func (c ServerTLSConfig) Enabled() bool {
	return c.CertFile != "" || c.KeyFile != ""
}

// LoadServerTLS builds a TLS 1.3 server configuration. Client certificates
// are required and verified only when a client CA is configured.
func LoadServerTLS(cfg ServerTLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("both certificate and key files are required")
	}
	serverCert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS13,
	}

	if cfg.ClientCAFile != "" {
		caCert, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("read client CA certificate: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to add client CA certificate")
		}
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = caPool
	}

	return tlsConfig, nil
}
