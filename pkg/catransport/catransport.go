package catransport

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"time"
)

var _ http.RoundTripper = (*Transport)(nil)

// Transport is used for outbound calls (Telegram, tax registry) when they
// go through a proxy that re-signs TLS with its own CA.
type Transport struct {
	transport *http.Transport
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	return t.transport.RoundTrip(request)
}

// New trusts the system roots plus every certificate in the PEM bundle at
// caPath.
func New(caPath string) (*Transport, error) {
	caBytes, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}

	certPool, err := x509.SystemCertPool()
	if err != nil {
		certPool = x509.NewCertPool()
	}

	count := 0
	for rest := caBytes; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("invalid pem block type %s, expected CERTIFICATE", block.Type)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse certificate: %v", err)
		}
		certPool.AddCert(cert)
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("no certificate found in %s", caPath)
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{
		RootCAs:    certPool,
		MinVersion: tls.VersionTLS12,
	}
	t.ForceAttemptHTTP2 = true
	t.TLSHandshakeTimeout = 10 * time.Second

	return &Transport{transport: t}, nil
}
