package breach

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
)

const fingerprintDialTimeout = 10 * time.Second

// tlsConfigFn is a seam for tests that need to relax certificate checks.
var tlsConfigFn = func(host string) *utls.Config {
	return &utls.Config{ServerName: host}
}

// chromeSpec returns a Chrome 120 ClientHello with ALPN pinned to http/1.1,
// since the standard transport cannot speak h2 over a hand-rolled TLS conn.
func chromeSpec() (utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_120)
	if err != nil {
		return spec, fmt.Errorf("load Chrome hello spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return spec, nil
}

func dialFingerprintTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	spec, err := chromeSpec()
	if err != nil {
		return nil, err
	}

	raw, err := (&net.Dialer{Timeout: fingerprintDialTimeout}).DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	conn := utls.UClient(raw, tlsConfigFn(host), utls.HelloCustom)
	if err := conn.ApplyPreset(&spec); err != nil {
		raw.Close()
		return nil, fmt.Errorf("apply Chrome hello spec: %w", err)
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	return conn, nil
}

// newFingerprintClient wraps the fallback client's timeout around a transport
// that performs Chrome-fingerprinted TLS handshakes.
func newFingerprintClient(fallback *http.Client) (*http.Client, error) {
	if _, err := chromeSpec(); err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport: &http.Transport{
			DialTLSContext:      dialFingerprintTLS,
			MaxIdleConnsPerHost: 2,
		},
	}
	if fallback != nil {
		client.Timeout = fallback.Timeout
	}
	return client, nil
}
