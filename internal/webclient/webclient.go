// Package webclient builds the HTTP clients scanners share: cached DNS,
// optional SOCKS5 egress, and a transport that injects browser-like headers
// on every request.
package webclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/dnscache"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"

	"github.com/osinthound/osinthound/internal/config"
	oserrors "github.com/osinthound/osinthound/internal/errors"
)

const (
	defaultAccept  = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	dnsRefreshTTL  = 5 * time.Minute
	maxBodyBytes   = 4 << 20
	dialTimeout    = 10 * time.Second
	dialKeepAlive  = 30 * time.Second
	maxIdlePerHost = 8
)

var (
	resolver     *dnscache.Resolver
	resolverOnce sync.Once
)

func cachedResolver() *dnscache.Resolver {
	resolverOnce.Do(func() {
		resolver = &dnscache.Resolver{}
		go func() {
			ticker := time.NewTicker(dnsRefreshTTL)
			defer ticker.Stop()
			for range ticker.C {
				resolver.Refresh(true)
				log.Debug().Msg("DNS cache refreshed")
			}
		}()
	})
	return resolver
}

// dialContextWithCache resolves hosts through the shared DNS cache before
// dialing, so hundreds of catalogue checks do not hammer the resolver.
func dialContextWithCache(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	ips, err := cachedResolver().LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{Err: "no IP addresses found", Name: host}
	}

	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: dialKeepAlive}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
}

// headerTransport injects default headers on every outgoing request unless
// the request already carries that header.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}
	return t.base.RoundTrip(clone)
}

// Build constructs an HTTP client from Settings. extraHeaders are injected
// alongside the browser defaults and win on key collision.
func Build(settings config.Settings, extraHeaders map[string]string) (*http.Client, error) {
	transport := &http.Transport{
		DialContext:         dialContextWithCache,
		MaxIdleConnsPerHost: maxIdlePerHost,
		ForceAttemptHTTP2:   true,
	}

	if addr := strings.TrimSpace(settings.SOCKS5Proxy); addr != "" {
		dialer, err := proxy.SOCKS5("tcp", addr, nil, &net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		})
		if err != nil {
			return nil, fmt.Errorf("configure SOCKS5 proxy %s: %w", addr, err)
		}
		if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = ctxDialer.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
				return dialer.Dial(network, address)
			}
		}
		log.Info().Str("proxy", addr).Msg("Routing scanner traffic through SOCKS5 proxy")
	}

	headers := map[string]string{
		"User-Agent": settings.UserAgent,
		"Accept":     defaultAccept,
	}
	for key, value := range extraHeaders {
		headers[key] = value
	}

	return &http.Client{
		Timeout:   settings.HTTPTimeout,
		Transport: &headerTransport{base: transport, headers: headers},
	}, nil
}

// Response is the flattened result scanners consume: final URL after
// redirects, status, and a size-capped body.
type Response struct {
	StatusCode int
	FinalURL   string
	Header     http.Header
	Body       []byte
}

// BodyString returns the body as text.
func (r *Response) BodyString() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Get fetches url and drains up to 4 MiB of body. Redirects are followed;
// the final URL lands on the response.
func Get(ctx context.Context, client *http.Client, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapRequestError("http_get", req, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, wrapRequestError("http_get", req, err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		FinalURL:   finalURL,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// wrapRequestError classifies a failed round-trip so callers can tell
// timeouts from connection failures without string matching.
func wrapRequestError(op string, req *http.Request, err error) error {
	source := ""
	if req != nil && req.URL != nil {
		source = req.URL.Host
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return oserrors.WrapTimeout(op, source, err)
	}
	return oserrors.WrapTransport(op, source, err)
}

// Post sends a request with a body and content type, reusing the same
// drain-and-flatten behavior as Get.
func Post(ctx context.Context, client *http.Client, url, contentType string, payload io.Reader, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapRequestError("http_post", req, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, wrapRequestError("http_post", req, err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		FinalURL:   finalURL,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
