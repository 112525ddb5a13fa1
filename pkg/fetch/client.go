package fetch

import (
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/config"
)

// NewClient creates the shared HTTP client based on the provided
// configuration. Redirects are never followed by the client itself; the
// Resolver owns the redirect chain so it can count hops and apply policy.
// The configured timeout bounds the wait for response headers, not the body
// transfer: large downloads must not be cut off mid-stream.
func NewClient(cfg config.HTTPClientConfig, log *logrus.Logger) *http.Client {
	log.Debug("Initializing HTTP client...")

	dialer := &net.Dialer{
		Timeout:   cfg.DialerTimeout.Duration,
		KeepAlive: cfg.DialerKeepAlive.Duration,
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		ForceAttemptHTTP2:      true,
		MaxIdleConns:           cfg.MaxIdleConns,
		MaxIdleConnsPerHost:    cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:        cfg.IdleConnTimeout.Duration,
		TLSHandshakeTimeout:    cfg.TLSHandshakeTimeout.Duration,
		ExpectContinueTimeout:  cfg.ExpectContinueTimeout.Duration,
		ResponseHeaderTimeout:  cfg.Timeout.Duration,
		MaxResponseHeaderBytes: 1 << 20, // 1MB max header size
	}
	if cfg.ForceAttemptHTTP2 != nil {
		transport.ForceAttemptHTTP2 = *cfg.ForceAttemptHTTP2
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
