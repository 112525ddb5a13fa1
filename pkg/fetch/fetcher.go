package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/utils"
)

// Fetcher issues single HTTP requests through the shared client. It applies
// no retry policy; retrying (or aborting) a target is the caller's decision.
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       *logrus.Logger
}

// NewFetcher creates a Fetcher instance.
func NewFetcher(client *http.Client, userAgent string, log *logrus.Logger) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		log:       log,
	}
}

// Fetch performs one GET request for u. When rangeFrom > 0 a byte-range
// header requesting bytes from that offset is attached. The caller owns the
// response body. Errors are classified into distinct sentinel kinds
// (connection, timeout, TLS, malformed) so callers can decide per kind.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL, rangeFrom int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: for '%s': %w", utils.ErrRequestCreation, u, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if rangeFrom > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", rangeFrom))
	}

	reqLog := f.log.WithField("url", u.String())
	reqLog.Debug("Issuing request")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, u)
	}
	reqLog.WithFields(logrus.Fields{"status": resp.StatusCode}).Debug("Response received")
	return resp, nil
}

// classifyTransportError maps a client.Do error onto the fetcher's sentinel
// error kinds.
func classifyTransportError(err error, u *url.URL) error {
	// Context cancellation passes through untouched so callers can
	// distinguish shutdown from genuine network failure.
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: fetching '%s': %w", utils.ErrTimeout, u, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: fetching '%s': %w", utils.ErrTimeout, u, err)
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthErr) ||
		errors.As(err, &hostnameErr) || errors.As(err, &recordErr) {
		return fmt.Errorf("%w: fetching '%s': %w", utils.ErrTLSFailure, u, err)
	}

	lowerMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerMsg, "tls") || strings.Contains(lowerMsg, "certificate") {
		return fmt.Errorf("%w: fetching '%s': %w", utils.ErrTLSFailure, u, err)
	}
	if strings.Contains(lowerMsg, "malformed") || strings.Contains(lowerMsg, "bad response") {
		return fmt.Errorf("%w: fetching '%s': %w", utils.ErrMalformedResponse, u, err)
	}

	// Everything else (dial failure, DNS, reset, EOF) is a connection failure
	return fmt.Errorf("%w: fetching '%s': %w", utils.ErrConnectionFailure, u, err)
}
