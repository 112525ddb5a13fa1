package utils

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io/fs"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrConnectionFailure  = errors.New("connection failure")             // Wraps dial/DNS/reset errors
	ErrTimeout            = errors.New("request timed out")              // No byte received within the configured timeout
	ErrTLSFailure         = errors.New("TLS handshake failure")          // Wraps certificate/handshake errors
	ErrMalformedResponse  = errors.New("malformed response")             // Unparseable response or Location header
	ErrTooManyRedirects   = errors.New("too many redirects")             // Redirect chain exceeded the configured maximum
	ErrHTTPStatus         = errors.New("unexpected HTTP status")         // Terminal non-success status
	ErrAlreadyExists      = errors.New("destination already exists")     // Conflict without -f or -c
	ErrResumeNotSupported = errors.New("server does not support resume") // Degraded to fresh write, warning only
	ErrIO                 = errors.New("filesystem error")               // Wraps os errors on the write path
	ErrRobotsDisallowed   = errors.New("disallowed by robots.txt")
	ErrRequestCreation    = errors.New("failed to create HTTP request")
	ErrConfigValidation   = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for the
// reporter and the per-kind failure tally.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Check against sentinel errors first
	switch {
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrTLSFailure):
		return "TLSFailure"
	case errors.Is(err, ErrConnectionFailure):
		return "ConnectionFailure"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	case errors.Is(err, ErrTooManyRedirects):
		return "TooManyRedirects"
	case errors.Is(err, ErrHTTPStatus):
		// Split out the statuses callers most often need to distinguish
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") || strings.HasSuffix(errMsg, " 404") {
			return "HTTPStatus_404"
		}
		if strings.Contains(errMsg, " 403 ") || strings.HasSuffix(errMsg, " 403") {
			return "HTTPStatus_403"
		}
		return "HTTPStatus"
	case errors.Is(err, ErrAlreadyExists):
		return "AlreadyExists"
	case errors.Is(err, ErrResumeNotSupported):
		return "ResumeNotSupported"
	case errors.Is(err, ErrIO):
		if errors.Is(err, os.ErrPermission) {
			return "IOFailure_Permission"
		}
		return "IOFailure"
	case errors.Is(err, ErrRobotsDisallowed):
		return "Policy_Robots"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	// Context errors (cancellation via signal or crawl shutdown)
	if errors.Is(err, context.Canceled) {
		return "Canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}

	// TLS errors that escaped the transport classification
	var certErr *tls.CertificateVerificationError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthErr) || errors.As(err, &hostnameErr) {
		return "TLSFailure"
	}

	// Network errors (if not wrapped by custom sentinels)
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "Timeout"
		}
		return "ConnectionFailure"
	}

	// Filesystem errors reaching us unwrapped (write path passes through
	// io.Copy, which loses the read/write distinction)
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return "IOFailure"
	}

	// Use lowercase for reliable substring checks
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") || strings.Contains(lowerErrMsg, "deadline exceeded") {
		return "Timeout"
	}
	if strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate") {
		return "TLSFailure"
	}
	if strings.Contains(lowerErrMsg, "connection refused") ||
		strings.Contains(lowerErrMsg, "no such host") ||
		strings.Contains(lowerErrMsg, "reset by peer") ||
		strings.Contains(lowerErrMsg, "broken pipe") {
		return "ConnectionFailure"
	}
	if strings.Contains(lowerErrMsg, "malformed") {
		return "MalformedResponse"
	}

	return "Unknown"
}
