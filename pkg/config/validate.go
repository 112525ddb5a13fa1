package config

import (
	"fmt"
	"time"

	"github.com/Hkmori15/hget/pkg/utils"
)

// Validate checks CrawlConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *CrawlConfig) Validate() (warnings []string, err error) {
	// MaxRedirects
	if c.MaxRedirects < 0 {
		return warnings, fmt.Errorf("%w: max_redirects cannot be negative", utils.ErrConfigValidation)
	}

	// MaxDepth
	if c.MaxDepth < 0 {
		return warnings, fmt.Errorf("%w: max_depth cannot be negative", utils.ErrConfigValidation)
	}

	// MaxConcurrent
	if c.MaxConcurrent <= 0 {
		warnings = append(warnings, "max_concurrent should be > 0, defaulting to 5")
		c.MaxConcurrent = 5
	}

	// MaxPerHost
	if c.MaxPerHost <= 0 {
		c.MaxPerHost = c.MaxConcurrent
	}
	if c.MaxPerHost > c.MaxConcurrent {
		warnings = append(warnings, fmt.Sprintf(
			"max_per_host (%d) > max_concurrent (%d), capping to max_concurrent",
			c.MaxPerHost, c.MaxConcurrent))
		c.MaxPerHost = c.MaxConcurrent
	}

	// Force and Resume are mutually exclusive: force truncates, resume appends
	if c.Force && c.Resume {
		warnings = append(warnings, "both force and resume set; force wins, resume ignored")
		c.Resume = false
	}

	// DelayPerHost
	if c.DelayPerHost.Duration < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, setting to 0")
		c.DelayPerHost = Duration{}
	}

	// UserAgent
	if c.UserAgent == "" {
		c.UserAgent = "hget/1.0"
	}

	c.HTTPClientSettings.applyDefaults()

	return warnings, nil
}

// applyDefaults fills zero-valued HTTP client settings.
func (h *HTTPClientConfig) applyDefaults() {
	if h.Timeout.Duration <= 0 {
		h.Timeout = DurationFrom(60 * time.Second)
	}
	if h.DialerTimeout.Duration <= 0 {
		h.DialerTimeout = DurationFrom(15 * time.Second)
	}
	if h.DialerKeepAlive.Duration <= 0 {
		h.DialerKeepAlive = DurationFrom(30 * time.Second)
	}
	if h.TLSHandshakeTimeout.Duration <= 0 {
		h.TLSHandshakeTimeout = DurationFrom(15 * time.Second)
	}
	if h.IdleConnTimeout.Duration <= 0 {
		h.IdleConnTimeout = DurationFrom(90 * time.Second)
	}
	if h.ExpectContinueTimeout.Duration <= 0 {
		h.ExpectContinueTimeout = DurationFrom(1 * time.Second)
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 10
	}
}
