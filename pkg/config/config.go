package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CrawlConfig is the immutable policy snapshot for one crawl invocation.
// It is created once at startup, validated, and then shared read-only by all
// workers; nothing mutates it after Validate has applied defaults.
type CrawlConfig struct {
	MaxRedirects    int  `yaml:"max_redirects"`
	FollowRedirects bool `yaml:"follow_redirects"`
	Resume          bool `yaml:"resume"`
	Force           bool `yaml:"force"`
	Recursive       bool `yaml:"recursive"`
	MaxDepth        int  `yaml:"max_depth"`
	MaxConcurrent   int  `yaml:"max_concurrent"`
	// MaxPerHost caps simultaneous in-flight requests per host. Defaults to
	// MaxConcurrent (no extra per-host restriction).
	MaxPerHost    int      `yaml:"max_per_host,omitempty"`
	SameDomain    bool     `yaml:"same_domain"`
	RespectRobots bool     `yaml:"respect_robots,omitempty"`
	UserAgent     string   `yaml:"user_agent,omitempty"`
	DelayPerHost  Duration `yaml:"delay_per_host,omitempty"`

	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client.
type HTTPClientConfig struct {
	Timeout               Duration `yaml:"timeout,omitempty"`                 // Wait for response headers, not body transfer
	MaxIdleConns          int      `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int      `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout Duration `yaml:"expect_continue_timeout,omitempty"`
	ForceAttemptHTTP2     *bool    `yaml:"force_attempt_http2,omitempty"` // Pointer for tri-state: nil=default, true=force, false=disable
	DialerTimeout         Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive       Duration `yaml:"dialer_keep_alive,omitempty"`
}

// Default returns a CrawlConfig matching the built-in flag defaults.
func Default() CrawlConfig {
	return CrawlConfig{
		MaxRedirects:    10,
		FollowRedirects: true,
		MaxDepth:        5,
		MaxConcurrent:   5,
	}
}

// LoadDefaults reads a YAML defaults file on top of the built-in defaults.
// Command-line flags that were explicitly set still win over the file.
func LoadDefaults(path string) (*CrawlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
