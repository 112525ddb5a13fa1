package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/config"
	"github.com/Hkmori15/hget/pkg/utils"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	cfg := config.Default()
	if _, err := cfg.Validate(); err != nil {
		t.Fatalf("config validation failed: %v", err)
	}
	return NewClient(cfg.HTTPClientSettings, quietLogger())
}

func mustParse(t *testing.T, rawURL string) *url.URL {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("url.Parse(%q) failed: %v", rawURL, err)
	}
	return u
}

func TestFetcherSuccess(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	f := NewFetcher(newTestClient(t), "hget/1.0", quietLogger())
	resp, err := f.Fetch(context.Background(), mustParse(t, server.URL), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}
	if gotUA != "hget/1.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "hget/1.0")
	}
}

func TestFetcherRangeHeader(t *testing.T) {
	tests := []struct {
		name      string
		rangeFrom int64
		wantRange string
	}{
		{"no offset omits header", 0, ""},
		{"positive offset sets header", 1024, "bytes=1024-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRange string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotRange = r.Header.Get("Range")
			}))
			defer server.Close()

			f := NewFetcher(newTestClient(t), "hget/1.0", quietLogger())
			resp, err := f.Fetch(context.Background(), mustParse(t, server.URL), tt.rangeFrom)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp.Body.Close()

			if gotRange != tt.wantRange {
				t.Errorf("Range header = %q, want %q", gotRange, tt.wantRange)
			}
		})
	}
}

func TestFetcherConnectionRefused(t *testing.T) {
	// Grab a port that nothing is listening on.
	server := httptest.NewServer(http.NotFoundHandler())
	deadURL := server.URL
	server.Close()

	f := NewFetcher(newTestClient(t), "hget/1.0", quietLogger())
	_, err := f.Fetch(context.Background(), mustParse(t, deadURL), 0)

	if !errors.Is(err, utils.ErrConnectionFailure) {
		t.Errorf("expected ErrConnectionFailure, got %v", err)
	}
}

func TestFetcherHeaderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.HTTPClientSettings.Timeout = config.DurationFrom(50 * time.Millisecond)
	if _, err := cfg.Validate(); err != nil {
		t.Fatalf("config validation failed: %v", err)
	}
	client := NewClient(cfg.HTTPClientSettings, quietLogger())

	f := NewFetcher(client, "hget/1.0", quietLogger())
	_, err := f.Fetch(context.Background(), mustParse(t, server.URL), 0)

	if !errors.Is(err, utils.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestFetcherContextCanceledPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	f := NewFetcher(newTestClient(t), "hget/1.0", quietLogger())
	_, err := f.Fetch(ctx, mustParse(t, server.URL), 0)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, utils.ErrConnectionFailure) || errors.Is(err, utils.ErrTimeout) {
		t.Errorf("cancellation should not be classified as a network failure: %v", err)
	}
}
