package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hkmori15/hget/pkg/config"
	"github.com/Hkmori15/hget/pkg/models"
	"github.com/Hkmori15/hget/pkg/utils"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(NewFetcher(newTestClient(t), "hget/1.0", quietLogger()), quietLogger())
}

func resolveTarget(t *testing.T, r *Resolver, rawURL string, plan models.FetchPlan, cfg *config.CrawlConfig) (*models.FetchResult, io.ReadCloser, models.FetchPlan, error) {
	t.Helper()
	return r.Resolve(context.Background(), &models.Target{URL: mustParse(t, rawURL), Depth: 0}, plan, cfg)
}

func validated(t *testing.T, cfg config.CrawlConfig) *config.CrawlConfig {
	t.Helper()
	if _, err := cfg.Validate(); err != nil {
		t.Fatalf("config validation failed: %v", err)
	}
	return &cfg
}

func TestResolverFollowsRedirectChain(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		// Relative Location must resolve against the current URL.
		w.Header().Set("Location", "final")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>done</html>")
	})

	result, body, plan, err := resolveTarget(t, newTestResolver(t),
		server.URL+"/start", models.FreshPlan(), validated(t, config.Default()))

	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, 2, result.Redirects)
	assert.Equal(t, server.URL+"/final", result.FinalURL.String())
	assert.Equal(t, models.PlanFresh, plan.Kind)

	data, _ := io.ReadAll(body)
	assert.Equal(t, "<html>done</html>", string(data))
}

func TestResolverTooManyRedirects(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})

	cfg := config.Default()
	cfg.MaxRedirects = 3

	_, body, _, err := resolveTarget(t, newTestResolver(t),
		server.URL+"/loop", models.FreshPlan(), validated(t, cfg))

	require.Error(t, err)
	assert.Nil(t, body)
	assert.True(t, errors.Is(err, utils.ErrTooManyRedirects))
}

func TestResolverNoFollowSurfacesRedirectStatus(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	})

	cfg := config.Default()
	cfg.FollowRedirects = false

	result, body, _, err := resolveTarget(t, newTestResolver(t),
		server.URL+"/moved", models.FreshPlan(), validated(t, cfg))

	require.Error(t, err)
	assert.Nil(t, body)
	assert.True(t, errors.Is(err, utils.ErrHTTPStatus))
	require.NotNil(t, result)
	assert.Equal(t, http.StatusMovedPermanently, result.StatusCode)
}

func TestResolverResumePartialContent(t *testing.T) {
	full := "0123456789abcdef"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=10-", r.Header.Get("Range"))
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 10-%d/%d", len(full)-1, len(full)))
		w.WriteHeader(http.StatusPartialContent)
		io.WriteString(w, full[10:])
	}))
	defer server.Close()

	result, body, plan, err := resolveTarget(t, newTestResolver(t),
		server.URL, models.ResumePlan(10), validated(t, config.Default()))

	require.NoError(t, err)
	defer body.Close()

	assert.True(t, result.Resumed)
	assert.False(t, result.ResumeDegraded)
	assert.Equal(t, models.PlanResume, plan.Kind)

	data, _ := io.ReadAll(body)
	assert.Equal(t, "abcdef", string(data))
}

func TestResolverResumeDegradesOnFullResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Ignore the Range header entirely.
		io.WriteString(w, "the whole body")
	}))
	defer server.Close()

	result, body, plan, err := resolveTarget(t, newTestResolver(t),
		server.URL, models.ResumePlan(10), validated(t, config.Default()))

	require.NoError(t, err)
	defer body.Close()

	assert.False(t, result.Resumed)
	assert.True(t, result.ResumeDegraded)
	assert.Equal(t, models.PlanFresh, plan.Kind, "plan must degrade to a fresh write")
	assert.Zero(t, plan.Offset)
}

func TestResolverErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	result, body, _, err := resolveTarget(t, newTestResolver(t),
		server.URL+"/missing", models.FreshPlan(), validated(t, config.Default()))

	require.Error(t, err)
	assert.Nil(t, body)
	assert.True(t, errors.Is(err, utils.ErrHTTPStatus))
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, "HTTPStatus_404", utils.CategorizeError(err))
}

func TestResolverUnparseableLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://%zz/broken")
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	_, body, _, err := resolveTarget(t, newTestResolver(t),
		server.URL, models.FreshPlan(), validated(t, config.Default()))

	require.Error(t, err)
	assert.Nil(t, body)
	assert.True(t, errors.Is(err, utils.ErrMalformedResponse))
}

func TestResolverRedirectCountsResetPerTarget(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/r") {
			hits++
			http.Redirect(w, r, "/done", http.StatusFound)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	resolver := newTestResolver(t)
	cfg := validated(t, config.Default())

	for i := 0; i < 2; i++ {
		result, body, _, err := resolveTarget(t, resolver,
			fmt.Sprintf("%s/r%d", server.URL, i), models.FreshPlan(), cfg)
		require.NoError(t, err)
		body.Close()
		assert.Equal(t, 1, result.Redirects)
	}
	assert.Equal(t, 2, hits)
}
