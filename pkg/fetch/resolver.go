package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/config"
	"github.com/Hkmori15/hget/pkg/models"
	"github.com/Hkmori15/hget/pkg/utils"
)

// Resolver follows redirect responses up to the configured limit, tracking
// the chain, and hands the terminal response back to the scheduler.
type Resolver struct {
	fetcher *Fetcher
	log     *logrus.Logger
}

// NewResolver creates a Resolver on top of a Fetcher.
func NewResolver(fetcher *Fetcher, log *logrus.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, log: log}
}

// Resolve fetches the target, following 3xx responses until a terminal
// status is reached or the hop limit is exceeded. The plan's resume offset
// is requested on every hop; if the terminal response is a full 200 instead
// of a 206, the returned plan is degraded to a fresh write and the result's
// ResumeDegraded flag is set (warning, not failure).
//
// On a success status the response body is returned open and the caller must
// close it. On any error the body is nil and nothing has been written for
// this target.
func (r *Resolver) Resolve(ctx context.Context, target *models.Target, plan models.FetchPlan, cfg *config.CrawlConfig) (*models.FetchResult, io.ReadCloser, models.FetchPlan, error) {
	current := target.URL
	hops := 0
	taskLog := r.log.WithFields(logrus.Fields{"url": target.URL.String(), "depth": target.Depth})

	for {
		resp, err := r.fetcher.Fetch(ctx, current, plan.Offset)
		if err != nil {
			return nil, nil, plan, err
		}

		location := resp.Header.Get("Location")
		if isRedirect(resp.StatusCode) && location != "" && cfg.FollowRedirects {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			hops++
			if hops > cfg.MaxRedirects {
				return nil, nil, plan, fmt.Errorf("%w: %d hops exceed limit %d for '%s'",
					utils.ErrTooManyRedirects, hops, cfg.MaxRedirects, target.URL)
			}

			next, parseErr := current.Parse(location)
			if parseErr != nil {
				return nil, nil, plan, fmt.Errorf("%w: unparseable Location '%s' from '%s': %w",
					utils.ErrMalformedResponse, location, current, parseErr)
			}
			taskLog.WithFields(logrus.Fields{"hop": hops, "location": next.String()}).Debug("Following redirect")
			current = next
			continue
		}

		// Terminal response. With redirects disabled a 3xx lands here and is
		// surfaced as the final result; its body is not resource content.
		result := &models.FetchResult{
			FinalURL:    current,
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Redirects:   hops,
		}

		switch {
		case resp.StatusCode == http.StatusPartialContent:
			result.Resumed = plan.Offset > 0
			return result, resp.Body, plan, nil

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if plan.Offset > 0 {
				// Range not honored: degrade to a fresh write so the
				// download completes correctly instead of corrupting the file.
				taskLog.Warnf("Server ignored range request (status %d), restarting '%s' from the beginning",
					resp.StatusCode, current)
				plan = models.FreshPlan()
				result.ResumeDegraded = true
			}
			return result, resp.Body, plan, nil

		default:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return result, nil, plan, fmt.Errorf("%w: status %d for '%s'",
				utils.ErrHTTPStatus, resp.StatusCode, current)
		}
	}
}

// isRedirect reports whether status is a redirect the resolver should chase.
// 304 is excluded; it carries no Location to follow.
func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect, http.StatusMultipleChoices:
		return true
	default:
		return false
	}
}
