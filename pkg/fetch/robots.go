package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// RobotsPolicy fetches, parses, and caches robots.txt per host and answers
// allow/deny questions for the configured user agent. A missing or
// unfetchable robots.txt allows everything, matching common crawler
// behavior.
type RobotsPolicy struct {
	fetcher   *Fetcher
	userAgent string
	cache     map[string]*robotstxt.RobotsData // host -> parsed data, nil means allow-all
	cacheMu   sync.Mutex
	log       *logrus.Entry
}

// NewRobotsPolicy creates a RobotsPolicy.
func NewRobotsPolicy(fetcher *Fetcher, userAgent string, log *logrus.Entry) *RobotsPolicy {
	return &RobotsPolicy{
		fetcher:   fetcher,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
		log:       log,
	}
}

// Allowed reports whether u may be fetched by the configured agent.
func (p *RobotsPolicy) Allowed(ctx context.Context, u *url.URL) bool {
	host := u.Host
	data, cached := p.lookup(host)
	if !cached {
		data = p.fetchRobots(ctx, u)
		p.store(host, data)
	}
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, p.userAgent)
}

func (p *RobotsPolicy) lookup(host string) (*robotstxt.RobotsData, bool) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	data, found := p.cache[host]
	return data, found
}

func (p *RobotsPolicy) store(host string, data *robotstxt.RobotsData) {
	p.cacheMu.Lock()
	p.cache[host] = data
	p.cacheMu.Unlock()
}

// fetchRobots retrieves and parses robots.txt for the host of u. Any error
// along the way yields nil (allow-all); robots compliance is best effort and
// must never fail a crawl.
func (p *RobotsPolicy) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}
	hostLog := p.log.WithField("host", u.Host)
	hostLog.Debug("Fetching robots.txt")

	resp, err := p.fetcher.Fetch(ctx, robotsURL, 0)
	if err != nil {
		hostLog.Debugf("robots.txt fetch failed, allowing all: %v", err)
		return nil
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		hostLog.Debugf("robots.txt status %d, allowing all", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		hostLog.Debugf("robots.txt read failed, allowing all: %v", err)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		hostLog.Warnf("robots.txt parse failed, allowing all: %v", err)
		return nil
	}
	hostLog.Debug("robots.txt parsed and cached")
	return data
}
