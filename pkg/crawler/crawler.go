package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/config"
	"github.com/Hkmori15/hget/pkg/fetch"
	"github.com/Hkmori15/hget/pkg/models"
	"github.com/Hkmori15/hget/pkg/output"
	"github.com/Hkmori15/hget/pkg/parse"
	"github.com/Hkmori15/hget/pkg/queue"
	"github.com/Hkmori15/hget/pkg/storage"
	"github.com/Hkmori15/hget/pkg/utils"
)

// Reporter receives the terminal event for every processed target. The
// crawler itself formats and prints nothing.
type Reporter interface {
	TargetFinished(models.Outcome)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) TargetFinished(models.Outcome) {}

// Crawler orchestrates one crawl: it owns the frontier, enforces depth and
// domain policy, deduplicates URLs, and dispatches targets to a bounded pool
// of workers.
type Crawler struct {
	log     *logrus.Entry // contextualized with run_id
	cfg     *config.CrawlConfig
	baseDir string // destination root for recursively discovered targets

	// Core components
	frontier *queue.Frontier
	visited  *storage.VisitedSet
	resolver *fetch.Resolver
	writer   *output.Writer
	robots   *fetch.RobotsPolicy // nil when robots compliance is disabled

	// Concurrency control
	hostLimiter *fetch.HostLimiter
	rateLimiter *fetch.RateLimiter

	// Tracking and coordination
	wg        sync.WaitGroup // counts outstanding targets
	completed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	bytes     atomic.Int64

	byCategory   map[string]int64
	byCategoryMu sync.Mutex

	reporter Reporter
	crawlCtx context.Context
	runID    string
}

// New creates and initializes a Crawler. robots may be nil to disable
// robots.txt checks; reporter may be nil to discard events.
func New(
	crawlCtx context.Context,
	cfg *config.CrawlConfig,
	baseDir string,
	resolver *fetch.Resolver,
	writer *output.Writer,
	robots *fetch.RobotsPolicy,
	reporter Reporter,
	baseLogger *logrus.Entry,
) *Crawler {
	runID := uuid.NewString()
	logger := baseLogger.WithField("run_id", runID)

	if reporter == nil {
		reporter = NopReporter{}
	}

	return &Crawler{
		log:         logger,
		cfg:         cfg,
		baseDir:     baseDir,
		frontier:    queue.NewFrontier(logger),
		visited:     storage.NewVisitedSet(),
		resolver:    resolver,
		writer:      writer,
		robots:      robots,
		hostLimiter: fetch.NewHostLimiter(cfg.MaxPerHost, logger),
		rateLimiter: fetch.NewRateLimiter(cfg.DelayPerHost.Duration, logger),
		byCategory:  make(map[string]int64),
		reporter:    reporter,
		crawlCtx:    crawlCtx,
		runID:       runID,
	}
}

// RunID returns the unique identifier of this crawl invocation.
func (c *Crawler) RunID() string { return c.runID }

// Run seeds the frontier with the given roots and blocks until every target
// has settled or the crawl context is cancelled. Individual target failures
// never abort the crawl; they are aggregated into the summary.
func (c *Crawler) Run(roots []*models.Target) models.CrawlSummary {
	start := time.Now()
	c.log.Infof("Crawl starting with %d worker(s), %d root(s)...", c.cfg.MaxConcurrent, len(roots))

	for _, root := range roots {
		c.wg.Add(1)
		if !c.frontier.Add(root) {
			c.wg.Done()
		}
	}

	var workersWg sync.WaitGroup
	for i := 1; i <= c.cfg.MaxConcurrent; i++ {
		workersWg.Add(1)
		workerLog := c.log.WithField("worker_id", i)
		go func() {
			defer workersWg.Done()
			c.worker(workerLog)
		}()
	}

	// Waiter: close the frontier once every outstanding target has settled,
	// or stop admitting new work when the crawl context is cancelled.
	go func() {
		tasksDone := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(tasksDone)
		}()
		select {
		case <-tasksDone:
			c.log.Debug("All targets settled, closing frontier")
		case <-c.crawlCtx.Done():
			c.log.Warnf("Crawl context cancelled, closing frontier: %v", c.crawlCtx.Err())
		}
		c.frontier.Close()
	}()

	workersWg.Wait()

	summary := models.CrawlSummary{
		RunID:      c.runID,
		Completed:  c.completed.Load(),
		Failed:     c.failed.Load(),
		Skipped:    c.skipped.Load(),
		Bytes:      c.bytes.Load(),
		Duration:   time.Since(start),
		ByCategory: c.categorySnapshot(),
	}
	c.log.WithFields(logrus.Fields{
		"completed": summary.Completed,
		"failed":    summary.Failed,
		"bytes":     summary.Bytes,
		"duration":  summary.Duration.String(),
	}).Info("Crawl finished")
	return summary
}

// worker runs the loop for a single worker goroutine.
func (c *Crawler) worker(workerLog *logrus.Entry) {
	workerLog.Debug("Worker starting")
	defer workerLog.Debug("Worker finished")

	for {
		target, ok := c.frontier.Pop()
		if !ok { // frontier closed and drained
			return
		}
		c.process(target, workerLog)
	}
}

// process runs the pipeline for one target: admit, plan, resolve, write,
// recurse.
func (c *Crawler) process(t *models.Target, workerLog *logrus.Entry) {
	taskLog := workerLog.WithFields(logrus.Fields{"url": t.URL.String(), "depth": t.Depth})
	startTime := time.Now()

	var taskErr error
	var written int64
	var skipped bool

	// Settle: panic recovery, counters, reporter event, WaitGroup decrement.
	defer func() {
		if r := recover(); r != nil {
			skipped = false
			taskErr = fmt.Errorf("panic: %v", r)
			taskLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered while processing target")
		}

		if skipped {
			c.skipped.Add(1)
			taskLog.Debug("Duplicate target discarded")
		} else {
			outcome := models.Outcome{
				URL:      t.URL.String(),
				Dest:     t.Dest,
				Bytes:    written,
				Depth:    t.Depth,
				Category: utils.CategorizeError(taskErr),
				Err:      taskErr,
			}
			logFields := logrus.Fields{"duration": time.Since(startTime).String()}
			if taskErr != nil {
				c.failed.Add(1)
				c.tally(outcome.Category)
				logFields["category"] = outcome.Category
				taskLog.WithFields(logFields).Warnf("Target failed: %v", taskErr)
			} else {
				c.completed.Add(1)
				c.bytes.Add(written)
				logFields["bytes"] = written
				logFields["dest"] = t.Dest
				taskLog.WithFields(logFields).Info("Target completed")
			}
			c.reporter.TargetFinished(outcome)
		}
		c.wg.Done()
	}()

	// Admission: atomic check-and-insert at the moment the target is pulled,
	// so a URL discovered twice concurrently is fetched at most once.
	if !c.visited.TryInsert(parse.NormalizeURL(t.URL)) {
		skipped = true
		return
	}

	if err := c.crawlCtx.Err(); err != nil {
		taskErr = err
		return
	}

	if c.robots != nil && !c.robots.Allowed(c.crawlCtx, t.URL) {
		taskErr = fmt.Errorf("%w: '%s'", utils.ErrRobotsDisallowed, t.URL)
		return
	}

	host := t.URL.Host
	if err := c.hostLimiter.Acquire(c.crawlCtx, host); err != nil {
		taskErr = fmt.Errorf("acquiring host permit for '%s': %w", host, err)
		return
	}
	defer c.hostLimiter.Release(host)

	c.rateLimiter.Wait(host)

	plan, err := output.PlanWrite(t.Dest, c.cfg, taskLog)
	if err != nil {
		taskErr = err
		return
	}

	result, body, plan, err := c.resolver.Resolve(c.crawlCtx, t, plan, c.cfg)
	c.rateLimiter.Touch(host)
	if err != nil {
		// No bytes were written for this target; any prior partial file on
		// disk is untouched.
		taskErr = err
		return
	}
	defer body.Close()

	// The terminal URL of the chain also counts as visited so the redirect
	// destination is not fetched again when discovered directly.
	if finalKey := parse.NormalizeURL(result.FinalURL); finalKey != "" {
		c.visited.TryInsert(finalKey)
	}

	if result.Redirects > 0 {
		taskLog = taskLog.WithField("final_url", result.FinalURL.String())
	}

	// Tee the body into memory only when this target's content will be
	// inspected for links.
	wantLinks := c.cfg.Recursive && t.Depth < c.cfg.MaxDepth && parse.IsHTML(result.ContentType)
	reader := io.Reader(body)
	var htmlBuf bytes.Buffer
	if wantLinks {
		reader = io.TeeReader(body, &htmlBuf)
	}

	written, err = c.writer.Write(t.Dest, plan, reader)
	if err != nil {
		taskErr = err
		return
	}

	if result.ResumeDegraded {
		taskLog.Warnf("%v; '%s' was rewritten from scratch", utils.ErrResumeNotSupported, t.Dest)
	}

	if wantLinks {
		c.enqueueChildren(t, result.FinalURL, &htmlBuf, taskLog)
	}
}

// enqueueChildren extracts links from a fetched HTML body and adds the
// survivors of domain filtering to the frontier at depth+1.
func (c *Crawler) enqueueChildren(parent *models.Target, base *url.URL, html io.Reader, taskLog *logrus.Entry) {
	links := parse.ExtractLinks(html, base, taskLog)
	queued := 0
	for _, link := range links {
		// Same-domain policy is anchored at the parent's root host, not at
		// any post-redirect host. Hosts compare case-insensitively; HTML
		// authors are free to uppercase them.
		if c.cfg.SameDomain && !strings.EqualFold(link.Host, parent.AnchorHost) {
			taskLog.Debugf("Skipping off-domain link: %s", link)
			continue
		}
		if c.visited.Contains(parse.NormalizeURL(link)) {
			continue // cheap pre-filter; admission stays atomic at pop time
		}
		if c.crawlCtx.Err() != nil {
			return // stop admitting new frontier entries once cancelled
		}

		child := &models.Target{
			URL:        link,
			Depth:      parent.Depth + 1,
			AnchorHost: parent.AnchorHost,
			Dest:       utils.DestinationPath(link, c.baseDir),
		}
		c.wg.Add(1)
		if !c.frontier.Add(child) {
			// Cancellation closed the frontier after the ctx check above;
			// the child will never be processed, so settle it here.
			c.wg.Done()
			return
		}
		queued++
	}
	if queued > 0 {
		taskLog.Debugf("Queued %d new link(s) at depth %d", queued, parent.Depth+1)
	}
}

func (c *Crawler) tally(category string) {
	c.byCategoryMu.Lock()
	c.byCategory[category]++
	c.byCategoryMu.Unlock()
}

func (c *Crawler) categorySnapshot() map[string]int64 {
	c.byCategoryMu.Lock()
	defer c.byCategoryMu.Unlock()
	snapshot := make(map[string]int64, len(c.byCategory))
	for k, v := range c.byCategory {
		snapshot[k] = v
	}
	return snapshot
}
