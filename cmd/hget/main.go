package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/config"
	"github.com/Hkmori15/hget/pkg/crawler"
	"github.com/Hkmori15/hget/pkg/fetch"
	"github.com/Hkmori15/hget/pkg/models"
	"github.com/Hkmori15/hget/pkg/output"
	"github.com/Hkmori15/hget/pkg/utils"
)

const version = "1.0.0"

// cliFlags collects parsed flag values before they are merged into the
// CrawlConfig (an explicitly set flag wins over the YAML defaults file).
type cliFlags struct {
	output        string
	verbose       bool
	maxRedirects  int
	noFollow      bool
	resume        bool
	force         bool
	recursive     bool
	maxDepth      int
	maxConcurrent int
	sameDomain    bool
	robots        bool
	wait          time.Duration
	baseDir       string
	configFile    string
	logLevel      string
	showVersion   bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("hget", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var cf cliFlags
	fs.StringVar(&cf.output, "o", "", "Output file name (single-file mode; defaults to the last URL path segment)")
	fs.StringVar(&cf.output, "output", "", "Alias for -o")
	fs.BoolVar(&cf.verbose, "v", false, "Verbose output (debug-level logging)")
	fs.BoolVar(&cf.verbose, "verbose", false, "Alias for -v")
	fs.IntVar(&cf.maxRedirects, "r", 10, "Maximum redirects to follow per URL")
	fs.IntVar(&cf.maxRedirects, "max-redirects", 10, "Alias for -r")
	fs.BoolVar(&cf.noFollow, "no-follow", false, "Disable following redirects")
	fs.BoolVar(&cf.resume, "c", false, "Continue (resume) partially downloaded files")
	fs.BoolVar(&cf.resume, "continue", false, "Alias for -c")
	fs.BoolVar(&cf.force, "f", false, "Force overwrite of existing files")
	fs.BoolVar(&cf.force, "force", false, "Alias for -f")
	fs.BoolVar(&cf.recursive, "R", false, "Download recursively")
	fs.BoolVar(&cf.recursive, "recursive", false, "Alias for -R")
	fs.IntVar(&cf.maxDepth, "l", 5, "Maximum recursion depth")
	fs.IntVar(&cf.maxDepth, "max-depth", 5, "Alias for -l")
	fs.IntVar(&cf.maxConcurrent, "j", 5, "Maximum concurrent downloads")
	fs.IntVar(&cf.maxConcurrent, "max-concurrent", 5, "Alias for -j")
	fs.BoolVar(&cf.sameDomain, "d", false, "Restrict recursion to the root URL's host")
	fs.BoolVar(&cf.sameDomain, "same-domain", false, "Alias for -d")
	fs.BoolVar(&cf.robots, "robots", false, "Honor robots.txt during recursive downloads")
	fs.DurationVar(&cf.wait, "w", 0, "Minimum delay between requests to the same host (e.g. 500ms)")
	fs.DurationVar(&cf.wait, "wait", 0, "Alias for -w")
	fs.StringVar(&cf.baseDir, "P", ".", "Base directory for recursive downloads")
	fs.StringVar(&cf.baseDir, "base-dir", ".", "Alias for -P")
	fs.StringVar(&cf.configFile, "config", "", "YAML defaults file (explicit flags still win)")
	fs.StringVar(&cf.logLevel, "loglevel", "", "Log level (debug, info, warn, error); default warn, info with -v")
	fs.BoolVar(&cf.showVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "hget - recursive resource fetcher\n\nUsage:\n  hget [options] URL...\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if cf.showVersion {
		fmt.Fprintf(stderr, "hget %s\n", version)
		return 0
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: at least one URL is required")
		fs.Usage()
		return 1
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(resolveLogLevel(cf))

	cfg, err := buildConfig(fs, cf)
	if err != nil {
		log.Errorf("Configuration error: %v", err)
		return 1
	}
	warnings, err := cfg.Validate()
	if err != nil {
		log.Errorf("Configuration error: %v", err)
		return 1
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	roots, err := buildRoots(fs.Args(), cf, cfg)
	if err != nil {
		log.Errorf("Invalid URL: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient(cfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(client, cfg.UserAgent, log)
	resolver := fetch.NewResolver(fetcher, log)
	writer := output.NewWriter(log)

	var robots *fetch.RobotsPolicy
	if cfg.RespectRobots {
		robots = fetch.NewRobotsPolicy(fetcher, cfg.UserAgent, logrus.NewEntry(log))
	}

	reporter := newProgressReporter(log, !cf.verbose)
	reporter.Start()

	c := crawler.New(ctx, cfg, cf.baseDir, resolver, writer, robots, reporter, logrus.NewEntry(log))
	summary := c.Run(roots)

	reporter.Stop()
	printSummary(stderr, summary)

	if ctx.Err() != nil {
		log.Warnf("Crawl interrupted: %v", ctx.Err())
	}
	if summary.AnyFailed() {
		return 1
	}
	return 0
}

// resolveLogLevel maps the -loglevel / -v flags onto a logrus level.
func resolveLogLevel(cf cliFlags) logrus.Level {
	if cf.logLevel != "" {
		if lvl, err := logrus.ParseLevel(cf.logLevel); err == nil {
			return lvl
		}
	}
	if cf.verbose {
		return logrus.DebugLevel
	}
	return logrus.WarnLevel
}

// buildConfig merges built-in defaults, the optional YAML defaults file, and
// explicitly set command-line flags, in that order.
func buildConfig(fs *flag.FlagSet, cf cliFlags) (*config.CrawlConfig, error) {
	cfg := config.Default()
	if cf.configFile != "" {
		loaded, err := config.LoadDefaults(cf.configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	// Flags the user typed override the defaults file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "r", "max-redirects":
			cfg.MaxRedirects = cf.maxRedirects
		case "no-follow":
			cfg.FollowRedirects = false
		case "c", "continue":
			cfg.Resume = cf.resume
		case "f", "force":
			cfg.Force = cf.force
		case "R", "recursive":
			cfg.Recursive = cf.recursive
		case "l", "max-depth":
			cfg.MaxDepth = cf.maxDepth
		case "j", "max-concurrent":
			cfg.MaxConcurrent = cf.maxConcurrent
		case "d", "same-domain":
			cfg.SameDomain = cf.sameDomain
		case "robots":
			cfg.RespectRobots = cf.robots
		case "w", "wait":
			cfg.DelayPerHost = config.DurationFrom(cf.wait)
		}
	})

	return &cfg, nil
}

// buildRoots validates the positional URLs and turns them into depth-0
// targets. Root-level validation failures are crawl-fatal: they abort before
// any worker starts.
func buildRoots(rawURLs []string, cf cliFlags, cfg *config.CrawlConfig) ([]*models.Target, error) {
	if cf.output != "" && (len(rawURLs) > 1 || cfg.Recursive) {
		return nil, errors.New("-o is only valid with a single, non-recursive URL")
	}

	roots := make([]*models.Target, 0, len(rawURLs))
	for _, raw := range rawURLs {
		u, err := url.ParseRequestURI(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing '%s': %w", raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("unsupported scheme '%s' in '%s'", u.Scheme, raw)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("missing host in '%s'", raw)
		}

		dest := utils.SingleDestination(u, cf.output)
		if cfg.Recursive {
			dest = utils.DestinationPath(u, cf.baseDir)
		}
		roots = append(roots, &models.Target{
			URL:        u,
			Depth:      0,
			AnchorHost: u.Host,
			Dest:       dest,
		})
	}
	return roots, nil
}

// progressReporter is the logging/progress collaborator: it receives one
// terminal event per target and keeps a spinner updated when the run is not
// verbose.
type progressReporter struct {
	log       *logrus.Logger
	spin      *spinner.Spinner
	completed atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64
}

func newProgressReporter(log *logrus.Logger, showSpinner bool) *progressReporter {
	r := &progressReporter{log: log}
	if showSpinner {
		r.spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		r.spin.Suffix = " downloading..."
	}
	return r
}

func (r *progressReporter) Start() {
	if r.spin != nil {
		r.spin.Start()
	}
}

func (r *progressReporter) Stop() {
	if r.spin != nil {
		r.spin.Stop()
	}
}

// TargetFinished implements crawler.Reporter.
func (r *progressReporter) TargetFinished(o models.Outcome) {
	if o.Failed() {
		r.failed.Add(1)
		r.log.WithFields(logrus.Fields{"url": o.URL, "category": o.Category}).Warnf("Failed: %v", o.Err)
	} else {
		r.completed.Add(1)
		r.bytes.Add(o.Bytes)
		r.log.WithFields(logrus.Fields{"url": o.URL, "dest": o.Dest, "bytes": o.Bytes}).Info("Downloaded")
	}
	if r.spin != nil {
		r.spin.Suffix = fmt.Sprintf(" %d file(s), %d failed, %s",
			r.completed.Load(), r.failed.Load(), formatBytes(r.bytes.Load()))
	}
}

func printSummary(w io.Writer, s models.CrawlSummary) {
	fmt.Fprintf(w, "Done: %d file(s) downloaded (%s), %d failed, %d duplicate(s) skipped in %s\n",
		s.Completed, formatBytes(s.Bytes), s.Failed, s.Skipped, s.Duration.Round(time.Millisecond))
	for category, count := range s.ByCategory {
		fmt.Fprintf(w, "  %s: %d\n", category, count)
	}
}

// formatBytes renders a byte count in a human-friendly unit.
func formatBytes(n int64) string {
	const unit = 1024
	const units = "KMGTPE"
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < len(units)-1; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), units[exp])
}
