package models

import (
	"net/url"
	"time"
)

// Target is one unit of crawl work: an absolute URL together with the depth
// at which it was discovered, the host of the root it descends from, and the
// destination path it will be written to. Targets are immutable after
// creation; depth and anchor host are fixed at enqueue time.
type Target struct {
	URL        *url.URL
	Depth      int    // 0 for user-supplied roots
	AnchorHost string // host of the root URL this target's lineage started at
	Dest       string // resolved destination file path
}

// PlanKind identifies how the destination file should be opened.
type PlanKind int

const (
	// PlanFresh truncates (or creates) the destination and writes from byte 0.
	PlanFresh PlanKind = iota
	// PlanResume appends to an existing partial file starting at Offset.
	PlanResume
)

func (k PlanKind) String() string {
	switch k {
	case PlanFresh:
		return "fresh"
	case PlanResume:
		return "resume"
	default:
		return "unknown"
	}
}

// FetchPlan is the resume negotiator's decision for a single target.
// Offset is non-zero only for PlanResume.
type FetchPlan struct {
	Kind   PlanKind
	Offset int64
}

// FreshPlan returns a plan that writes the destination from scratch.
func FreshPlan() FetchPlan { return FetchPlan{Kind: PlanFresh} }

// ResumePlan returns a plan that appends starting at offset.
func ResumePlan(offset int64) FetchPlan {
	return FetchPlan{Kind: PlanResume, Offset: offset}
}

// FetchResult is the outcome of resolving one target through the redirect
// chain. It is produced by the resolver and consumed by the scheduler (to
// decide on recursion) and the reporter.
type FetchResult struct {
	FinalURL    *url.URL // URL after all followed redirects
	StatusCode  int
	ContentType string
	Redirects   int  // redirect hops followed
	Resumed     bool // server honored the range request with a 206
	// ResumeDegraded is set when a resume was requested but the server
	// answered with a full 200, forcing a fresh write. Warning, not failure.
	ResumeDegraded bool
}

// Outcome is the terminal per-target event handed to the reporter. Category
// is "None" for completed targets and an error category otherwise.
type Outcome struct {
	URL      string
	Dest     string
	Bytes    int64
	Depth    int
	Category string
	Err      error
}

// Failed reports whether the target settled in a failure state.
func (o Outcome) Failed() bool { return o.Err != nil }

// CrawlSummary aggregates the whole run for exit-code mapping and the final
// report.
type CrawlSummary struct {
	RunID      string
	Completed  int64
	Failed     int64
	Skipped    int64 // duplicates discarded at admission
	Bytes      int64
	Duration   time.Duration
	ByCategory map[string]int64 // failure category -> count
}

// AnyFailed is the signal consumed by the exit-code mapping layer.
func (s CrawlSummary) AnyFailed() bool { return s.Failed > 0 }
