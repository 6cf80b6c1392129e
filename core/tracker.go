package core

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Stage names the pipeline step an error came from.
type Stage string

// Pipeline stages used in error reporting.
const (
	StageFetch    Stage = "fetch"
	StageParse    Stage = "parse"
	StageConvert  Stage = "convert"
	StageClassify Stage = "classify"
	StagePDF      Stage = "pdf"
	StageResolve  Stage = "resolve"
	StageConfig   Stage = "config"
	StageSource   Stage = "source"
)

// StageError attaches the stage and URL to a per-item failure.
type StageError struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Fail wraps err with its stage and URL.
func Fail(stage Stage, url string, err error) error {
	return &StageError{Stage: stage, URL: url, Err: err}
}

// SourceSummary is the outcome of one source in a run.
type SourceSummary struct {
	Name   string `json:"name"`
	Items  int    `json:"items"`
	Errors int    `json:"errors"`
	Halted bool   `json:"halted"`
}

// Summary is the outcome of a whole run.
type Summary struct {
	Items   int             `json:"items"`
	Errors  int             `json:"errors"`
	ByStage map[Stage]int   `json:"by_stage"`
	Sources []SourceSummary `json:"sources"`
	// Dropped counts items the collector rejected (no source URL).
	Dropped int `json:"dropped"`
}

// Tracker counts item outcomes and enforces the per-source error budget.
// A run is single-threaded, so Tracker is not safe for concurrent use.
type Tracker struct {
	log             zerolog.Logger
	maxConsecutive  int
	continueOnError bool

	consecutive int
	current     int // index into summary.Sources, -1 when no source is open
	summary     Summary
}

// NewTracker creates a Tracker. maxConsecutive <= 0 disables the budget.
func NewTracker(log zerolog.Logger, maxConsecutive int, continueOnError bool) *Tracker {
	return &Tracker{
		log:             log,
		maxConsecutive:  maxConsecutive,
		continueOnError: continueOnError,
		current:         -1,
		summary:         Summary{ByStage: make(map[Stage]int)},
	}
}

// BeginSource opens a new source and resets the consecutive-failure count.
func (t *Tracker) BeginSource(name string) {
	t.consecutive = 0
	t.summary.Sources = append(t.summary.Sources, SourceSummary{Name: name})
	t.current = len(t.summary.Sources) - 1
}

// Succeeded records one successfully built item.
func (t *Tracker) Succeeded() {
	t.consecutive = 0
	t.summary.Items++
	if t.current >= 0 {
		t.summary.Sources[t.current].Items++
	}
}

// Failed logs and records a failure. Errors that are not StageErrors are
// counted under StageSource.
func (t *Tracker) Failed(err error) {
	if err == nil {
		return
	}
	stage, url := StageSource, ""
	var se *StageError
	if errors.As(err, &se) {
		stage, url = se.Stage, se.URL
	}

	t.consecutive++
	t.summary.Errors++
	t.summary.ByStage[stage]++
	if t.current >= 0 {
		t.summary.Sources[t.current].Errors++
	}

	t.log.Error().Err(err).Str("stage", string(stage)).Str("url", url).Msg("item failed")

	if t.Exhausted() && t.current >= 0 && !t.summary.Sources[t.current].Halted {
		t.summary.Sources[t.current].Halted = true
		t.log.Warn().
			Str("source", t.summary.Sources[t.current].Name).
			Int("consecutive_failures", t.consecutive).
			Msg("error budget exhausted, halting source")
	}
}

// Exhausted reports whether the current source should stop processing.
func (t *Tracker) Exhausted() bool {
	if t.consecutive == 0 {
		return false
	}
	if !t.continueOnError {
		return true
	}
	return t.maxConsecutive > 0 && t.consecutive >= t.maxConsecutive
}

// Errors returns the number of failures recorded so far.
func (t *Tracker) Errors() int { return t.summary.Errors }

// Summary returns a copy of the run summary.
func (t *Tracker) Summary() Summary {
	out := t.summary
	out.ByStage = make(map[Stage]int, len(t.summary.ByStage))
	for k, v := range t.summary.ByStage {
		out.ByStage[k] = v
	}
	out.Sources = append([]SourceSummary(nil), t.summary.Sources...)
	return out
}
