package domain

import "time"

// Stage names used in logs, reports and metrics.
const (
	StageIngest    = "ingest"
	StageSummarize = "summarize"
	StageUnify     = "unify"
	StageClassify  = "classify"
)

// Outcome enumerates what happened to a single item in a stage.
type Outcome string

const (
	OutcomeStored      Outcome = "stored"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeUnparsed    Outcome = "unparsed"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
)

// StageReport summarises one sweep of a stage.
type StageReport struct {
	Stage      string
	Seen       int
	Outcomes   map[Outcome]int
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewStageReport starts a report for the named stage.
func NewStageReport(stage string, now time.Time) StageReport {
	return StageReport{Stage: stage, Outcomes: map[Outcome]int{}, StartedAt: now}
}

// Add records one item outcome.
func (r *StageReport) Add(outcome Outcome) {
	if r.Outcomes == nil {
		r.Outcomes = map[Outcome]int{}
	}
	r.Seen++
	r.Outcomes[outcome]++
}

// Count returns how many items ended with the outcome.
func (r StageReport) Count(outcome Outcome) int {
	return r.Outcomes[outcome]
}

// AddN records n items that share an outcome.
func (r *StageReport) AddN(outcome Outcome, n int) {
	if n <= 0 {
		return
	}
	if r.Outcomes == nil {
		r.Outcomes = map[Outcome]int{}
	}
	r.Seen += n
	r.Outcomes[outcome] += n
}
