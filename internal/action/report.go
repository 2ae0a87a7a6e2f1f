package action

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is the final disposition of one entry within a report.
type Outcome int

const (
	// OutcomeNone marks entries the run never reached (interrupted batch).
	OutcomeNone Outcome = iota
	// OutcomeDone: the action completed for this entry.
	OutcomeDone
	// OutcomeFailed: the action or its validation failed; the entry may be
	// retried by re-running the selection.
	OutcomeFailed
	// OutcomeSkipped: the entry was missing on disk and never attempted.
	OutcomeSkipped
	// OutcomeWouldSucceed: dry-run validation passed; nothing was touched.
	OutcomeWouldSucceed
	// OutcomeAlreadyDone: a previous run completed this entry.
	OutcomeAlreadyDone
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeWouldSucceed:
		return "would-succeed"
	case OutcomeAlreadyDone:
		return "already-done"
	default:
		return "unprocessed"
	}
}

// EntryResult records one entry's disposition, in selection order.
type EntryResult struct {
	ReferenceID int64
	GroupID     string
	Path        string
	Outcome     Outcome
	Err         string // error kind, empty unless Outcome is failed
	Bytes       int64  // bytes deleted or moved for this entry
}

// Report is the audited summary of one Apply run. The presentation layer
// renders it; the engine never prints.
type Report struct {
	ID         string
	Action     string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	// Interrupted is set when the batch stopped before reaching every entry.
	Interrupted bool

	Results []EntryResult

	Done         int
	Failed       int
	Skipped      int
	WouldSucceed int
	AlreadyDone  int
	Bytes        int64
}

func newReport(action string, dryRun bool) *Report {
	return &Report{
		ID:        uuid.New().String(),
		Action:    action,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
}

// add tallies a result into the aggregate counters.
func (r *Report) add(res EntryResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeDone:
		r.Done++
		r.Bytes += res.Bytes
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeWouldSucceed:
		r.WouldSucceed++
		r.Bytes += res.Bytes
	case OutcomeAlreadyDone:
		r.AlreadyDone++
	}
}

// FormatBytes renders a byte count the way the operator expects to read it.
func FormatBytes(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(gb))
	case n >= mb:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
