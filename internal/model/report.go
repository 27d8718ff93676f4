package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// OutcomeStatus says what a session did with one symbol.
type OutcomeStatus string

const (
	StatusUpdated     OutcomeStatus = "UPDATED"     // merged a row with a valid trade price
	StatusPlaceholder OutcomeStatus = "PLACEHOLDER" // merged a row without a trade price
	StatusUnresolved  OutcomeStatus = "UNRESOLVED"  // no datable quote before the deadline
	StatusFailed      OutcomeStatus = "FAILED"      // the store write failed
)

// SymbolOutcome is the per-symbol line of a RunReport.
type SymbolOutcome struct {
	Code   string
	Status OutcomeStatus
	Date   string
	Close  Value
	Batch  int
	Note   string
}

// RunReport summarizes one session run.
type RunReport struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Symbols       int
	Batches       int
	Ticks         int
	StoreWarnings int
	Outcomes      []SymbolOutcome
}

// Count returns how many symbols ended with status.
func (r *RunReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Codes lists the symbols that ended with status, in run order.
func (r *RunReport) Codes(status OutcomeStatus) []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o.Code)
		}
	}
	return out
}

// NullFloat exposes v for database drivers; Missing becomes NULL.
func (v Value) NullFloat() null.Float { return v.f }
