package report

import (
	"time"

	"importguard/internal/source"
	"importguard/internal/syntax"

	"github.com/google/uuid"
)

// CaseResult is the outcome of one (domain, io, kind) check.
type CaseResult struct {
	Boundary  string        `json:"boundary"`
	Domain    source.Module `json:"domain"`
	IO        source.Module `json:"io"`
	Kind      syntax.Kind   `json:"kind"`
	Violation *Violation    `json:"violation,omitempty"`
}

// Passed reports whether the case found no forbidden import.
func (r CaseResult) Passed() bool {
	return r.Violation == nil
}

// Summary aggregates the results of one run over the cross product.
type Summary struct {
	RunID    string        `json:"run_id"`
	Root     string        `json:"root"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	Results  []CaseResult  `json:"results"`
}

// NewSummary stamps results with a fresh run ID.
func NewSummary(root string, started time.Time, results []CaseResult) *Summary {
	return &Summary{
		RunID:    uuid.NewString(),
		Root:     root,
		Started:  started,
		Duration: time.Since(started),
		Results:  results,
	}
}

// Violations returns the violations in case order.
func (s *Summary) Violations() []*Violation {
	var out []*Violation
	for _, r := range s.Results {
		if r.Violation != nil {
			out = append(out, r.Violation)
		}
	}
	return out
}

// Failed returns the number of cases with a violation.
func (s *Summary) Failed() int {
	return len(s.Violations())
}

// Passed returns the number of clean cases.
func (s *Summary) Passed() int {
	return len(s.Results) - s.Failed()
}

// OK reports whether every case passed.
func (s *Summary) OK() bool {
	return s.Failed() == 0
}
