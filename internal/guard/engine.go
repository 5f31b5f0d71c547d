// Package guard drives the conformance check over the full cross product of
// every configured boundary and re-runs it when sources change.
package guard

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"importguard/internal/logging"
	"importguard/internal/report"
	"importguard/internal/rule"
	"importguard/internal/source"

	"golang.org/x/sync/errgroup"
)

// Engine evaluates every case of a set of boundaries against one root.
type Engine struct {
	loc        *source.Locator
	boundaries []*rule.Boundary
	workers    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers limits concurrent case evaluations. n <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates an Engine. Boundaries must already be validated.
func NewEngine(loc *source.Locator, boundaries []*rule.Boundary, opts ...Option) *Engine {
	e := &Engine{
		loc:        loc,
		boundaries: boundaries,
		workers:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Locator returns the engine's source locator.
func (e *Engine) Locator() *source.Locator {
	return e.loc
}

// Cases returns the cases of all boundaries in declaration order.
func (e *Engine) Cases() []rule.Case {
	var cases []rule.Case
	for _, b := range e.boundaries {
		cases = append(cases, b.Cases()...)
	}
	return cases
}

// Watches reports whether m is a domain module of any boundary.
func (e *Engine) Watches(m source.Module) bool {
	for _, b := range e.boundaries {
		for _, d := range b.Domain {
			if d == m {
				return true
			}
		}
	}
	return false
}

// Run evaluates every case concurrently. Results keep case order regardless
// of completion order. The first fixture error cancels the run and is
// returned; violations never produce an error.
func (e *Engine) Run(ctx context.Context) (*report.Summary, error) {
	started := time.Now()
	cases := e.Cases()
	results := make([]report.CaseResult, len(cases))

	logging.Guard("running %d cases with %d workers under %s", len(cases), e.workers, e.loc.Root())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := rule.Evaluate(gctx, e.loc, c)
			if err != nil {
				return fmt.Errorf("case %s: %w", c.Name(), err)
			}
			results[i] = report.CaseResult{
				Boundary:  c.Boundary.Name,
				Domain:    c.Domain,
				IO:        c.IO,
				Kind:      c.Kind,
				Violation: v,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.Get(logging.CategoryGuard).Error("run aborted: %v", err)
		return nil, err
	}

	summary := report.NewSummary(e.loc.Root(), started, results)
	logging.Guard("run %s: %d passed, %d failed in %v",
		summary.RunID, summary.Passed(), summary.Failed(), summary.Duration)
	return summary, nil
}
