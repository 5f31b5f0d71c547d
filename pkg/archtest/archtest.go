// Package archtest runs domain/IO import boundaries as Go tests.
//
// A project keeps its boundary next to its other tests:
//
//	func TestDomainCodeDoesNotImportIO(t *testing.T) {
//		archtest.Run(t, &archtest.Boundary{
//			Name:   "domain-io",
//			Domain: []archtest.Module{"api.core", "api.predicates", "api.query"},
//			IO:     []archtest.Module{"api.file", "api.main"},
//		}, archtest.WithRoot("../.."))
//	}
//
// Every (domain, io, kind) combination becomes its own parallel subtest.
// A forbidden import fails the subtest with the boundary's rationale; a
// missing or unparsable module aborts it as a fixture error.
package archtest

import (
	"context"
	"testing"

	"importguard/internal/report"
	"importguard/internal/rule"
	"importguard/internal/source"
)

// Boundary is a domain/IO separation rule.
type Boundary = rule.Boundary

// Module is a dotted module name such as "api.core".
type Module = source.Module

// Failer receives results; testing.TB satisfies it.
type Failer = report.Failer

type options struct {
	root   string
	levels int
}

// Option configures where modules are resolved.
type Option func(*options)

// WithRoot sets the repository root. Defaults to the working directory,
// which `go test` sets to the package directory.
func WithRoot(dir string) Option {
	return func(o *options) { o.root = dir }
}

// WithRootLevels ascends n directories from the root before resolving modules.
func WithRootLevels(n int) Option {
	return func(o *options) { o.levels = n }
}

func locator(opts []Option) (*source.Locator, error) {
	o := options{root: "."}
	for _, opt := range opts {
		opt(&o)
	}
	root, err := source.ResolveRoot(o.root, o.levels)
	if err != nil {
		return nil, err
	}
	return source.NewLocator(root)
}

// Run checks b as one parallel subtest per case.
func Run(t *testing.T, b *Boundary, opts ...Option) {
	t.Helper()

	loc, err := locator(opts)
	if err != nil {
		report.FailFixture(t, err)
		return
	}
	if err := b.Validate(); err != nil {
		report.FailFixture(t, err)
		return
	}

	for _, c := range b.Cases() {
		t.Run(c.Domain.String()+"/"+c.IO.String()+"/"+c.Kind.String(), func(t *testing.T) {
			t.Parallel()
			check(context.Background(), t, loc, c)
		})
	}
}

// Verify checks every case of b sequentially, reporting to f. Unlike Run it
// needs no *testing.T, so it also serves custom harnesses.
func Verify(f Failer, b *Boundary, opts ...Option) {
	f.Helper()

	loc, err := locator(opts)
	if err != nil {
		report.FailFixture(f, err)
		return
	}
	if err := b.Validate(); err != nil {
		report.FailFixture(f, err)
		return
	}
	for _, c := range b.Cases() {
		check(context.Background(), f, loc, c)
	}
}

func check(ctx context.Context, f report.Failer, loc *source.Locator, c rule.Case) {
	f.Helper()
	v, err := rule.Evaluate(ctx, loc, c)
	if err != nil {
		report.FailFixture(f, err)
		return
	}
	if v != nil {
		report.Fail(f, v)
	}
}
