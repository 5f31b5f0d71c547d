package rule

import (
	"errors"
	"fmt"

	"importguard/internal/report"
	"importguard/internal/source"
	"importguard/internal/syntax"
)

// ErrOverlap is returned when a module is declared both domain and IO.
var ErrOverlap = errors.New("module is both domain and io")

// Boundary is one dependency-direction rule: no module in Domain may
// import a module in IO.
type Boundary struct {
	Name      string
	Rationale string
	Domain    []source.Module
	IO        []source.Module

	// MatchSubmodules extends matching to submodules of an IO module, so
	// api.file.csv also matches api.file. Off by default: matching is exact.
	MatchSubmodules bool
}

// Validate checks module names and that the two sets are disjoint.
func (b *Boundary) Validate() error {
	if len(b.Domain) == 0 {
		return fmt.Errorf("boundary %q: no domain modules", b.Name)
	}
	if len(b.IO) == 0 {
		return fmt.Errorf("boundary %q: no io modules", b.Name)
	}

	domain := make(map[source.Module]bool, len(b.Domain))
	for _, m := range b.Domain {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("boundary %q: domain: %w", b.Name, err)
		}
		domain[m] = true
	}
	for _, m := range b.IO {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("boundary %q: io: %w", b.Name, err)
		}
		if domain[m] {
			return fmt.Errorf("boundary %q: %w: %s", b.Name, ErrOverlap, m)
		}
	}
	return nil
}

// rationale returns the boundary's rationale or the default one.
func (b *Boundary) rationale() string {
	if b.Rationale != "" {
		return b.Rationale
	}
	return report.Rationale
}

// Case is one (domain, io, kind) check of a boundary.
type Case struct {
	Boundary *Boundary
	Domain   source.Module
	IO       source.Module
	Kind     syntax.Kind
}

// Name identifies the case, e.g. "domain-io/api.core/api.file/import".
func (c Case) Name() string {
	return fmt.Sprintf("%s/%s/%s/%s", c.Boundary.Name, c.Domain, c.IO, c.Kind)
}

// Cases returns the full cross product domain x io x kind in declaration order.
func (b *Boundary) Cases() []Case {
	cases := make([]Case, 0, len(b.Domain)*len(b.IO)*len(syntax.Kinds))
	for _, d := range b.Domain {
		for _, io := range b.IO {
			for _, k := range syntax.Kinds {
				cases = append(cases, Case{Boundary: b, Domain: d, IO: io, Kind: k})
			}
		}
	}
	return cases
}
