// Package rule decides whether a domain module imports a forbidden IO
// module. The decision is a pure function over extracted import statements;
// Evaluate wires it to the source locator and the parser for one case.
package rule

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"importguard/internal/logging"
	"importguard/internal/report"
	"importguard/internal/source"
	"importguard/internal/syntax"
)

// Finding is the statement that triggered a match and the name it matched on.
type Finding struct {
	Statement syntax.Statement
	Name      string
}

// Matches reports whether an imported dotted name refers to io.
// Matching is exact unless submodules is set, in which case io's
// submodules match as well.
func Matches(name string, io source.Module, submodules bool) bool {
	if name == string(io) {
		return true
	}
	return submodules && strings.HasPrefix(name, string(io)+".")
}

// Check returns the first statement in stmts that imports io.
//
// A plain import matches when any of its imported names is io; the alias is
// ignored. An import-from matches when its source module is io, whatever
// names it imports. Relative import-froms never match.
func Check(stmts iter.Seq[syntax.Statement], io source.Module, submodules bool) (Finding, bool) {
	for stmt := range stmts {
		switch s := stmt.(type) {
		case *syntax.Import:
			for _, alias := range s.Names {
				if Matches(alias.Name, io, submodules) {
					return Finding{Statement: s, Name: alias.Name}, true
				}
			}
		case *syntax.ImportFrom:
			if s.Relative() {
				continue
			}
			if Matches(s.Module, io, submodules) {
				return Finding{Statement: s, Name: s.Module}, true
			}
		}
	}
	return Finding{}, false
}

// Evaluate runs one case: read the domain module, parse it, and check the
// statements of the case's kind against its IO module.
//
// A nil violation with a nil error means the case passed. Errors are
// fixture errors (unreadable or unparsable module) and are never turned
// into violations.
func Evaluate(ctx context.Context, loc *source.Locator, c Case) (*report.Violation, error) {
	src, err := loc.Read(c.Domain)
	if err != nil {
		return nil, err
	}

	file, err := syntax.Parse(ctx, filepath.Base(c.Domain.Path()), src)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", c.Domain, err)
	}

	finding, found := Check(file.Statements(c.Kind), c.IO, c.Boundary.MatchSubmodules)
	if !found {
		logging.RuleDebug("pass %s", c.Name())
		return nil, nil
	}

	line := finding.Statement.Pos().Line
	logging.Rule("violation %s: %s imports %s at line %d", c.Name(), c.Domain, finding.Name, line)

	v := report.NewViolation(c.IO, c.Domain, c.Kind, line, c.Boundary.rationale())
	v.Boundary = c.Boundary.Name
	return v, nil
}
