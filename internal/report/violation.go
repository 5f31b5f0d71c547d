// Package report builds the diagnostics for forbidden domain-to-IO imports
// and signals them to a test harness or renders them for the CLI.
package report

import (
	"fmt"
	"strings"

	"importguard/internal/source"
	"importguard/internal/syntax"
)

// Rationale explains why domain modules must not import IO modules.
const Rationale = `Files containing pure domain code should not contain dependencies on IO modules.

Data processing is kept separate from the handling of that data by external
entities (files, databases, the internet...). This helps with modularity and
with unit testing.

The IO modules should be the ones offering what the domain requires in terms
of data.`

// Violation records one forbidden import of an IO module by a domain module.
type Violation struct {
	Boundary string        `json:"boundary,omitempty"`
	Domain   source.Module `json:"domain"`
	IO       source.Module `json:"io"`
	Kind     syntax.Kind   `json:"kind"`
	Line     int           `json:"line"`
	Message  string        `json:"message"`
}

// NewViolation builds a violation and its message. An empty rationale
// falls back to Rationale.
func NewViolation(io, domain source.Module, kind syntax.Kind, line int, rationale string) *Violation {
	return &Violation{
		Domain:  domain,
		IO:      io,
		Kind:    kind,
		Line:    line,
		Message: Message(io, domain, rationale),
	}
}

// Message renders the diagnostic for domain importing io.
func Message(io, domain source.Module, rationale string) string {
	if strings.TrimSpace(rationale) == "" {
		rationale = Rationale
	}
	return fmt.Sprintf("Found domain code `%s` (%s) importing IO module `%s`!\n\n%s",
		domain, domain.Path(), io, indent(rationale, "    "))
}

func (v *Violation) Error() string {
	return v.Message
}

// Location returns "path:line" for the offending statement.
func (v *Violation) Location() string {
	return fmt.Sprintf("%s:%d", v.Domain.Path(), v.Line)
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// Failer is the subset of testing.TB used to signal results.
type Failer interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Fail marks the test failed with the violation's message.
func Fail(f Failer, v *Violation) {
	f.Helper()
	f.Errorf("%s", v.Message)
}

// FailFixture aborts the test for a check that could not run at all: a
// missing or unparsable module or a bad boundary definition.
func FailFixture(f Failer, err error) {
	f.Helper()
	f.Fatalf("fixture error: %v", err)
}
