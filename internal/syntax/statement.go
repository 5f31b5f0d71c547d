package syntax

import (
	"fmt"
	"strings"
)

// Kind selects a category of import statement.
type Kind int

const (
	// KindImport is a plain `import a.b[ as c][, d]` statement.
	KindImport Kind = iota + 1
	// KindImportFrom is a `from a.b import c[, d]` statement.
	KindImportFrom
)

// Kinds lists every statement category in evaluation order.
var Kinds = []Kind{KindImport, KindImportFrom}

func (k Kind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindImportFrom:
		return "import-from"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a category name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "import":
		return KindImport, nil
	case "import-from", "import_from", "from":
		return KindImportFrom, nil
	}
	return 0, fmt.Errorf("unknown statement kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Position is a 1-indexed location in a source file.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Alias is one imported name with its optional local binding.
type Alias struct {
	Name   string
	AsName string
}

// Statement is a top-level import statement.
type Statement interface {
	Kind() Kind
	Pos() Position
}

// Import is `import X[ as x][, Y...]`.
type Import struct {
	Names    []Alias
	Position Position
}

func (s *Import) Kind() Kind    { return KindImport }
func (s *Import) Pos() Position { return s.Position }

// ImportFrom is `from X import a, b`. Module carries the dotted source name
// without leading dots; Level counts the dots of a relative import.
type ImportFrom struct {
	Module   string
	Level    int
	Names    []Alias
	Position Position
}

func (s *ImportFrom) Kind() Kind    { return KindImportFrom }
func (s *ImportFrom) Pos() Position { return s.Position }

// Relative reports whether the statement is a relative import.
func (s *ImportFrom) Relative() bool {
	return s.Level > 0
}
