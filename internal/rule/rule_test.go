package rule

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"importguard/internal/report"
	"importguard/internal/source"
	"importguard/internal/syntax"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultBoundary() *Boundary {
	return &Boundary{
		Name:   "domain-io",
		Domain: []source.Module{"api.core", "api.predicates", "api.query"},
		IO:     []source.Module{"api.file", "api.main"},
	}
}

// writeTree creates files under a temp dir and returns a locator rooted there.
func writeTree(t *testing.T, files map[string]string) *source.Locator {
	t.Helper()
	tmpDir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	loc, err := source.NewLocator(tmpDir)
	require.NoError(t, err)
	return loc
}

func evaluate(t *testing.T, content string, io source.Module, kind syntax.Kind, b *Boundary) (*report.Violation, error) {
	t.Helper()
	loc := writeTree(t, map[string]string{"api/core.py": content})
	return Evaluate(context.Background(), loc, Case{Boundary: b, Domain: "api.core", IO: io, Kind: kind})
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		io       source.Module
		kind     syntax.Kind
		violates bool
	}{
		{"from io module", "from api.file import read_csv\n", "api.file", syntax.KindImportFrom, true},
		{"from other module", "from api.predicates import is_valid\n", "api.file", syntax.KindImportFrom, false},
		{"wildcard from io module", "from api.file import *\n", "api.file", syntax.KindImportFrom, true},
		{"plain import", "import api.file\n", "api.file", syntax.KindImport, true},
		{"aliased import", "import api.file as f\n", "api.file", syntax.KindImport, true},
		{"one of several names", "import os, api.main, sys\n", "api.main", syntax.KindImport, true},
		{"plain import checked as import-from", "import api.file\n", "api.file", syntax.KindImportFrom, false},
		{"import-from checked as plain import", "from api.file import read_csv\n", "api.file", syntax.KindImport, false},
		{"nested in function", "def f():\n    import api.file\n", "api.file", syntax.KindImport, false},
		{"nested in class", "class C:\n    from api.file import read_csv\n", "api.file", syntax.KindImportFrom, false},
		{"submodule is not the module", "import api.file.helpers\n", "api.file", syntax.KindImport, false},
		{"submodule import-from", "from api.file.helpers import x\n", "api.file", syntax.KindImportFrom, false},
		{"prefix of name", "import api.filesystem\n", "api.file", syntax.KindImport, false},
		{"parent package", "import api\n", "api.file", syntax.KindImport, false},
		{"relative import", "from .file import read_csv\n", "api.file", syntax.KindImportFrom, false},
		{"relative import spelling the io name", "from .api.file import read_csv\n", "api.file", syntax.KindImportFrom, false},
		{"from package import module", "from api import file\n", "api.file", syntax.KindImportFrom, false},
		{"empty module", "", "api.file", syntax.KindImport, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := evaluate(t, tt.content, tt.io, tt.kind, defaultBoundary())
			require.NoError(t, err)
			if !tt.violates {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, tt.io, v.IO)
			assert.Equal(t, source.Module("api.core"), v.Domain)
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, "domain-io", v.Boundary)
			assert.Contains(t, v.Message, string(tt.io))
			assert.Contains(t, v.Message, "api.core")
		})
	}
}

func TestEvaluate_MatchSubmodules(t *testing.T) {
	b := defaultBoundary()
	b.MatchSubmodules = true

	v, err := evaluate(t, "import api.file.helpers\n", "api.file", syntax.KindImport, b)
	require.NoError(t, err)
	require.NotNil(t, v)

	v, err = evaluate(t, "from api.file.csv import read\n", "api.file", syntax.KindImportFrom, b)
	require.NoError(t, err)
	require.NotNil(t, v)

	v, err = evaluate(t, "import api.filesystem\n", "api.file", syntax.KindImport, b)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvaluate_ReportsLineOfFirstMatch(t *testing.T) {
	content := "import os\n\nfrom api.predicates import is_valid\nfrom api.main import app\nfrom api.main import run\n"
	v, err := evaluate(t, content, "api.main", syntax.KindImportFrom, defaultBoundary())
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 4, v.Line)
}

func TestEvaluate_CustomRationale(t *testing.T) {
	b := defaultBoundary()
	b.Rationale = "Queries are built, not executed."

	v, err := evaluate(t, "import api.main\n", "api.main", syntax.KindImport, b)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Contains(t, v.Message, "Queries are built, not executed.")
}

func TestEvaluate_FixtureErrors(t *testing.T) {
	b := defaultBoundary()

	t.Run("missing module", func(t *testing.T) {
		loc := writeTree(t, nil)
		v, err := Evaluate(context.Background(), loc, Case{Boundary: b, Domain: "api.core", IO: "api.file", Kind: syntax.KindImport})
		assert.Nil(t, v)
		require.Error(t, err)
		var fe *source.FixtureError
		assert.True(t, errors.As(err, &fe))
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("syntax error", func(t *testing.T) {
		v, err := evaluate(t, "from api.file import (\n", "api.file", syntax.KindImportFrom, b)
		assert.Nil(t, v)
		require.Error(t, err)
		var se *syntax.SyntaxError
		assert.True(t, errors.As(err, &se))
		assert.Equal(t, "core.py", se.Filename)
	})
}

func TestCheck_Pure(t *testing.T) {
	stmts := []syntax.Statement{
		&syntax.ImportFrom{Module: "api.file", Level: 1, Position: syntax.Position{Line: 1}},
		&syntax.Import{Names: []syntax.Alias{{Name: "api.file", AsName: "f"}}, Position: syntax.Position{Line: 2}},
	}
	seq := func(yield func(syntax.Statement) bool) {
		for _, s := range stmts {
			if !yield(s) {
				return
			}
		}
	}

	finding, ok := Check(seq, "api.file", false)
	require.True(t, ok)
	assert.Equal(t, "api.file", finding.Name)
	assert.Equal(t, 2, finding.Statement.Pos().Line)

	_, ok = Check(seq, "api.main", false)
	assert.False(t, ok)
}

func TestBoundary_Cases(t *testing.T) {
	b := defaultBoundary()
	cases := b.Cases()
	require.Len(t, cases, 3*2*2)

	seen := make(map[string]bool)
	for _, c := range cases {
		assert.Same(t, b, c.Boundary)
		seen[c.Name()] = true
	}
	assert.Len(t, seen, len(cases), "case names must be unique")

	var first []string
	for _, c := range cases[:4] {
		first = append(first, c.Name())
	}
	want := []string{
		"domain-io/api.core/api.file/import",
		"domain-io/api.core/api.file/import-from",
		"domain-io/api.core/api.main/import",
		"domain-io/api.core/api.main/import-from",
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("case order mismatch (-want +got):\n%s", diff)
	}
}

func TestBoundary_Validate(t *testing.T) {
	assert.NoError(t, defaultBoundary().Validate())

	overlap := defaultBoundary()
	overlap.IO = append(overlap.IO, "api.core")
	assert.ErrorIs(t, overlap.Validate(), ErrOverlap)

	bad := defaultBoundary()
	bad.Domain = []source.Module{"api..core"}
	assert.ErrorIs(t, bad.Validate(), source.ErrInvalidModule)

	empty := &Boundary{Name: "empty", IO: []source.Module{"api.file"}}
	assert.Error(t, empty.Validate())
}

func TestEvaluate_Deterministic(t *testing.T) {
	loc := writeTree(t, map[string]string{
		"api/core.py":       "from api.file import read_csv\n",
		"api/predicates.py": "import re\n",
		"api/query.py":      "import api.main as main\n",
	})
	b := defaultBoundary()

	run := func() map[string]bool {
		out := make(map[string]bool)
		for _, c := range b.Cases() {
			v, err := Evaluate(context.Background(), loc, c)
			require.NoError(t, err)
			out[c.Name()] = v != nil
		}
		return out
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ between runs (-first +second):\n%s", diff)
	}
	assert.True(t, first["domain-io/api.core/api.file/import-from"])
	assert.True(t, first["domain-io/api.query/api.main/import"])
	assert.False(t, first["domain-io/api.predicates/api.file/import"])
}
