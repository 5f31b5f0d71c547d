package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"importguard/internal/source"
	"importguard/internal/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures what a test harness would have been told.
type recorder struct {
	errors []string
	fatals []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recorder) Fatalf(format string, args ...any) {
	r.fatals = append(r.fatals, fmt.Sprintf(format, args...))
}

func TestMessage_NamesBothModules(t *testing.T) {
	msg := Message("api.file", "api.core", "")

	assert.Contains(t, msg, "`api.core`")
	assert.Contains(t, msg, "`api.file`")
	assert.Contains(t, msg, "modularity")
	assert.Contains(t, msg, "unit testing")
}

func TestMessage_CustomRationale(t *testing.T) {
	msg := Message("billing.gateway", "billing.invoice", "Invoices are pure.")
	assert.Contains(t, msg, "Invoices are pure.")
	assert.NotContains(t, msg, "modularity")
}

func TestNewViolation(t *testing.T) {
	v := NewViolation("api.main", "api.query", syntax.KindImport, 3, "")

	assert.Equal(t, source.Module("api.main"), v.IO)
	assert.Equal(t, source.Module("api.query"), v.Domain)
	assert.Equal(t, v.Message, v.Error())
	assert.Contains(t, v.Location(), "query.py:3")
}

func TestFail_SignalsErrorNotFatal(t *testing.T) {
	rec := &recorder{}
	Fail(rec, NewViolation("api.file", "api.core", syntax.KindImportFrom, 1, ""))

	require.Len(t, rec.errors, 1)
	assert.Empty(t, rec.fatals)
	assert.Contains(t, rec.errors[0], "api.file")
}

func TestFailFixture_IsDistinguishable(t *testing.T) {
	rec := &recorder{}
	FailFixture(rec, &source.FixtureError{Module: "api.core", Path: "/repo/api/core.py", Err: fmt.Errorf("no such file")})

	assert.Empty(t, rec.errors)
	require.Len(t, rec.fatals, 1)
	assert.Contains(t, rec.fatals[0], "fixture error:")
}

func sampleSummary() *Summary {
	v := NewViolation("api.file", "api.core", syntax.KindImportFrom, 1, "")
	v.Boundary = "domain-io"
	return NewSummary("/repo", time.Now(), []CaseResult{
		{Boundary: "domain-io", Domain: "api.core", IO: "api.file", Kind: syntax.KindImport},
		{Boundary: "domain-io", Domain: "api.core", IO: "api.file", Kind: syntax.KindImportFrom, Violation: v},
		{Boundary: "domain-io", Domain: "api.query", IO: "api.file", Kind: syntax.KindImport},
	})
}

func TestSummary_Counts(t *testing.T) {
	s := sampleSummary()
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 1, s.Failed())
	assert.Equal(t, 2, s.Passed())
	assert.False(t, s.OK())
	require.Len(t, s.Violations(), 1)
	assert.Equal(t, source.Module("api.core"), s.Violations()[0].Domain)
}

func TestRender_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSummary(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "api.core")
	assert.Contains(t, out, "api.file")
	assert.Contains(t, out, "3 cases, 2 passed, 1 failed")
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSummary(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Domain")
	assert.Contains(t, out, "import-from")
	assert.Contains(t, out, "FAIL")
}

func TestRender_JSON(t *testing.T) {
	s := sampleSummary()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s, FormatJSON))

	var decoded struct {
		RunID   string `json:"run_id"`
		Results []struct {
			Kind      string     `json:"kind"`
			Violation *Violation `json:"violation"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s.RunID, decoded.RunID)
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, "import-from", decoded.Results[1].Kind)
	require.NotNil(t, decoded.Results[1].Violation)
	assert.Equal(t, syntax.KindImportFrom, decoded.Results[1].Violation.Kind)
	assert.Nil(t, decoded.Results[0].Violation)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
