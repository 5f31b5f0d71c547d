package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"importguard/internal/logging"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Format selects an output renderer.
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatTable, FormatJSON}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (valid: %v)", s, Formats)
}

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Render writes s to w in the given format.
func Render(w io.Writer, s *Summary, format Format) error {
	logging.ReportDebug("rendering run %s as %s (%d cases)", s.RunID, format, len(s.Results))
	switch format {
	case FormatJSON:
		return renderJSON(w, s)
	case FormatTable:
		return renderTable(w, s)
	case FormatText, "":
		return renderText(w, s)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderText(w io.Writer, s *Summary) error {
	var b strings.Builder
	for _, v := range s.Violations() {
		fmt.Fprintf(&b, "%s %s -> %s %s\n",
			failStyle.Render("FAIL"), v.Domain, v.IO,
			mutedStyle.Render(fmt.Sprintf("(%s, %s)", v.Kind, v.Location())))
		fmt.Fprintf(&b, "%s\n\n", v.Message)
	}

	status := passStyle.Render("PASS")
	if !s.OK() {
		status = failStyle.Render("FAIL")
	}
	fmt.Fprintf(&b, "%s %d cases, %d passed, %d failed %s\n",
		status, len(s.Results), s.Passed(), s.Failed(),
		mutedStyle.Render(fmt.Sprintf("in %v", s.Duration.Round(time.Microsecond))))

	_, err := io.WriteString(w, b.String())
	return err
}

func renderTable(w io.Writer, s *Summary) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Boundary", "Domain", "IO", "Kind", "Result", "Line"})

	for _, r := range s.Results {
		result, line := "pass", ""
		if r.Violation != nil {
			result, line = "FAIL", fmt.Sprint(r.Violation.Line)
		}
		t.AppendRow(table.Row{r.Boundary, r.Domain, r.IO, r.Kind, result, line})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d/%d", s.Passed(), len(s.Results)), ""})

	t.Render()
	return nil
}

func renderJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
