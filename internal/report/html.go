package report

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"github.com/webaudit/webaudit/internal/findings"
	"github.com/webaudit/webaudit/pkg/shared/files"
)

// add adds two integers and returns the result.
// helper function for html template
func add(a, b int) int {
	return a + b
}

// ordinalDate returns a string with the ordinal number of the day
// helper function for html template
func ordinalDate(day int) string {
	suffix := "th"
	switch day {
	case 1, 21, 31:
		suffix = "st"
	case 2, 22:
		suffix = "nd"
	case 3, 23:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", day, suffix)
}

// formatDateTime formats a time.Time object into the specified string format.
// helper function for html template
func formatDateTime(t time.Time) string {
	day := ordinalDate(t.Day())
	return fmt.Sprintf("%s %s %d %02d:%02d", day, t.Month(), t.Year(), t.Hour(), t.Minute())
}

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Audit report {{.Summary.AuditID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
.P0, .P1 { color: #b00020; font-weight: bold; }
.P2 { color: #b26a00; }
.skipped { color: #888; }
</style>
</head>
<body>
<h1>Audit report</h1>
<p>{{.Summary.AuditID}} &mdash; mode {{.Summary.Mode}}, status {{.Summary.Status}}, generated {{formatDateTime .Summary.GeneratedAt}}</p>

<h2>Findings ({{.Summary.TotalFindings}})</h2>
<table>
<tr><th>#</th><th>ID</th><th>Severity</th><th>Type</th><th>Title</th><th>Location</th><th>Verification</th></tr>
{{range $i, $f := .Findings}}
<tr>
<td>{{add $i 1}}</td>
<td>{{$f.ID}}</td>
<td class="{{$f.Severity}}">{{$f.Severity}}</td>
<td>{{$f.Type}}</td>
<td>{{$f.Title}}</td>
<td>{{if $f.Location.File}}{{$f.Location.File}}{{if $f.Location.Line}}:{{$f.Location.Line}}{{end}}{{else}}{{$f.Location.URL}}{{end}}</td>
<td>{{$f.VerificationStatus}}</td>
</tr>
{{end}}
</table>

<h2>Stages</h2>
<table>
<tr><th>Stage</th><th>Outcome</th><th>Findings</th><th>Duration (ms)</th><th>Error</th></tr>
{{range .Summary.Stages}}
<tr class="{{.Outcome}}">
<td>{{.Stage}}</td><td>{{.Outcome}}</td><td>{{.FindingCount}}</td><td>{{.DurationMS}}</td><td>{{.Error}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`

// htmlData is the template context for the HTML report.
type htmlData struct {
	Summary  *Summary
	Findings []findings.Finding
}

// WriteHTML renders the human-readable report next to the JSON summary.
func (w *Writer) WriteHTML(summary *Summary, records []findings.Finding) error {
	tmpl, err := template.New("report.html").
		Funcs(template.FuncMap{
			"add":            add,
			"formatDateTime": formatDateTime,
		}).
		Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, htmlData{Summary: summary, Findings: records}); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}

	path := filepath.Join(w.dir, "report.html")
	if err := files.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	w.logger.Info("HTML report written", "path", path)
	return nil
}
