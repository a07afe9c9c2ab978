package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// ParseFormat defaults to JSON when s is empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

func (f Format) Extension() string { return string(f) }

// Write renders the report in format f.
func Write(w io.Writer, r *ProgramReport, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatHTML:
		return WriteHTML(w, r)
	default:
		return WriteJSON(w, r)
	}
}

func WriteJSON(w io.Writer, r *ProgramReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var csvHeader = []string{
	"name", "email", "milestones", "completed", "in_progress", "not_started", "paused",
	"completion_rate", "budget", "spent", "remaining", "utilization",
}

// WriteCSV writes one line per participant followed by a totals line.
func WriteCSV(w io.Writer, r *ProgramReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		record := []string{row.Name, row.Email}
		record = append(record, statsFields(row.Milestones)...)
		record = append(record, money(row.Budget), money(row.Spent), money(row.Remaining), strconv.Itoa(row.Utilization))
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	total := []string{"TOTAL", ""}
	total = append(total, statsFields(r.Milestones)...)
	total = append(total,
		money(r.Financial.TotalBudget), money(r.Financial.TotalSpent),
		money(r.Financial.Remaining), strconv.Itoa(r.Financial.Utilization))
	if err := cw.Write(total); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func statsFields(s MilestoneStats) []string {
	return []string{
		strconv.Itoa(s.Total), strconv.Itoa(s.Completed), strconv.Itoa(s.InProgress),
		strconv.Itoa(s.NotStarted), strconv.Itoa(s.Paused), strconv.Itoa(s.CompletionRate),
	}
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{"money": money}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04"}} &middot; {{.Participants}} participants</p>
<h2>Milestones</h2>
<p>{{.Milestones.Completed}} of {{.Milestones.Total}} completed ({{.Milestones.CompletionRate}}%),
{{.Milestones.InProgress}} in progress, {{.Milestones.NotStarted}} not started, {{.Milestones.Paused}} paused.</p>
<h2>Budget</h2>
<p>Budget ${{money .Financial.TotalBudget}}, spent ${{money .Financial.TotalSpent}},
remaining ${{money .Financial.Remaining}} ({{.Financial.Utilization}}% used).</p>
<table>
<tr><th>Name</th><th>Email</th><th>Milestones</th><th>Completed</th><th>Budget</th><th>Spent</th><th>Remaining</th><th>Used</th></tr>
{{range .Rows}}<tr><td>{{.Name}}</td><td>{{.Email}}</td><td>{{.Milestones.Total}}</td><td>{{.Milestones.Completed}}</td><td>${{money .Budget}}</td><td>${{money .Spent}}</td><td>${{money .Remaining}}</td><td>{{.Utilization}}%</td></tr>
{{end}}</table>
</body>
</html>
`))

func WriteHTML(w io.Writer, r *ProgramReport) error {
	return htmlReport.Execute(w, r)
}
