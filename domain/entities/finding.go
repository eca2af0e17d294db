package entities

import (
	"fmt"
	"strings"
)

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is a single observation made while checking a library, manifest
// or build.
type Finding struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Export   string   `json:"export,omitempty"`
	Message  string   `json:"message"`
	// Pos is a source position for lint findings.
	Pos string `json:"pos,omitempty"`
}

func (f Finding) String() string {
	var b strings.Builder
	if f.Pos != "" {
		b.WriteString(f.Pos)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s [%s]", f.Severity, f.Rule)
	if f.Export != "" {
		fmt.Fprintf(&b, " %s:", f.Export)
	}
	b.WriteString(" ")
	b.WriteString(f.Message)
	return b.String()
}

// ReportStatus is the overall outcome of a check.
type ReportStatus string

const (
	ReportPass ReportStatus = "pass"
	ReportFail ReportStatus = "fail"
)

// Report collects the findings of one check.
type Report struct {
	Subject  string       `json:"subject"`
	Status   ReportStatus `json:"status"`
	Findings []Finding    `json:"findings,omitempty"`
}

// NewReport creates a passing report for subject.
func NewReport(subject string) *Report {
	return &Report{Subject: subject, Status: ReportPass}
}

// Add records a finding. Any error-severity finding fails the report.
func (r *Report) Add(f Finding) {
	if f.Severity == "" {
		f.Severity = SeverityError
	}
	r.Findings = append(r.Findings, f)
	if f.Severity == SeverityError {
		r.Status = ReportFail
	}
}

// Addf records an error finding with a formatted message.
func (r *Report) Addf(rule, export, format string, args ...any) {
	r.Add(Finding{Rule: rule, Export: export, Message: fmt.Sprintf(format, args...)})
}

// Merge appends the findings of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	for _, f := range other.Findings {
		r.Add(f)
	}
}

// Passed reports whether no error findings were recorded.
func (r *Report) Passed() bool {
	return r.Status == ReportPass
}

// Errors returns only the error-severity findings.
func (r *Report) Errors() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}
