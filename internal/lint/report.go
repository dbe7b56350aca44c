package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/policy"
)

// Report is the outcome of one analysis as printed by the CLI.
type Report struct {
	Root       string             `json:"root" yaml:"root"`
	Documents  int                `json:"documents" yaml:"documents"`
	Violations []policy.Violation `json:"violations" yaml:"violations"`
	Summary    policy.Summary     `json:"summary" yaml:"summary"`
	Errors     []string           `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// HasErrors reports whether any violation has error severity.
func (r Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// Render writes the report in format. Stage timings are appended to text
// output when stages is not empty.
func Render(w io.Writer, r Report, format string, stages []Stage) error {
	if r.Violations == nil {
		r.Violations = []policy.Violation{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode YAML output: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		renderText(w, r, stages)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderText(w io.Writer, r Report, stages []Stage) {
	if len(r.Violations) > 0 {
		fmt.Fprintf(w, "\n=== Policy Violations ===\n")
		for _, v := range r.Violations {
			icon := "ℹ"
			if v.Severity == policy.SeverityError {
				icon = "✗"
			} else if v.Severity == policy.SeverityWarning {
				icon = "⚠"
			}
			location := v.Document
			if v.Path != "" {
				location = v.Path
			}
			fmt.Fprintf(w, "%s [%s] %s - %s\n", icon, v.Rule, location, v.Message)
		}
	}

	fmt.Fprintf(w, "\n=== Policy Summary ===\n")
	fmt.Fprintf(w, "  Documents: %d\n", r.Documents)
	fmt.Fprintf(w, "  Errors:    %d\n", r.Summary.Errors)
	fmt.Fprintf(w, "  Warnings:  %d\n", r.Summary.Warnings)
	fmt.Fprintf(w, "  Info:      %d\n", r.Summary.Info)

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\n=== Pipeline Errors ===\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if len(stages) > 0 {
		fmt.Fprintf(w, "\n=== Timing Summary ===\n")
		for _, s := range stages {
			fmt.Fprintf(w, "  %-10s %s\n", s.Name+":", formatDuration(s.Duration))
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
