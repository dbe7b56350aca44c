// Package policy evaluates cross-document Rego rules over fact tables.
package policy

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/facts"
)

//go:embed rego/*.rego
var builtinFS embed.FS

// Severities accepted in rule overrides.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
	SeverityOff     = "off"
)

// Engine evaluates OPA policies against IP-XACT facts.
type Engine struct {
	violations rego.PreparedEvalQuery
	summary    rego.PreparedEvalQuery
	severities map[string]string
}

// Violation represents a policy violation.
type Violation struct {
	Rule     string `json:"rule" yaml:"rule"`
	Severity string `json:"severity" yaml:"severity"`
	Document string `json:"document" yaml:"document"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Message  string `json:"message" yaml:"message"`
}

// Result contains the evaluation results.
type Result struct {
	Violations []Violation
	Summary    Summary
}

// Summary provides aggregate counts.
type Summary struct {
	TotalViolations int `json:"total_violations" yaml:"total_violations"`
	Errors          int `json:"errors" yaml:"errors"`
	Warnings        int `json:"warnings" yaml:"warnings"`
	Info            int `json:"info" yaml:"info"`
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	dirs       []string
	severities map[string]string
}

// WithPolicyDir loads every .rego file of dir next to the built-in rules.
func WithPolicyDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.dirs = append(o.dirs, dir)
		}
	}
}

// WithSeverities overrides rule severities. SeverityOff disables a rule.
func WithSeverities(rules map[string]string) Option {
	return func(o *options) {
		o.severities = rules
	}
}

// New prepares the built-in rules plus any configured policy directories.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	modules, err := builtinModules()
	if err != nil {
		return nil, err
	}
	for _, dir := range o.dirs {
		extra, err := dirModules(dir)
		if err != nil {
			return nil, err
		}
		modules = append(modules, extra...)
	}

	engine := &Engine{severities: o.severities}

	engine.violations, err = prepare(ctx, modules, "data.ipxact.compliance.all_violations")
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}
	engine.summary, err = prepare(ctx, modules, "data.ipxact.compliance.summary")
	if err != nil {
		return nil, fmt.Errorf("preparing summary query: %w", err)
	}

	return engine, nil
}

func prepare(ctx context.Context, modules []func(*rego.Rego), query string) (rego.PreparedEvalQuery, error) {
	opts := append(append([]func(*rego.Rego){}, modules...), rego.Query(query))
	return rego.New(opts...).PrepareForEval(ctx)
}

func builtinModules() ([]func(*rego.Rego), error) {
	var modules []func(*rego.Rego)
	err := fs.WalkDir(builtinFS, "rego", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := builtinFS.ReadFile(path)
		if err != nil {
			return err
		}
		modules = append(modules, rego.Module(path, string(content)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading built-in policies: %w", err)
	}
	return modules, nil
}

func dirModules(dir string) ([]func(*rego.Rego), error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", dir)
	}
	sort.Strings(files)

	var modules []func(*rego.Rego)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}
	return modules, nil
}

// Evaluate runs the policies against the fact tables. Violations carry the
// path of their document when the tables list it.
func (e *Engine) Evaluate(ctx context.Context, tables facts.Tables) (*Result, error) {
	input, err := structToMap(tables.Normalized())
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}
	rules := map[string]any{}
	for rule, severity := range e.severities {
		rules[rule] = severity
	}
	input["config"] = map[string]any{"rules": rules}

	paths := make(map[string]string, len(tables.Documents))
	for _, d := range tables.Documents {
		paths[d.VLNV] = d.Path
	}

	result := &Result{Violations: []Violation{}}

	rs, err := e.violations.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if violations, ok := rs[0].Expressions[0].Value.([]any); ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]any)
				if !ok {
					continue
				}
				document := getString(vmap, "document")
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Document: document,
					Path:     paths[document],
					Message:  getString(vmap, "message"),
				})
			}
		}
	}

	rs, err = e.summary.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]any); ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Errors:          getInt(smap, "errors"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

// Helper functions
func structToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
