// Package contract guards the data crossing from Go into the policy engine
// and out to report consumers.
package contract

// =============================================================================
// CONTRACT GUARD: FAIL EARLY, FAIL LOUD
// =============================================================================
//
// Rego rules read fact tables by field name. A renamed field or an unexpected
// value does not fail in Rego, the rule just never fires and the library
// looks clean. Every table is therefore checked against a closed CUE schema
// before evaluation, and a failure aborts the run.
//
// When validation fails, fix the producer (reader, facts builder) or update
// the schema together with the rules that read the field.
// =============================================================================

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed facts_schema.cue report_schema.cue
var schemaFS embed.FS

// Validator checks values against one definition of an embedded schema.
type Validator struct {
	ctx        *cue.Context
	definition cue.Value
	name       string
}

// NewFactsValidator validates facts.Tables against #FactTables.
func NewFactsValidator() (*Validator, error) {
	return newValidator("facts_schema.cue", "#FactTables")
}

// NewReportValidator validates lint reports against #LintReport.
func NewReportValidator() (*Validator, error) {
	return newValidator("report_schema.cue", "#LintReport")
}

func newValidator(file, definition string) (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema %s: %w", file, err)
	}

	schema := ctx.CompileBytes(schemaBytes, cue.Filename(file))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, schema.Err())
	}

	def := schema.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", definition, def.Err())
	}

	return &Validator{ctx: ctx, definition: def, name: definition}, nil
}

// Validate marshals data to JSON and checks it against the schema.
// Returns nil if valid, or an error listing what failed.
func (v *Validator) Validate(data any) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates JSON bytes directly against the schema.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	if err := v.unify(jsonBytes); err != nil {
		return fmt.Errorf("%s validation failed: %w", v.name, err)
	}
	return nil
}

// ValidationErrors returns one line per schema violation, or nil.
func (v *Validator) ValidationErrors(data any) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}
	err = v.unify(jsonBytes)
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func (v *Validator) unify(jsonBytes []byte) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return dataValue.Err()
	}
	return v.definition.Unify(dataValue).Validate(cue.Concrete(true))
}
