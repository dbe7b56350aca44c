package validator

import (
	"fmt"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/expression"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
)

// Issue is one finding of component validation.
type Issue struct {
	// Kind is "parameter", "mode" or "component".
	Kind    string
	Subject string
	Message string
}

// ComponentValidator validates everything a component owns that carries
// expressions: parameters of every kind and, for 2022 documents, modes.
type ComponentValidator struct {
	component  *ipxact.Component
	parser     *expression.IPXactParser
	parameters ParameterValidator
	modes      *ModeValidator
}

// NewComponentValidator binds the validators to c. Parameter references
// resolve against the parameters of c.
func NewComponentValidator(c *ipxact.Component) *ComponentValidator {
	parser := expression.NewIPXactParser(expression.NewComponentFinder(c))
	return &ComponentValidator{
		component:  c,
		parser:     parser,
		parameters: New(parser, c.Choices, c.Revision),
		modes:      NewModeValidator(c, parser),
	}
}

// Parser returns the expression parser bound to the component.
func (v *ComponentValidator) Parser() expression.Parser {
	return v.parser
}

func (v *ComponentValidator) context() string {
	return "component " + v.component.VLNV.String()
}

func (v *ComponentValidator) Validate() bool {
	return len(v.Issues()) == 0
}

// FindErrorsIn appends every issue message to errs.
func (v *ComponentValidator) FindErrorsIn(errs []string) []string {
	for _, issue := range v.Issues() {
		errs = append(errs, issue.Message)
	}
	return errs
}

// Issues validates the component and returns one entry per message, in
// model order: parameters, duplicate parameter names, then modes.
func (v *ComponentValidator) Issues() []Issue {
	var issues []Issue
	context := v.context()

	v.component.AllParameters(func(p *ipxact.Parameter) {
		for _, msg := range v.parameters.FindErrorsIn(nil, p, context) {
			issues = append(issues, Issue{Kind: "parameter", Subject: p.Name, Message: msg})
		}
	})

	seen := make(map[string]int)
	for _, p := range v.component.Parameters {
		seen[p.Name]++
		if p.Name != "" && seen[p.Name] == 2 {
			issues = append(issues, Issue{
				Kind:    "component",
				Subject: p.Name,
				Message: fmt.Sprintf("Parameter name %s is not unique within %s", p.Name, context),
			})
		}
	}

	if v.component.Revision == ipxact.Std22 {
		for i := range v.component.Modes {
			m := &v.component.Modes[i]
			for _, msg := range v.modes.FindErrorsIn(nil, m, context) {
				issues = append(issues, Issue{Kind: "mode", Subject: m.Name, Message: msg})
			}
		}
	}
	return issues
}
