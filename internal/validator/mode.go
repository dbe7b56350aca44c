package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/expression"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
)

// ModeValidator checks IP-XACT 2022 modes of one component.
type ModeValidator struct {
	component *ipxact.Component
	finder    expression.ParameterFinder
	ports     *PortSliceValidator
	fields    *FieldSliceValidator
}

// NewModeValidator returns a validator for the modes of c. parser evaluates
// slice ranges; a nil parser resolves references to the parameters of c.
func NewModeValidator(c *ipxact.Component, parser expression.Parser) *ModeValidator {
	finder := expression.NewComponentFinder(c)
	if parser == nil {
		parser = expression.NewIPXactParser(finder)
	}
	return &ModeValidator{
		component: c,
		finder:    finder,
		ports:     NewPortSliceValidator(c, parser),
		fields:    NewFieldSliceValidator(c, parser),
	}
}

func (v *ModeValidator) Validate(m *ipxact.Mode) bool {
	if !hasValidName(m.Name) || !v.hasUniqueName(m) || !v.HasValidCondition(m) {
		return false
	}
	for i := range m.PortSlices {
		if !v.ports.Validate(&m.PortSlices[i], m) {
			return false
		}
	}
	for i := range m.FieldSlices {
		if !v.fields.Validate(&m.FieldSlices[i], m) {
			return false
		}
	}
	return true
}

// HasValidCondition accepts an empty condition. Otherwise the condition must
// evaluate, with the condition functions referring to slices of m and to the
// modes of the component.
func (v *ModeValidator) HasValidCondition(m *ipxact.Mode) bool {
	if strings.TrimSpace(m.Condition) == "" {
		return true
	}
	return v.conditionParser(m).IsValidExpression(m.Condition)
}

func (v *ModeValidator) conditionParser(m *ipxact.Mode) *expression.IPXactParser {
	var names expression.ConditionNames
	for _, s := range m.PortSlices {
		names.PortSlices = append(names.PortSlices, s.Name)
	}
	for _, s := range m.FieldSlices {
		names.FieldSlices = append(names.FieldSlices, s.Name)
	}
	if v.component != nil {
		for _, other := range v.component.Modes {
			names.Modes = append(names.Modes, other.Name)
		}
	}
	return expression.NewConditionParser(v.finder, names)
}

func (v *ModeValidator) hasUniqueName(m *ipxact.Mode) bool {
	if v.component == nil {
		return true
	}
	count := 0
	for _, other := range v.component.Modes {
		if other.Name == m.Name {
			count++
		}
	}
	return count <= 1
}

func (v *ModeValidator) FindErrorsIn(errs []string, m *ipxact.Mode, context string) []string {
	if !hasValidName(m.Name) {
		errs = append(errs, fmt.Sprintf("Invalid name '%s' set for mode within %s.", m.Name, context))
	} else if !v.hasUniqueName(m) {
		errs = append(errs, fmt.Sprintf("Mode name '%s' is not unique within %s.", m.Name, context))
	}
	for i := range m.PortSlices {
		errs = v.ports.FindErrorsIn(errs, &m.PortSlices[i], m)
	}
	for i := range m.FieldSlices {
		errs = v.fields.FindErrorsIn(errs, &m.FieldSlices[i], m)
	}
	if !v.HasValidCondition(m) {
		errs = append(errs, fmt.Sprintf("Condition is not a valid expression within mode '%s'.", m.Name))
	}
	return errs
}

func hasValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}

// PortSliceValidator checks the port conditions of a mode.
type PortSliceValidator struct {
	component *ipxact.Component
	parser    expression.Parser
}

func NewPortSliceValidator(c *ipxact.Component, parser expression.Parser) *PortSliceValidator {
	if parser == nil {
		parser = expression.SystemVerilogParser{}
	}
	return &PortSliceValidator{component: c, parser: parser}
}

func (v *PortSliceValidator) HasValidName(name string) bool {
	return hasValidName(name)
}

func (v *PortSliceValidator) Validate(s *ipxact.PortSlice, m *ipxact.Mode) bool {
	if !hasValidName(s.Name) || !portSliceNameIsUnique(s.Name, m) || s.PortRef == "" {
		return false
	}
	port := v.port(s.PortRef)
	if port == nil || !v.hasValidBound(s.Left) || !v.hasValidBound(s.Right) {
		return false
	}
	return v.isWithinPort(s, port)
}

func (v *PortSliceValidator) port(name string) *ipxact.Port {
	if v.component == nil {
		return nil
	}
	return v.component.Port(name)
}

func (v *PortSliceValidator) hasValidBound(bound string) bool {
	if bound == "" {
		return true
	}
	_, ok := v.intValue(bound)
	return ok
}

func (v *PortSliceValidator) intValue(expr string) (int64, bool) {
	solved, ok := v.parser.Evaluate(expr)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(solved, 10, 64)
	return n, err == nil
}

// isWithinPort requires every set range bound to lie between the port
// bounds. A scalar port spans bit 0 only.
func (v *PortSliceValidator) isWithinPort(s *ipxact.PortSlice, port *ipxact.Port) bool {
	left, _ := v.intValue(port.Left)
	right, _ := v.intValue(port.Right)
	low, high := min(left, right), max(left, right)
	for _, bound := range []string{s.Left, s.Right} {
		if bound == "" {
			continue
		}
		n, _ := v.intValue(bound)
		if n < low || n > high {
			return false
		}
	}
	return true
}

func (v *PortSliceValidator) FindErrorsIn(errs []string, s *ipxact.PortSlice, m *ipxact.Mode) []string {
	if !hasValidName(s.Name) {
		errs = append(errs, fmt.Sprintf("Invalid name '%s' set for port condition within mode '%s'.", s.Name, m.Name))
	} else if !portSliceNameIsUnique(s.Name, m) {
		errs = append(errs, fmt.Sprintf("Port condition name '%s' is not unique within mode '%s'.", s.Name, m.Name))
	}

	if s.PortRef == "" {
		return append(errs, fmt.Sprintf("No port reference set for '%s' within mode '%s'.", s.Name, m.Name))
	}
	port := v.port(s.PortRef)
	if port == nil {
		return append(errs, fmt.Sprintf("Port '%s' in port condition '%s' in mode '%s' could not be found in the component.",
			s.PortRef, s.Name, m.Name))
	}

	leftOK, rightOK := v.hasValidBound(s.Left), v.hasValidBound(s.Right)
	if !leftOK {
		errs = append(errs, fmt.Sprintf("Left range in port condition '%s' is not a valid expression in mode '%s'.", s.Name, m.Name))
	}
	if !rightOK {
		errs = append(errs, fmt.Sprintf("Right range in port condition '%s' is not a valid expression in mode '%s'.", s.Name, m.Name))
	}
	if leftOK && rightOK && !v.isWithinPort(s, port) {
		errs = append(errs, fmt.Sprintf("Range in port condition '%s' is outside the bounds of port '%s' in mode '%s'.",
			s.Name, s.PortRef, m.Name))
	}
	return errs
}

func portSliceNameIsUnique(name string, m *ipxact.Mode) bool {
	count := 0
	for _, s := range m.PortSlices {
		if s.Name == name {
			count++
		}
	}
	return count <= 1
}

// FieldSliceValidator checks the field conditions of a mode.
type FieldSliceValidator struct {
	component *ipxact.Component
	parser    expression.Parser
}

func NewFieldSliceValidator(c *ipxact.Component, parser expression.Parser) *FieldSliceValidator {
	if parser == nil {
		parser = expression.SystemVerilogParser{}
	}
	return &FieldSliceValidator{component: c, parser: parser}
}

func (v *FieldSliceValidator) HasValidName(name string) bool {
	return hasValidName(name)
}

func (v *FieldSliceValidator) Validate(s *ipxact.FieldSlice, m *ipxact.Mode) bool {
	return hasValidName(s.Name) &&
		fieldSliceNameIsUnique(s.Name, m) &&
		v.HasValidReference(s.Ref) &&
		v.hasValidRange(s.Left, s.Right) &&
		v.hasValidRange(s.Right, s.Left)
}

// HasValidReference follows the reference down to the field. The path starts
// at the local memory map of an address space when one is named, otherwise at
// the named memory map. Every link must exist.
func (v *FieldSliceValidator) HasValidReference(ref ipxact.FieldReference) bool {
	if v.component == nil {
		return false
	}

	var mm *ipxact.MemoryMap
	if ref.AddressSpace != "" {
		for i := range v.component.AddressSpaces {
			if v.component.AddressSpaces[i].Name == ref.AddressSpace {
				mm = v.component.AddressSpaces[i].LocalMemoryMap
				break
			}
		}
	} else if ref.MemoryMap != "" {
		for i := range v.component.MemoryMaps {
			if v.component.MemoryMaps[i].Name == ref.MemoryMap {
				mm = &v.component.MemoryMaps[i]
				break
			}
		}
	}
	if mm == nil || ref.AddressBlock == "" || ref.Register == "" || ref.Field == "" {
		return false
	}

	for _, block := range mm.AddressBlocks {
		if block.Name != ref.AddressBlock {
			continue
		}
		for _, reg := range block.Registers {
			if reg.Name != ref.Register {
				continue
			}
			for _, field := range reg.Fields {
				if field.Name == ref.Field {
					return true
				}
			}
		}
	}
	return false
}

// hasValidRange requires bound to come with its counterpart and to evaluate.
func (v *FieldSliceValidator) hasValidRange(bound, other string) bool {
	if bound == "" {
		return true
	}
	return other != "" && v.parser.IsValidExpression(bound)
}

func (v *FieldSliceValidator) FindErrorsIn(errs []string, s *ipxact.FieldSlice, m *ipxact.Mode) []string {
	if !hasValidName(s.Name) {
		errs = append(errs, fmt.Sprintf("Invalid name '%s' set for field condition within mode '%s'.", s.Name, m.Name))
	} else if !fieldSliceNameIsUnique(s.Name, m) {
		errs = append(errs, fmt.Sprintf("Field condition name '%s' is not unique within mode '%s'.", s.Name, m.Name))
	}
	if !v.HasValidReference(s.Ref) {
		errs = append(errs, fmt.Sprintf("Field reference in condition '%s' is not valid in mode '%s'.", s.Name, m.Name))
	}
	if !v.hasValidRange(s.Left, s.Right) {
		errs = append(errs, fmt.Sprintf("Left range in field condition '%s' is not valid in mode '%s'.", s.Name, m.Name))
	}
	if !v.hasValidRange(s.Right, s.Left) {
		errs = append(errs, fmt.Sprintf("Right range in field condition '%s' is not valid in mode '%s'.", s.Name, m.Name))
	}
	return errs
}

func fieldSliceNameIsUnique(name string, m *ipxact.Mode) bool {
	count := 0
	for _, s := range m.FieldSlices {
		if s.Name == name {
			count++
		}
	}
	return count <= 1
}
