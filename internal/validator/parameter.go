// Package validator checks IP-XACT parameters, modes and components and
// reports problems as human readable sentences.
//
// Validators never fail: every check is a predicate, and FindErrorsIn
// accumulates one message per violated facet. The wording of the messages is
// consumed verbatim by editors and the CLI and must stay stable.
package validator

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/expression"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
)

// ParameterValidator validates one parameter at a time against the choices of
// the component that owns it.
type ParameterValidator interface {
	Validate(p *ipxact.Parameter) bool
	// FindErrorsIn appends a message for every violated facet of p to errs.
	FindErrorsIn(errs []string, p *ipxact.Parameter, context string) []string
}

// New selects the validator for a document revision. IP-XACT 1.x documents
// get the format based legacy rules, everything else the typed rules.
func New(parser expression.Parser, choices []ipxact.Choice, rev ipxact.Revision) ParameterValidator {
	if rev == ipxact.Std10 {
		return NewLegacy(choices)
	}
	return NewCore(parser, choices, rev)
}

var (
	bitLiteral    = regexp.MustCompile(`^([01]|[1-9]?[0-9]*'([bB][01_]+|[hH][0-9a-fA-F_]+))$`)
	stringLiteral = regexp.MustCompile(`^\s*".*"\s*$`)
)

// Core holds the typed parameter rules shared by IP-XACT 2014 and 2022.
// The revision decides two things: 2022 matches choice enumerations against
// the evaluated value and allows vector ids, 2014 matches the raw value and
// rejects vector ids.
type Core struct {
	parser  expression.Parser
	choices []ipxact.Choice
	rev     ipxact.Revision
}

var _ ParameterValidator = (*Core)(nil)

// NewCore returns the typed validator. A nil parser evaluates literals only.
func NewCore(parser expression.Parser, choices []ipxact.Choice, rev ipxact.Revision) *Core {
	if parser == nil {
		parser = expression.SystemVerilogParser{}
	}
	return &Core{parser: parser, choices: choices, rev: rev}
}

// ComponentChange swaps the choices used for choice checks.
func (c *Core) ComponentChange(choices []ipxact.Choice) {
	c.choices = choices
}

func (c *Core) Validate(p *ipxact.Parameter) bool {
	return c.HasValidName(p) &&
		c.HasValidValue(p) &&
		c.HasValidMinimumValue(p) &&
		c.HasValidMaximumValue(p) &&
		c.HasValidChoice(p) &&
		c.HasValidResolve(p) &&
		c.HasValidValueID(p) &&
		c.HasValidVector(p)
}

func (c *Core) HasValidName(p *ipxact.Parameter) bool {
	return strings.TrimSpace(p.Name) != ""
}

// HasValidValue bundles the value checks: present, valid for the type, inside
// the bounds and one of the choice enumerations.
func (c *Core) HasValidValue(p *ipxact.Parameter) bool {
	if p.Value == "" {
		return false
	}
	solved := c.parser.ParseExpression(p.Value)
	return c.HasValidValueForType(p.Value, p.Type) &&
		!c.lessThanMinimum(p, solved) &&
		!c.greaterThanMaximum(p, solved) &&
		c.HasValidValueForChoice(p)
}

// HasValidType reports whether the type attribute is one of the known tags.
func (c *Core) HasValidType(p *ipxact.Parameter) bool {
	return ParseType(p.Type) != TypeUnknown
}

// HasValidValueForType checks a value expression against a type tag.
func (c *Core) HasValidValueForType(value, typeTag string) bool {
	if !c.parser.IsValidExpression(value) {
		return false
	}
	if c.parser.IsArrayExpression(value) {
		return c.isArrayValidForType(value, typeTag)
	}

	solved := c.parser.ParseExpression(value)
	switch ParseType(typeTag) {
	case TypeNone:
		return solved != expression.Invalid
	case TypeBit:
		if _, err := strconv.ParseInt(solved, 10, 32); err != nil {
			return false
		}
		return bitLiteral.MatchString(value) || bitLiteral.MatchString(expression.FormatValue(solved, 2))
	case TypeByte:
		n, err := strconv.ParseInt(solved, 10, 16)
		return err == nil && n >= -128 && n <= 127
	case TypeShortInt:
		_, err := strconv.ParseInt(solved, 10, 16)
		return err == nil
	case TypeInt:
		_, err := strconv.ParseInt(solved, 10, 32)
		return err == nil
	case TypeLongInt:
		if strings.HasPrefix(solved, "-") {
			_, err := strconv.ParseInt(solved, 10, 64)
			return err == nil
		}
		_, err := strconv.ParseUint(solved, 10, 64)
		return err == nil
	case TypeShortReal:
		_, err := strconv.ParseFloat(solved, 32)
		return err == nil
	case TypeReal:
		_, err := strconv.ParseFloat(solved, 64)
		return err == nil
	case TypeString:
		return stringLiteral.MatchString(solved)
	}
	return false
}

// isArrayValidForType validates every element of an array value. For bit
// arrays all elements must also format to the same width, otherwise the
// whole array is invalid.
func (c *Core) isArrayValidForType(value, typeTag string) bool {
	if !expression.IsArray(value) {
		value = c.parser.ParseExpression(value)
	}
	elems := expression.SplitArray(value)
	if !c.arrayValuesAreSameSize(elems, typeTag) {
		return false
	}
	for _, elem := range elems {
		if !c.HasValidValueForType(strings.ReplaceAll(elem, " ", ""), typeTag) {
			return false
		}
	}
	return true
}

func (c *Core) arrayValuesAreSameSize(elems []string, typeTag string) bool {
	if ParseType(typeTag) != TypeBit || len(elems) < 2 {
		return true
	}
	size := len(expression.FormatValue(c.parser.ParseExpression(elems[0]), 2))
	for _, elem := range elems[1:] {
		if len(expression.FormatValue(c.parser.ParseExpression(elem), 2)) != size {
			return false
		}
	}
	return true
}

// ShouldCompareValueAndBoundary reports whether a bound takes part in range
// checks: it must be a valid expression and the type must be numeric.
func (c *Core) ShouldCompareValueAndBoundary(boundary, typeTag string) bool {
	if boundary == "" {
		return false
	}
	return ParseType(typeTag).comparable() && c.parser.IsValidExpression(boundary)
}

func (c *Core) HasValidMinimumValue(p *ipxact.Parameter) bool {
	if !c.ShouldCompareValueAndBoundary(p.Minimum, p.Type) {
		return true
	}
	return c.HasValidValueForType(p.Minimum, p.Type)
}

func (c *Core) HasValidMaximumValue(p *ipxact.Parameter) bool {
	if !c.ShouldCompareValueAndBoundary(p.Maximum, p.Type) {
		return true
	}
	return c.HasValidValueForType(p.Maximum, p.Type)
}

// ValueIsLessThanMinimum reports whether the value, or any element of an
// array value, is below the minimum.
func (c *Core) ValueIsLessThanMinimum(p *ipxact.Parameter) bool {
	return c.lessThanMinimum(p, c.parser.ParseExpression(p.Value))
}

// ValueIsGreaterThanMaximum reports whether the value, or any element of an
// array value, is above the maximum.
func (c *Core) ValueIsGreaterThanMaximum(p *ipxact.Parameter) bool {
	return c.greaterThanMaximum(p, c.parser.ParseExpression(p.Value))
}

func (c *Core) lessThanMinimum(p *ipxact.Parameter, solved string) bool {
	return c.outOfBounds(p.Minimum, p.Type, solved, -1)
}

func (c *Core) greaterThanMaximum(p *ipxact.Parameter, solved string) bool {
	return c.outOfBounds(p.Maximum, p.Type, solved, 1)
}

// outOfBounds compares solved against boundary and reports whether any
// element lies on the given side of it.
func (c *Core) outOfBounds(boundary, typeTag, solved string, side int) bool {
	if !c.ShouldCompareValueAndBoundary(boundary, typeTag) {
		return false
	}
	t := ParseType(typeTag)
	bound := c.parser.ParseExpression(boundary)

	values := []string{solved}
	if expression.IsArray(solved) {
		values = expression.SplitArray(solved)
	}
	for _, v := range values {
		if compareValues(strings.TrimSpace(v), bound, t) == side {
			return true
		}
	}
	return false
}

// compareValues orders two evaluated values the way the type reads them:
// reals as floats, everything else as integers of the full signed and
// unsigned 64-bit range. Unparsable text reads as zero.
func compareValues(a, b string, t Type) int {
	if t.isReal() {
		x, _ := strconv.ParseFloat(a, 64)
		y, _ := strconv.ParseFloat(b, 64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return integerOrZero(a).Cmp(integerOrZero(b))
}

func integerOrZero(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || !n.IsInt64() && !n.IsUint64() {
		return new(big.Int)
	}
	return n
}

func (c *Core) HasValidChoice(p *ipxact.Parameter) bool {
	return p.ChoiceRef == "" || ipxact.FindChoice(c.choices, p.ChoiceRef) != nil
}

// HasValidValueForChoice requires the value, or each element of a brace
// delimited value, to be an enumeration of the referenced choice.
func (c *Core) HasValidValueForChoice(p *ipxact.Parameter) bool {
	if p.ChoiceRef == "" {
		return true
	}
	choice := ipxact.FindChoice(c.choices, p.ChoiceRef)
	if choice == nil {
		return false
	}
	if strings.Contains(p.Value, "{") && strings.Contains(p.Value, "}") {
		elems := strings.Split(p.Value, ",")
		elems[0] = strings.ReplaceAll(elems[0], "{", "")
		elems[len(elems)-1] = strings.ReplaceAll(elems[len(elems)-1], "}", "")
		for _, elem := range elems {
			if !choice.HasEnumeration(elem) {
				return false
			}
		}
		return true
	}
	if c.rev == ipxact.Std22 {
		return choice.HasEnumeration(c.parser.ParseExpression(p.Value))
	}
	return choice.HasEnumeration(p.Value)
}

func (c *Core) HasValidResolve(p *ipxact.Parameter) bool {
	switch ParseResolve(p.Resolve) {
	case ResolveNone, ResolveImmediate, ResolveUser, ResolveGenerated:
		return true
	}
	return false
}

// HasValidValueID requires an id for user and generated parameters.
func (c *Core) HasValidValueID(p *ipxact.Parameter) bool {
	if ParseResolve(p.Resolve).needsID() {
		return p.ID != ""
	}
	return true
}

// HasValidVector checks the vector bounds and, before 2022, that no vector
// carries an id.
func (c *Core) HasValidVector(p *ipxact.Parameter) bool {
	return c.hasValidVectorValues(p) && !c.vectorIDNotAllowed(p)
}

func (c *Core) hasValidVectorValues(p *ipxact.Parameter) bool {
	if len(p.Vectors) > 0 && ParseType(p.Type) != TypeBit {
		return false
	}
	left, right := p.VectorLeft(), p.VectorRight()
	if left == "" && right == "" {
		return true
	}
	return c.isInt(left) && c.isInt(right)
}

func (c *Core) isInt(expr string) bool {
	_, err := strconv.ParseInt(c.parser.ParseExpression(expr), 10, 32)
	return err == nil
}

func (c *Core) vectorIDNotAllowed(p *ipxact.Parameter) bool {
	if c.rev == ipxact.Std22 {
		return false
	}
	for _, v := range p.Vectors {
		if v.ID != "" {
			return true
		}
	}
	return false
}

func (c *Core) FindErrorsIn(errs []string, p *ipxact.Parameter, context string) []string {
	element := p.ElementName()

	if !c.HasValidName(p) {
		errs = append(errs, fmt.Sprintf("No valid name specified for %s %s within %s", element, p.Name, context))
	}

	errs = c.findErrorsInValue(errs, p, element, context)

	if !c.HasValidType(p) {
		errs = append(errs, fmt.Sprintf("Invalid type %s specified for %s %s within %s",
			p.Type, element, p.Name, context))
	}
	if !c.HasValidMinimumValue(p) {
		errs = append(errs, fmt.Sprintf("Minimum value %s is not valid for format %s in %s %s within %s",
			p.Minimum, p.Format, element, p.Name, context))
	}
	if !c.HasValidMaximumValue(p) {
		errs = append(errs, fmt.Sprintf("Maximum value %s is not valid for format %s in %s %s within %s",
			p.Maximum, p.Format, element, p.Name, context))
	}
	if !c.HasValidChoice(p) {
		errs = append(errs, fmt.Sprintf("Choice %s referenced in %s %s is not specified within %s",
			p.ChoiceRef, element, p.Name, context))
	}
	if !c.HasValidResolve(p) {
		errs = append(errs, fmt.Sprintf("Invalid resolve %s specified for %s %s within %s",
			p.Resolve, element, p.Name, context))
	}
	if !c.HasValidValueID(p) {
		errs = append(errs, fmt.Sprintf("No identifier specified for %s %s with resolve %s within %s",
			element, p.Name, p.Resolve, context))
	}
	if !c.hasValidVectorValues(p) {
		errs = append(errs, fmt.Sprintf("Invalid bit vector values specified for %s %s within %s",
			element, p.Name, context))
	}
	if c.vectorIDNotAllowed(p) {
		errs = append(errs, fmt.Sprintf("Vector ID specified for %s %s within %s not using IP-XACT standard revision 2022",
			element, p.Name, context))
	}
	return errs
}

func (c *Core) findErrorsInValue(errs []string, p *ipxact.Parameter, element, context string) []string {
	if p.Value == "" {
		return append(errs, fmt.Sprintf("No value specified for %s %s within %s", element, p.Name, context))
	}

	solved := c.parser.ParseExpression(p.Value)
	if !c.HasValidValueForType(p.Value, p.Type) {
		errs = append(errs, fmt.Sprintf("Value '%s' is not valid for type %s in %s %s within %s",
			p.Value, p.Type, element, p.Name, context))
	}
	if c.lessThanMinimum(p, solved) {
		errs = append(errs, fmt.Sprintf("Value '%s' violates minimum value %s in %s %s within %s",
			p.Value, p.Minimum, element, p.Name, context))
	}
	if c.greaterThanMaximum(p, solved) {
		errs = append(errs, fmt.Sprintf("Value '%s' violates maximum value %s in %s %s within %s",
			p.Value, p.Maximum, element, p.Name, context))
	}
	if !c.HasValidValueForChoice(p) {
		errs = append(errs, fmt.Sprintf("Value '%s' references unknown enumeration for choice %s in %s %s within %s",
			p.Value, p.ChoiceRef, element, p.Name, context))
	}
	return errs
}
