package validator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
)

// Value formats of IP-XACT 1.x parameters.
const (
	FormatBool      = "bool"
	FormatBitString = "bitString"
	FormatLong      = "long"
	FormatFloat     = "float"
	FormatString    = "string"
)

var legacyFormats = map[string]*regexp.Regexp{
	FormatBool:      regexp.MustCompile(`^(true|false)$`),
	FormatBitString: regexp.MustCompile(`^([01]+|"[01]+")$`),
	FormatLong:      regexp.MustCompile(`^[+-]?(0[xX]|#)?[0-9a-fA-F]+[kKmMgGtT]?$`),
	FormatFloat:     regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`),
}

// Legacy validates IP-XACT 1.x (SPIRIT) parameters. Values are plain text
// checked against their format; nothing is evaluated.
type Legacy struct {
	choices []ipxact.Choice
}

var _ ParameterValidator = (*Legacy)(nil)

func NewLegacy(choices []ipxact.Choice) *Legacy {
	return &Legacy{choices: choices}
}

func (l *Legacy) Validate(p *ipxact.Parameter) bool {
	return p.Name != "" &&
		l.hasValidValue(p) &&
		hasValidFormat(p.Format) &&
		hasValidBitStringLength(p) &&
		l.hasValidBoundary(p.Minimum, p.Format) &&
		l.hasValidBoundary(p.Maximum, p.Format) &&
		l.hasValidChoice(p) &&
		hasValidLegacyResolve(p.Resolve) &&
		(!ParseResolve(p.Resolve).needsID() || p.ID != "")
}

func (l *Legacy) hasValidValue(p *ipxact.Parameter) bool {
	return p.Value != "" &&
		hasValidValueForFormat(p.Value, p.Format) &&
		!l.valueIsLessThanMinimum(p) &&
		!l.valueIsGreaterThanMaximum(p) &&
		l.hasValidValueForChoice(p)
}

func hasValidFormat(format string) bool {
	switch format {
	case "", FormatBool, FormatBitString, FormatLong, FormatFloat, FormatString:
		return true
	}
	return false
}

func hasValidValueForFormat(value, format string) bool {
	if format == "" || format == FormatString {
		return true
	}
	re, ok := legacyFormats[format]
	return ok && re.MatchString(value)
}

// hasValidBitStringLength requires a length exactly when the format is bitString.
func hasValidBitStringLength(p *ipxact.Parameter) bool {
	if p.Format == FormatBitString {
		return p.BitStringLength != ""
	}
	return p.BitStringLength == ""
}

func hasValidLegacyResolve(resolve string) bool {
	switch ParseResolve(resolve) {
	case ResolveNone, ResolveImmediate, ResolveUser, ResolveDependent, ResolveGenerated:
		return true
	}
	return false
}

func shouldCompareLegacy(boundary, format string) bool {
	return boundary != "" && (format == FormatLong || format == FormatFloat || format == FormatBitString)
}

func (l *Legacy) hasValidBoundary(boundary, format string) bool {
	return !shouldCompareLegacy(boundary, format) || hasValidValueForFormat(boundary, format)
}

func (l *Legacy) valueIsLessThanMinimum(p *ipxact.Parameter) bool {
	return shouldCompareLegacy(p.Minimum, p.Format) && legacyValueOf(p.Value, p.Format) < legacyValueOf(p.Minimum, p.Format)
}

func (l *Legacy) valueIsGreaterThanMaximum(p *ipxact.Parameter) bool {
	return shouldCompareLegacy(p.Maximum, p.Format) && legacyValueOf(p.Value, p.Format) > legacyValueOf(p.Maximum, p.Format)
}

func (l *Legacy) hasValidChoice(p *ipxact.Parameter) bool {
	return p.ChoiceRef == "" || ipxact.FindChoice(l.choices, p.ChoiceRef) != nil
}

func (l *Legacy) hasValidValueForChoice(p *ipxact.Parameter) bool {
	if p.ChoiceRef == "" {
		return true
	}
	choice := ipxact.FindChoice(l.choices, p.ChoiceRef)
	return choice != nil && choice.HasEnumeration(p.Value)
}

// legacyValueOf reads a bound or value in its format. Long values accept
// hexadecimal prefixes and k/M/G/T multipliers of 1024, floats accept
// exponents. Unparsable text reads as zero.
func legacyValueOf(value, format string) float64 {
	if format == FormatLong {
		return float64(legacyLongValue(value))
	}
	f, _ := strconv.ParseFloat(strings.Trim(value, `"`), 64)
	return f
}

func legacyLongValue(value string) int64 {
	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "#") {
		digits := strings.TrimPrefix(strings.TrimPrefix(lower, "#"), "0x")
		n, _ := strconv.ParseInt(digits, 16, 64)
		return n
	}
	if lower == "" {
		return 0
	}
	exp := strings.IndexByte("kmgt", lower[len(lower)-1])
	if exp < 0 {
		n, _ := strconv.ParseInt(value, 10, 64)
		return n
	}
	n, _ := strconv.ParseInt(value[:len(value)-1], 10, 64)
	return n * int64(math.Pow(1024, float64(exp+1)))
}

func (l *Legacy) FindErrorsIn(errs []string, p *ipxact.Parameter, context string) []string {
	element := p.ElementName()

	if p.Name == "" {
		errs = append(errs, fmt.Sprintf("No name specified for %s within %s", element, context))
	}

	if p.Value == "" {
		errs = append(errs, fmt.Sprintf("No value specified for %s %s within %s", element, p.Name, context))
	} else {
		if !hasValidValueForFormat(p.Value, p.Format) {
			errs = append(errs, fmt.Sprintf("Value %s violates format %s in %s %s within %s",
				p.Value, p.Format, element, p.Name, context))
		}
		if l.valueIsLessThanMinimum(p) {
			errs = append(errs, fmt.Sprintf("Value %s violates minimum value %s in %s %s within %s",
				p.Value, p.Minimum, element, p.Name, context))
		}
		if l.valueIsGreaterThanMaximum(p) {
			errs = append(errs, fmt.Sprintf("Value %s violates maximum value %s in %s %s within %s",
				p.Value, p.Maximum, element, p.Name, context))
		}
		if !l.hasValidValueForChoice(p) {
			errs = append(errs, fmt.Sprintf("Value %s references unknown enumeration for choice %s in %s %s within %s",
				p.Value, p.ChoiceRef, element, p.Name, context))
		}
	}

	if !hasValidFormat(p.Format) {
		errs = append(errs, fmt.Sprintf("Invalid format %s specified for %s %s within %s",
			p.Format, element, p.Name, context))
	}

	if p.Format == FormatBitString && p.BitStringLength == "" {
		errs = append(errs, fmt.Sprintf("No bit string length specified for %s %s within %s",
			element, p.Name, context))
	} else if p.Format != FormatBitString && p.BitStringLength != "" {
		errs = append(errs, fmt.Sprintf("Bit string length specified for format other than bitString for %s %s within %s",
			element, p.Name, context))
	}

	if !l.hasValidBoundary(p.Minimum, p.Format) {
		errs = append(errs, fmt.Sprintf("Minimum value %s is not valid for format %s in %s %s within %s",
			p.Minimum, p.Format, element, p.Name, context))
	}
	if !l.hasValidBoundary(p.Maximum, p.Format) {
		errs = append(errs, fmt.Sprintf("Maximum value %s is not valid for format %s in %s %s within %s",
			p.Maximum, p.Format, element, p.Name, context))
	}
	if !l.hasValidChoice(p) {
		errs = append(errs, fmt.Sprintf("Choice %s referenced in %s %s is not specified within %s",
			p.ChoiceRef, element, p.Name, context))
	}
	if !hasValidLegacyResolve(p.Resolve) {
		errs = append(errs, fmt.Sprintf("Invalid resolve %s specified for %s %s within %s",
			p.Resolve, element, p.Name, context))
	}
	if ParseResolve(p.Resolve).needsID() && p.ID == "" {
		errs = append(errs, fmt.Sprintf("No id specified for %s %s with resolve %s within %s",
			element, p.Name, p.Resolve, context))
	}
	return errs
}
