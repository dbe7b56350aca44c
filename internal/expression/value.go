package expression

import (
	"math"
	"strconv"
	"strings"
)

// Invalid is the text every failed evaluation produces.
const Invalid = "x"

type kind int

const (
	kindEmpty kind = iota
	kindInt
	// kindUnsigned holds a decimal literal above the int64 range. It prints
	// but takes no part in arithmetic.
	kindUnsigned
	kindReal
	kindString
	kindArray
	kindInvalid
)

// value is the result of evaluating a node. Reals remember how many decimal
// digits their operands carried so the printed result keeps that precision.
type value struct {
	kind  kind
	i     int64
	u     uint64
	f     float64
	prec  int
	s     string
	elems []value
}

var invalid = value{kind: kindInvalid}

func intValue(i int64) value { return value{kind: kindInt, i: i} }

func realValue(f float64, prec int) value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return invalid
	}
	return value{kind: kindReal, f: f, prec: prec}
}

func boolValue(b bool) value {
	if b {
		return intValue(1)
	}
	return intValue(0)
}

func (v value) isNumber() bool { return v.kind == kindInt || v.kind == kindReal }

func (v value) float() float64 {
	if v.kind == kindReal {
		return v.f
	}
	return float64(v.i)
}

func (v value) truthy() bool {
	if v.kind == kindReal {
		return v.f != 0
	}
	return v.i != 0
}

func (v value) String() string {
	switch v.kind {
	case kindEmpty:
		return ""
	case kindInt:
		return strconv.FormatInt(v.i, 10)
	case kindUnsigned:
		return strconv.FormatUint(v.u, 10)
	case kindReal:
		return strconv.FormatFloat(v.f, 'f', v.prec, 64)
	case kindString:
		return v.s
	case kindArray:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	return Invalid
}

// valid reports whether v and every element below it evaluated.
func (v value) valid() bool {
	if v.kind == kindInvalid {
		return false
	}
	for _, e := range v.elems {
		if !e.valid() {
			return false
		}
	}
	return true
}

// literal converts one numeric token into a value together with its base.
func literal(text string, t tokenKind) (value, int) {
	clean := strings.ReplaceAll(text, "_", "")
	switch t {
	case litInt:
		i, err := strconv.ParseInt(clean, 10, 64)
		if err == nil {
			return intValue(i), 10
		}
		u, err := strconv.ParseUint(clean, 10, 64)
		if err != nil {
			return invalid, 10
		}
		return value{kind: kindUnsigned, u: u}, 10
	case litUnbased:
		i, err := strconv.ParseInt(strings.TrimPrefix(clean, "'"), 10, 64)
		if err != nil {
			return invalid, 10
		}
		return intValue(i), 10
	case litReal:
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return invalid, 10
		}
		return realValue(f, decimals(clean)), 10
	case litHex:
		digits := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(clean, "#"), "0x"), "0X")
		u, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return invalid, 16
		}
		return intValue(int64(u)), 16
	case litMagnitude:
		i, err := strconv.ParseInt(clean[:len(clean)-1], 10, 64)
		if err != nil {
			return invalid, 10
		}
		return intValue(i * magnitude(clean[len(clean)-1])), 10
	case litBased:
		return basedLiteral(clean)
	}
	return invalid, 10
}

// basedLiteral parses [size]'[s]<base><digits>. The size only matters for
// formatting, the value is the plain number.
func basedLiteral(text string) (value, int) {
	tick := strings.IndexByte(text, '\'')
	rest := text[tick+1:]
	if rest != "" && (rest[0] == 's' || rest[0] == 'S') {
		rest = rest[1:]
	}
	if rest == "" {
		return invalid, 10
	}
	base := 10
	switch rest[0] {
	case 'b', 'B':
		base = 2
	case 'o', 'O':
		base = 8
	case 'h', 'H':
		base = 16
	}
	u, err := strconv.ParseUint(rest[1:], base, 64)
	if err != nil {
		return invalid, base
	}
	return intValue(int64(u)), base
}

// magnitude returns the multiplier of a k/M/G/T suffix. Lower-case m is mega
// as well; IP-XACT values have no fractional units.
func magnitude(suffix byte) int64 {
	switch suffix {
	case 'k', 'K':
		return 1 << 10
	case 'm', 'M':
		return 1 << 20
	case 'g', 'G':
		return 1 << 30
	case 't', 'T':
		return 1 << 40
	}
	return 1
}

// decimals counts the digits after the decimal point, ignoring any exponent.
func decimals(text string) int {
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		return 0
	}
	frac := text[dot+1:]
	if e := strings.IndexAny(frac, "eE"); e >= 0 {
		frac = frac[:e]
	}
	return len(frac)
}
