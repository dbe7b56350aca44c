package expression

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// maxReferenceDepth bounds how many references deep an expression may resolve.
// Deeper chains, and reference cycles, evaluate as invalid.
const maxReferenceDepth = 32

// evaluator walks an AST. resolve and call are optional hooks for symbols and
// functions the SystemVerilog core does not know.
type evaluator struct {
	resolve func(name string, depth int) value
	call    func(fn string, args []node) (value, bool)
	depth   int
}

func (e *evaluator) eval(n node) value {
	switch n := n.(type) {
	case emptyNode:
		return value{kind: kindEmpty}
	case numberNode:
		v, _ := literal(n.text, n.kind)
		return v
	case stringNode:
		return value{kind: kindString, s: n.text}
	case identNode:
		return e.ident(n.name)
	case arrayNode:
		elems := make([]value, len(n.elems))
		for i, el := range n.elems {
			elems[i] = e.eval(el)
			if !elems[i].valid() {
				return invalid
			}
		}
		return value{kind: kindArray, elems: elems}
	case unaryNode:
		if n.op == "-" && isMinInt64Magnitude(n.x) {
			return intValue(math.MinInt64)
		}
		return unary(n.op, e.eval(n.x))
	case binaryNode:
		return binary(n.op, e.eval(n.x), e.eval(n.y))
	case ternaryNode:
		cond := e.eval(n.cond)
		if !cond.isNumber() {
			return invalid
		}
		if cond.truthy() {
			return e.eval(n.then)
		}
		return e.eval(n.els)
	case callNode:
		return e.function(n)
	}
	return invalid
}

func (e *evaluator) ident(name string) value {
	switch strings.ToLower(name) {
	case "true":
		return intValue(1)
	case "false":
		return intValue(0)
	}
	if e.resolve == nil {
		return invalid
	}
	return e.resolve(name, e.depth)
}

func (e *evaluator) function(n callNode) value {
	switch n.fn {
	case "$clog2", "$sqrt", "$exp":
		if len(n.args) != 1 {
			return invalid
		}
		arg := e.eval(n.args[0])
		if !arg.isNumber() {
			return invalid
		}
		switch n.fn {
		case "$clog2":
			return clog2(arg)
		case "$sqrt":
			if arg.float() < 0 {
				return invalid
			}
			return shortFloat(math.Sqrt(arg.float()))
		default:
			return shortFloat(math.Exp(arg.float()))
		}
	case "$pow":
		if len(n.args) != 2 {
			return invalid
		}
		return binary("**", e.eval(n.args[0]), e.eval(n.args[1]))
	}
	if e.call != nil {
		if v, ok := e.call(n.fn, n.args); ok {
			return v
		}
	}
	return invalid
}

func clog2(arg value) value {
	n := arg.i
	if arg.kind == kindReal {
		n = int64(arg.f)
	}
	if n < 0 {
		return invalid
	}
	if n <= 1 {
		return intValue(0)
	}
	return intValue(int64(bits.Len64(uint64(n - 1))))
}

// shortFloat prints f with six significant digits and reads it back as a
// literal, so integral results stay integers.
func shortFloat(f float64) value {
	text := strconv.FormatFloat(f, 'g', 6, 64)
	if strings.ContainsAny(text, "eE") {
		return realValue(f, 6)
	}
	if strings.Contains(text, ".") {
		v, _ := literal(text, litReal)
		return v
	}
	v, _ := literal(text, litInt)
	return v
}

// isMinInt64Magnitude reports whether n is the literal 9223372036854775808,
// which is only representable negated.
func isMinInt64Magnitude(n node) bool {
	num, ok := n.(numberNode)
	if !ok || num.kind != litInt {
		return false
	}
	v, _ := literal(num.text, num.kind)
	return v.kind == kindUnsigned && v.u == 1<<63
}

func unary(op string, x value) value {
	if !x.isNumber() {
		return invalid
	}
	switch op {
	case "-":
		if x.kind == kindReal {
			return realValue(-x.f, x.prec)
		}
		return intValue(-x.i)
	case "~":
		if x.kind == kindReal {
			return invalid
		}
		return intValue(^x.i)
	case "!":
		return boolValue(!x.truthy())
	}
	return invalid
}

func binary(op string, x, y value) value {
	if op == "==" || op == "!=" {
		if x.kind == kindString && y.kind == kindString {
			return boolValue((x.s == y.s) == (op == "=="))
		}
	}
	if !x.isNumber() || !y.isNumber() {
		return invalid
	}
	isReal := x.kind == kindReal || y.kind == kindReal
	prec := max(x.prec, y.prec)

	switch op {
	case "+", "-", "*":
		if isReal {
			a, b := x.float(), y.float()
			switch op {
			case "+":
				return realValue(a+b, prec)
			case "-":
				return realValue(a-b, prec)
			}
			return realValue(a*b, prec)
		}
		switch op {
		case "+":
			return intValue(x.i + y.i)
		case "-":
			return intValue(x.i - y.i)
		}
		return intValue(x.i * y.i)
	case "/":
		if y.float() == 0 {
			return invalid
		}
		if x.kind == kindInt {
			if y.kind == kindInt {
				return intValue(x.i / y.i)
			}
			return intValue(int64(x.float() / y.f))
		}
		return realValue(x.f/y.float(), prec)
	case "**":
		return power(x, y, prec)
	case "%", "<<", ">>", "|", "^", "&":
		if isReal {
			return invalid
		}
		switch op {
		case "%":
			if y.i == 0 {
				return invalid
			}
			return intValue(x.i % y.i)
		case "<<":
			if y.i < 0 {
				return invalid
			}
			return intValue(x.i << uint64(y.i))
		case ">>":
			if y.i < 0 {
				return invalid
			}
			return intValue(x.i >> uint64(y.i))
		case "|":
			return intValue(x.i | y.i)
		case "^":
			return intValue(x.i ^ y.i)
		}
		return intValue(x.i & y.i)
	case "&&":
		return boolValue(x.truthy() && y.truthy())
	case "||":
		return boolValue(x.truthy() || y.truthy())
	}

	a, b := x.float(), y.float()
	if !isReal {
		switch op {
		case "==":
			return boolValue(x.i == y.i)
		case "!=":
			return boolValue(x.i != y.i)
		case "<":
			return boolValue(x.i < y.i)
		case ">":
			return boolValue(x.i > y.i)
		case "<=":
			return boolValue(x.i <= y.i)
		case ">=":
			return boolValue(x.i >= y.i)
		}
		return invalid
	}
	switch op {
	case "==":
		return boolValue(a == b)
	case "!=":
		return boolValue(a != b)
	case "<":
		return boolValue(a < b)
	case ">":
		return boolValue(a > b)
	case "<=":
		return boolValue(a <= b)
	case ">=":
		return boolValue(a >= b)
	}
	return invalid
}

// power follows the division rule: an integral base gives an integral result,
// truncated when the exponent is negative.
func power(x, y value, prec int) value {
	base, exp := x.float(), y.float()
	if base == 0 && exp < 0 {
		return invalid
	}
	if x.kind == kindInt {
		if y.kind == kindInt && y.i >= 0 && y.i <= 64 {
			result := int64(1)
			for i := int64(0); i < y.i; i++ {
				result *= x.i
			}
			return intValue(result)
		}
		r := math.Pow(base, exp)
		if math.IsNaN(r) || math.Abs(r) >= math.MaxInt64 {
			return invalid
		}
		return intValue(int64(r))
	}
	return realValue(math.Pow(base, exp), prec)
}
