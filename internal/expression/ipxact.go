package expression

import (
	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
)

// ParameterFinder looks up the value expression of a parameter by its id.
type ParameterFinder interface {
	HasID(id string) bool
	ValueForID(id string) string
}

// IPXactParser evaluates expressions whose identifiers are parameter ids.
// Referenced values are themselves expressions and are evaluated recursively
// up to a fixed depth, so a reference cycle evaluates as Invalid.
type IPXactParser struct {
	finder ParameterFinder
	call   func(fn string, args []node) (value, bool)
}

var _ Parser = (*IPXactParser)(nil)

// NewIPXactParser returns a parser resolving references through finder.
func NewIPXactParser(finder ParameterFinder) *IPXactParser {
	return &IPXactParser{finder: finder}
}

func (p *IPXactParser) evaluator() *evaluator {
	return &evaluator{resolve: p.resolve, call: p.call}
}

func (p *IPXactParser) resolve(name string, depth int) value {
	if depth >= maxReferenceDepth || p.finder == nil || !p.finder.HasID(name) {
		return invalid
	}
	n, err := parse(p.finder.ValueForID(name))
	if err != nil {
		return invalid
	}
	sub := &evaluator{resolve: p.resolve, call: p.call, depth: depth + 1}
	return sub.eval(n)
}

func (p *IPXactParser) ParseExpression(expression string) string {
	text, _ := evaluate(expression, p.evaluator())
	return text
}

func (p *IPXactParser) Evaluate(expression string) (string, bool) {
	return evaluate(expression, p.evaluator())
}

func (p *IPXactParser) IsValidExpression(expression string) bool {
	_, ok := evaluate(expression, p.evaluator())
	return ok
}

func (p *IPXactParser) IsArrayExpression(expression string) bool {
	return IsArray(expression) || IsArray(p.ParseExpression(expression))
}

// IsPlainValue reports whether the expression is a literal. References are
// never plain.
func (p *IPXactParser) IsPlainValue(expression string) bool {
	return isPlainValue(expression)
}

func (p *IPXactParser) BaseForExpression(expression string) int {
	return baseForExpression(expression, p.referenceBase, 0)
}

func (p *IPXactParser) referenceBase(name string, depth int) int {
	if depth >= maxReferenceDepth || p.finder == nil || !p.finder.HasID(name) {
		return 0
	}
	return baseForExpression(p.finder.ValueForID(name), p.referenceBase, depth+1)
}

// MapFinder is a ParameterFinder over a fixed id to value map.
type MapFinder map[string]string

func (m MapFinder) HasID(id string) bool {
	_, ok := m[id]
	return ok
}

func (m MapFinder) ValueForID(id string) string {
	return m[id]
}

// ComponentFinder finds parameters anywhere in a component by id.
type ComponentFinder struct {
	byID map[string]*ipxact.Parameter
}

// NewComponentFinder indexes every parameter of c. When ids collide the first
// parameter wins.
func NewComponentFinder(c *ipxact.Component) *ComponentFinder {
	f := &ComponentFinder{byID: make(map[string]*ipxact.Parameter)}
	if c == nil {
		return f
	}
	c.AllParameters(func(p *ipxact.Parameter) {
		if p.ID == "" {
			return
		}
		if _, dup := f.byID[p.ID]; !dup {
			f.byID[p.ID] = p
		}
	})
	return f
}

func (f *ComponentFinder) HasID(id string) bool {
	_, ok := f.byID[id]
	return ok
}

func (f *ComponentFinder) ValueForID(id string) string {
	if p, ok := f.byID[id]; ok {
		return p.Value
	}
	return ""
}

// NameForID returns the name of the parameter with the given id.
func (f *ComponentFinder) NameForID(id string) string {
	if p, ok := f.byID[id]; ok {
		return p.Name
	}
	return ""
}

// Len returns the number of indexed parameters.
func (f *ComponentFinder) Len() int {
	return len(f.byID)
}
