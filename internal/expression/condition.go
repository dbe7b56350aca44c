package expression

// Mode condition functions take the name of a port slice, field slice or
// mode of the same component.
const (
	FuncPortValue     = "$ipxact_port_value"
	FuncFieldValue    = "$ipxact_field_value"
	FuncModeCondition = "$ipxact_mode_condition"
)

// ConditionNames lists what the mode condition functions may refer to.
type ConditionNames struct {
	PortSlices  []string
	FieldSlices []string
	Modes       []string
}

// NewConditionParser returns a parser for IP-XACT 2022 mode conditions. A
// condition function evaluates to 1 when its single argument names a known
// slice or mode and is invalid otherwise.
func NewConditionParser(finder ParameterFinder, names ConditionNames) *IPXactParser {
	known := map[string]map[string]bool{
		FuncPortValue:     set(names.PortSlices),
		FuncFieldValue:    set(names.FieldSlices),
		FuncModeCondition: set(names.Modes),
	}
	p := NewIPXactParser(finder)
	p.call = func(fn string, args []node) (value, bool) {
		names, ok := known[fn]
		if !ok || len(args) != 1 {
			return invalid, false
		}
		ident, ok := args[0].(identNode)
		if !ok || !names[ident.name] {
			return invalid, false
		}
		return intValue(1), true
	}
	return p
}

func set(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}
