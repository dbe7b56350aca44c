package validator

// Type is the closed set of SystemVerilog parameter types. Tags outside the
// set parse as TypeUnknown: no value is valid for it, but bounds are still
// compared.
type Type int

const (
	TypeNone Type = iota
	TypeBit
	TypeByte
	TypeShortInt
	TypeInt
	TypeLongInt
	TypeShortReal
	TypeReal
	TypeString
	TypeUnknown
)

var typeTags = map[string]Type{
	"":          TypeNone,
	"bit":       TypeBit,
	"byte":      TypeByte,
	"shortint":  TypeShortInt,
	"int":       TypeInt,
	"longint":   TypeLongInt,
	"shortreal": TypeShortReal,
	"real":      TypeReal,
	"string":    TypeString,
}

// ParseType maps a type attribute to its Type. Matching is case-sensitive.
func ParseType(s string) Type {
	if t, ok := typeTags[s]; ok {
		return t
	}
	return TypeUnknown
}

// comparable reports whether values of the type are compared against
// minimum and maximum.
func (t Type) comparable() bool {
	return t != TypeNone && t != TypeBit && t != TypeString
}

func (t Type) isReal() bool {
	return t == TypeReal || t == TypeShortReal
}

// Resolve is the closed set of resolve attribute values.
type Resolve int

const (
	ResolveNone Resolve = iota
	ResolveImmediate
	ResolveUser
	ResolveGenerated
	ResolveDependent
	ResolveUnknown
)

var resolveTags = map[string]Resolve{
	"":          ResolveNone,
	"immediate": ResolveImmediate,
	"user":      ResolveUser,
	"generated": ResolveGenerated,
	"dependent": ResolveDependent,
}

// ParseResolve maps a resolve attribute to its Resolve.
func ParseResolve(s string) Resolve {
	if r, ok := resolveTags[s]; ok {
		return r
	}
	return ResolveUnknown
}

// needsID reports whether a parameter with this resolve must carry an id.
func (r Resolve) needsID() bool {
	return r == ResolveUser || r == ResolveGenerated
}
