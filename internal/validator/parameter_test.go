package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/expression"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
)

func TestHasValidValueForType(t *testing.T) {
	tests := []struct {
		name    string
		typeTag string
		value   string
		want    bool
	}{
		{"untyped number", "", "50", true},
		{"untyped unknown reference", "", "abc", false},
		{"untyped malformed", "", "1+", false},
		{"bit decimal formats as literal", "bit", "1011", true},
		{"bit single digit", "bit", "1", true},
		{"bit sized hex", "bit", "8'hFF", true},
		{"bit real", "bit", "1.5", false},
		{"byte in range", "byte", "127", true},
		{"byte lower bound", "byte", "-128", true},
		{"byte out of range", "byte", "200", false},
		{"byte below range", "byte", "-129", false},
		{"shortint in range", "shortint", "32767", true},
		{"shortint out of range", "shortint", "32768", false},
		{"int in range", "int", "2147483647", true},
		{"int out of range", "int", "2147483648", false},
		{"int from expression", "int", "2**10", true},
		{"longint max", "longint", "9223372036854775807", true},
		{"longint negative", "longint", "-5", true},
		{"longint min", "longint", "-9223372036854775808", true},
		{"longint unsigned max", "longint", "18446744073709551615", true},
		{"longint above unsigned range", "longint", "18446744073709551616", false},
		{"int rejects unsigned range", "int", "18446744073709551615", false},
		{"real", "real", "1.5", true},
		{"shortreal", "shortreal", "0.25", true},
		{"real from integer", "real", "3", true},
		{"string quoted", "string", `"abc"`, true},
		{"string unquoted", "string", "5", false},
		{"unknown type", "integer", "5", false},
		{"type is case sensitive", "Int", "5", false},
		{"int array", "int", "{1,2,3}", true},
		{"int array with invalid element", "int", "{1,abc}", false},
		{"bit array of equal widths", "bit", "{1'b1+1'b1, 2'b10}", true},
		{"bit array of different widths", "bit", "{3'b101,2'b10}", false},
		{"bit array of unbased values", "bit", "{'b11,'b00}", false},
	}

	v := NewCore(nil, nil, ipxact.Std14)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.HasValidValueForType(tt.value, tt.typeTag),
				"HasValidValueForType(%q, %q)", tt.value, tt.typeTag)
		})
	}
}

func TestBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		param   ipxact.Parameter
		less    bool
		greater bool
		valid   bool
	}{
		{
			name:  "untyped skips comparison",
			param: ipxact.Parameter{Name: "p", Value: "50", Minimum: "100"},
			valid: true,
		},
		{
			name:  "bit skips comparison",
			param: ipxact.Parameter{Name: "p", Type: "bit", Value: "1", Maximum: "0"},
			valid: true,
		},
		{
			name:  "string skips comparison",
			param: ipxact.Parameter{Name: "p", Type: "string", Value: `"a"`, Minimum: "100"},
			valid: true,
		},
		{
			name:  "int below minimum",
			param: ipxact.Parameter{Name: "p", Type: "int", Value: "5", Minimum: "10"},
			less:  true,
		},
		{
			name:    "int above maximum",
			param:   ipxact.Parameter{Name: "p", Type: "int", Value: "11", Maximum: "10"},
			greater: true,
		},
		{
			name:  "int inside bounds",
			param: ipxact.Parameter{Name: "p", Type: "int", Value: "10", Minimum: "1k/1024", Maximum: "10"},
			valid: true,
		},
		{
			name:    "real above maximum",
			param:   ipxact.Parameter{Name: "p", Type: "real", Value: "2.0", Maximum: "1.5"},
			greater: true,
		},
		{
			name:  "array element below minimum",
			param: ipxact.Parameter{Name: "p", Type: "int", Value: "{20,5}", Minimum: "10"},
			less:  true,
		},
		{
			name:  "unknown type still compares bounds",
			param: ipxact.Parameter{Name: "p", Type: "foo", Value: "5", Minimum: "10"},
			less:  true,
		},
		{
			name:  "longint beyond int64 inside bounds",
			param: ipxact.Parameter{Name: "p", Type: "longint", Value: "18446744073709551615", Minimum: "9223372036854775807"},
			valid: true,
		},
		{
			name:    "longint beyond int64 above maximum",
			param:   ipxact.Parameter{Name: "p", Type: "longint", Value: "18446744073709551615", Maximum: "9223372036854775807"},
			greater: true,
		},
		{
			name:  "invalid boundary is not compared",
			param: ipxact.Parameter{Name: "p", Type: "int", Value: "5", Minimum: "abc"},
			valid: true,
		},
	}

	v := NewCore(nil, nil, ipxact.Std14)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.param
			assert.Equal(t, tt.less, v.ValueIsLessThanMinimum(&p))
			assert.Equal(t, tt.greater, v.ValueIsGreaterThanMaximum(&p))
			assert.Equal(t, tt.valid, v.Validate(&p))
		})
	}
}

func TestUnknownTypeReportsBoundViolation(t *testing.T) {
	v := NewCore(nil, nil, ipxact.Std14)
	p := ipxact.Parameter{Name: "p", Type: "foo", Value: "5", Minimum: "10"}

	errs := v.FindErrorsIn(nil, &p, "test")
	assert.Contains(t, errs, "Value '5' is not valid for type foo in parameter p within test")
	assert.Contains(t, errs, "Invalid type foo specified for parameter p within test")
	assert.Contains(t, errs, "Value '5' violates minimum value 10 in parameter p within test")
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, 1, compareValues("18446744073709551615", "9223372036854775807", TypeLongInt))
	assert.Equal(t, -1, compareValues("-9223372036854775808", "0", TypeLongInt))
	// Text that is not an integer reads as zero.
	assert.Equal(t, 0, compareValues("99999999999999999999999", "0", TypeLongInt))
	assert.Equal(t, 0, compareValues("abc", "0", TypeInt))
}

func TestBoundaryMustMatchType(t *testing.T) {
	v := NewCore(nil, nil, ipxact.Std14)
	p := ipxact.Parameter{Name: "p", Type: "byte", Value: "1", Minimum: "-200"}

	assert.False(t, v.HasValidMinimumValue(&p))
	assert.True(t, v.HasValidMaximumValue(&p))
	assert.Contains(t, v.FindErrorsIn(nil, &p, "test"),
		"Minimum value -200 is not valid for format  in parameter p within test")
}

func TestVectors(t *testing.T) {
	tests := []struct {
		name string
		rev  ipxact.Revision
		p    ipxact.Parameter
		want bool
		msg  string
	}{
		{
			name: "no vector",
			rev:  ipxact.Std14,
			p:    ipxact.Parameter{Name: "p", Type: "int", Value: "1"},
			want: true,
		},
		{
			name: "bit vector",
			rev:  ipxact.Std14,
			p:    ipxact.Parameter{Name: "p", Type: "bit", Value: "1", Vectors: []ipxact.Vector{{Left: "7", Right: "0"}}},
			want: true,
		},
		{
			name: "vector on int",
			rev:  ipxact.Std14,
			p:    ipxact.Parameter{Name: "p", Type: "int", Value: "1", Vectors: []ipxact.Vector{{Left: "7", Right: "0"}}},
			msg:  "Invalid bit vector values specified for parameter p within test",
		},
		{
			name: "vector bound not an integer",
			rev:  ipxact.Std14,
			p:    ipxact.Parameter{Name: "p", Type: "bit", Value: "1", Vectors: []ipxact.Vector{{Left: "1.5", Right: "0"}}},
			msg:  "Invalid bit vector values specified for parameter p within test",
		},
		{
			name: "vector id before 2022",
			rev:  ipxact.Std14,
			p:    ipxact.Parameter{Name: "p", Type: "bit", Value: "1", Vectors: []ipxact.Vector{{ID: "v0", Left: "7", Right: "0"}}},
			msg:  "Vector ID specified for parameter p within test not using IP-XACT standard revision 2022",
		},
		{
			name: "vector id in 2022",
			rev:  ipxact.Std22,
			p:    ipxact.Parameter{Name: "p", Type: "bit", Value: "1", Vectors: []ipxact.Vector{{ID: "v0", Left: "7", Right: "0"}}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewCore(nil, nil, tt.rev)
			assert.Equal(t, tt.want, v.HasValidVector(&tt.p))
			errs := v.FindErrorsIn(nil, &tt.p, "test")
			if tt.want {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, errs, tt.msg)
			}
		})
	}
}

func TestChoices(t *testing.T) {
	choices := []ipxact.Choice{
		{Name: "choice1", Enumerations: []ipxact.Enumeration{{Value: "0"}, {Value: "1"}}},
		{Name: "sizes", Enumerations: []ipxact.Enumeration{{Value: "4"}}},
	}

	tests := []struct {
		name  string
		rev   ipxact.Revision
		param ipxact.Parameter
		want  bool
	}{
		{"no choice", ipxact.Std14, ipxact.Parameter{Name: "p", Value: "7"}, true},
		{"scalar member", ipxact.Std14, ipxact.Parameter{Name: "p", Value: "1", ChoiceRef: "choice1"}, true},
		{"scalar not a member", ipxact.Std14, ipxact.Parameter{Name: "p", Value: "2", ChoiceRef: "choice1"}, false},
		{"array subset", ipxact.Std14, ipxact.Parameter{Name: "p", Value: "{0,1}", ChoiceRef: "choice1"}, true},
		{"array with unknown element", ipxact.Std14, ipxact.Parameter{Name: "p", Value: "{0,1,2}", ChoiceRef: "choice1"}, false},
		{"unknown choice", ipxact.Std14, ipxact.Parameter{Name: "p", Value: "1", ChoiceRef: "missing"}, false},
		{"raw value before 2022", ipxact.Std14, ipxact.Parameter{Name: "p", Value: "2+2", ChoiceRef: "sizes"}, false},
		{"evaluated value in 2022", ipxact.Std22, ipxact.Parameter{Name: "p", Value: "2+2", ChoiceRef: "sizes"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewCore(nil, choices, tt.rev)
			assert.Equal(t, tt.want, v.HasValidValueForChoice(&tt.param))
		})
	}

	t.Run("message names choice and parameter", func(t *testing.T) {
		v := NewCore(nil, choices, ipxact.Std14)
		p := ipxact.Parameter{Name: "p", Value: "{0,1,2}", ChoiceRef: "choice1"}
		assert.False(t, v.Validate(&p))
		assert.Equal(t, []string{
			"Value '{0,1,2}' references unknown enumeration for choice choice1 in parameter p within test",
		}, v.FindErrorsIn(nil, &p, "test"))
	})

	t.Run("component change swaps choices", func(t *testing.T) {
		v := NewCore(nil, nil, ipxact.Std14)
		p := ipxact.Parameter{Name: "p", Value: "1", ChoiceRef: "choice1"}
		assert.False(t, v.HasValidChoice(&p))
		v.ComponentChange(choices)
		assert.True(t, v.HasValidChoice(&p))
	})
}

func TestResolveAndID(t *testing.T) {
	tests := []struct {
		resolve string
		id      string
		valid   bool
		idValid bool
	}{
		{"", "", true, true},
		{"immediate", "", true, true},
		{"user", "", true, false},
		{"user", "id0", true, true},
		{"generated", "", true, false},
		{"dependent", "id0", false, true},
		{"bogus", "", false, true},
	}

	v := NewCore(nil, nil, ipxact.Std14)
	for _, tt := range tests {
		t.Run(tt.resolve+"/"+tt.id, func(t *testing.T) {
			p := ipxact.Parameter{Name: "p", Value: "1", Resolve: tt.resolve, ID: tt.id}
			assert.Equal(t, tt.valid, v.HasValidResolve(&p))
			assert.Equal(t, tt.idValid, v.HasValidValueID(&p))
		})
	}

	p := ipxact.Parameter{Name: "width", Value: "1", Resolve: "user"}
	assert.Contains(t, v.FindErrorsIn(nil, &p, "test"),
		"No identifier specified for parameter width with resolve user within test")
}

func TestFindErrorsInAccumulates(t *testing.T) {
	v := NewCore(nil, nil, ipxact.Std14)
	p := ipxact.Parameter{Type: "byte", Value: "200", Resolve: "bogus", Element: "moduleParameter"}

	errs := v.FindErrorsIn([]string{"earlier"}, &p, "component a:b:c:1.0")
	assert.Equal(t, []string{
		"earlier",
		"No valid name specified for moduleParameter  within component a:b:c:1.0",
		"Value '200' is not valid for type byte in moduleParameter  within component a:b:c:1.0",
		"Invalid resolve bogus specified for moduleParameter  within component a:b:c:1.0",
	}, errs)
}

func TestEmptyValue(t *testing.T) {
	v := NewCore(nil, nil, ipxact.Std14)
	p := ipxact.Parameter{Name: "p", Type: "int", Minimum: "10"}

	assert.False(t, v.HasValidValue(&p))
	assert.Equal(t, []string{"No value specified for parameter p within test"}, v.FindErrorsIn(nil, &p, "test"))
}

func TestReferencedValues(t *testing.T) {
	parser := expression.NewIPXactParser(expression.MapFinder{"width": "8", "depth": "width*4"})
	v := NewCore(parser, nil, ipxact.Std22)

	p := ipxact.Parameter{Name: "p", Type: "int", Value: "depth", Minimum: "width*8"}
	assert.True(t, v.HasValidValueForType(p.Value, p.Type))
	assert.True(t, v.ValueIsLessThanMinimum(&p))

	errs := v.FindErrorsIn(nil, &p, "test")
	require.Len(t, errs, 1)
	assert.Equal(t, "Value 'depth' violates minimum value width*8 in parameter p within test", errs[0])
}

func TestNewSelectsByRevision(t *testing.T) {
	assert.IsType(t, &Legacy{}, New(nil, nil, ipxact.Std10))
	assert.IsType(t, &Core{}, New(nil, nil, ipxact.Std14))
	assert.IsType(t, &Core{}, New(nil, nil, ipxact.Std22))
}

func TestScenarios(t *testing.T) {
	core := NewCore(nil, []ipxact.Choice{
		{Name: "choice1", Enumerations: []ipxact.Enumeration{{Value: "0"}, {Value: "1"}}},
	}, ipxact.Std14)

	bit := ipxact.Parameter{Name: "p", Type: "bit", Value: "1011"}
	assert.True(t, core.Validate(&bit))

	byteParam := ipxact.Parameter{Name: "p", Type: "byte", Value: "200"}
	assert.False(t, core.Validate(&byteParam))

	long := ipxact.Parameter{Name: "p", Format: "long", Minimum: "1k", Value: "1024"}
	assert.True(t, NewLegacy(nil).Validate(&long))

	untyped := ipxact.Parameter{Name: "p", Minimum: "100", Value: "50"}
	assert.True(t, core.Validate(&untyped))

	user := ipxact.Parameter{Name: "p", Value: "1", Resolve: "user"}
	assert.False(t, core.HasValidValueID(&user))

	choice := ipxact.Parameter{Name: "p", Value: "{0,1,2}", ChoiceRef: "choice1"}
	assert.False(t, core.Validate(&choice))
}
