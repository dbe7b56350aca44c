package contract

import (
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/facts"
)

func validTables() facts.Tables {
	return facts.Tables{
		Documents: []facts.DocumentRow{{
			VLNV:     "acme:ip:top:1.0",
			Kind:     "COMPONENT",
			Path:     "lib/top.xml",
			Revision: "2014",
		}},
		Parameters: []facts.ParameterRow{{
			Document: "acme:ip:top:1.0",
			ID:       "id_width",
			Name:     "WIDTH",
			Element:  "parameter",
			Type:     "int",
			Value:    "8",
			Resolved: "8",
		}},
		Instances: []facts.InstanceRow{{
			Design:       "acme:ip:top.design:1.0",
			Name:         "u_gone",
			ComponentRef: "acme:ip:gone:1.0",
		}},
		HierarchyRefs: []facts.HierarchyRefRow{},
		DesignRefs:    []facts.DesignRefRow{},
		ViewConfigs:   []facts.ViewConfigRow{},
		Diagnostics: []facts.DiagnosticRow{{
			Document: "acme:ip:top:1.0",
			Source:   "parameter",
			Subject:  "WIDTH",
			Severity: "error",
			Message:  "No value specified for parameter WIDTH within component acme:ip:top:1.0",
		}},
	}
}

func TestFactsValidatorAcceptsValidTables(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}
	if err := v.Validate(validTables()); err != nil {
		t.Fatalf("expected valid tables, got error: %v", err)
	}
}

func TestFactsValidatorRejectsInvalidTables(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*facts.Tables)
	}{
		{
			name:   "malformed_vlnv",
			mutate: func(tb *facts.Tables) { tb.Documents[0].VLNV = "acme:ip:top" },
		},
		{
			name:   "unknown_kind",
			mutate: func(tb *facts.Tables) { tb.Documents[0].Kind = "ENTITY" },
		},
		{
			name:   "unknown_revision",
			mutate: func(tb *facts.Tables) { tb.Documents[0].Revision = "2005" },
		},
		{
			name:   "empty_element",
			mutate: func(tb *facts.Tables) { tb.Parameters[0].Element = "" },
		},
		{
			name:   "unknown_diagnostic_source",
			mutate: func(tb *facts.Tables) { tb.Diagnostics[0].Source = "walker" },
		},
		{
			name:   "bad_view_config_key",
			mutate: func(tb *facts.Tables) { tb.ViewConfigs = []facts.ViewConfigRow{{DesignConfiguration: "a:b:c:d", Key: "index"}} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := validTables()
			tt.mutate(&tables)
			if err := v.Validate(tables); err == nil {
				t.Fatalf("expected validation error, got nil")
			}
		})
	}
}

func TestFactsValidatorRejectsUnknownFields(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	data := []byte(`{"documents":[{"vlnv":"a:b:c:d","kind":"COMPONENT","path":"","revision":"2014","is_third_party":false,"line":3}]}`)
	err = v.ValidateJSON(data)
	if err == nil {
		t.Fatal("expected closed definition to reject field")
	}
	if !strings.Contains(err.Error(), "line") {
		t.Fatalf("expected error to name the field, got %v", err)
	}
}
