package facts

import "testing"

func TestFilterTablesByDocuments(t *testing.T) {
	tables := Tables{
		Documents: []DocumentRow{
			{VLNV: "acme:ip:a:1.0"},
			{VLNV: "acme:ip:b:1.0"},
		},
		Parameters: []ParameterRow{
			{Document: "acme:ip:a:1.0", ID: "w"},
			{Document: "acme:ip:b:1.0", ID: "d"},
		},
		Instances: []InstanceRow{
			{Design: "acme:ip:a:1.0", Name: "u0"},
			{Design: "acme:ip:b:1.0", Name: "u1"},
		},
		Diagnostics: []DiagnosticRow{
			{Document: "acme:ip:a:1.0", Message: "one"},
			{Document: "acme:ip:b:1.0", Message: "two"},
		},
	}

	filtered := FilterTablesByDocuments(tables, map[string]bool{"acme:ip:a:1.0": true})

	if len(filtered.Documents) != 1 || filtered.Documents[0].VLNV != "acme:ip:a:1.0" {
		t.Fatalf("expected only document a, got %#v", filtered.Documents)
	}
	if len(filtered.Parameters) != 1 || filtered.Parameters[0].ID != "w" {
		t.Fatalf("expected only parameters of a, got %#v", filtered.Parameters)
	}
	if len(filtered.Instances) != 1 || filtered.Instances[0].Name != "u0" {
		t.Fatalf("expected only instances of a, got %#v", filtered.Instances)
	}
	if len(filtered.Diagnostics) != 1 || filtered.Diagnostics[0].Message != "one" {
		t.Fatalf("expected only diagnostics of a, got %#v", filtered.Diagnostics)
	}
}

func TestFilterDeltaByDocumentsEmpty(t *testing.T) {
	delta := Delta{
		Added: Tables{
			Documents: []DocumentRow{{VLNV: "acme:ip:a:1.0"}},
		},
		Removed: Tables{
			Documents: []DocumentRow{{VLNV: "acme:ip:b:1.0"}},
		},
	}

	filtered := FilterDeltaByDocuments(delta, map[string]bool{})
	if len(filtered.Added.Documents) != 0 || len(filtered.Removed.Documents) != 0 {
		t.Fatalf("expected empty delta, got %#v", filtered)
	}
}

func TestNormalizedReplacesNilRelations(t *testing.T) {
	tables := Tables{Documents: []DocumentRow{{VLNV: "acme:ip:a:1.0"}}}.Normalized()
	if len(tables.Documents) != 1 {
		t.Fatalf("expected rows to be kept, got %#v", tables.Documents)
	}
	if tables.Parameters == nil || tables.Instances == nil || tables.HierarchyRefs == nil ||
		tables.DesignRefs == nil || tables.ViewConfigs == nil || tables.Diagnostics == nil {
		t.Fatalf("expected empty relations, got %#v", tables)
	}
}
