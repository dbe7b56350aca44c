package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/expression"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/library"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// Tables is the relational fact model handed to the policy engine.
// Each slice is a relation (table) with flat rows. Documents are referred to
// by their "vendor:library:name:version" text.
type Tables struct {
	Documents     []DocumentRow     `json:"documents"`
	Parameters    []ParameterRow    `json:"parameters"`
	Instances     []InstanceRow     `json:"instances"`
	HierarchyRefs []HierarchyRefRow `json:"hierarchy_refs"`
	DesignRefs    []DesignRefRow    `json:"design_refs"`
	ViewConfigs   []ViewConfigRow   `json:"view_configs"`
	Diagnostics   []DiagnosticRow   `json:"diagnostics"`
}

type DocumentRow struct {
	VLNV         string `json:"vlnv"`
	Kind         string `json:"kind"`
	Path         string `json:"path"`
	Revision     string `json:"revision"`
	IsThirdParty bool   `json:"is_third_party"`
}

type ParameterRow struct {
	Document string `json:"document"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Element  string `json:"element"`
	Type     string `json:"type"`
	Value    string `json:"value"`
	Resolved string `json:"resolved"`
}

// InstanceRow is one component instance of a design. TargetKind is the
// document type the reference resolves to, empty when it is not in the
// library.
type InstanceRow struct {
	Design       string `json:"design"`
	Name         string `json:"name"`
	UUID         string `json:"uuid"`
	ComponentRef string `json:"component_ref"`
	TargetKind   string `json:"target_kind"`
}

type HierarchyRefRow struct {
	Component  string `json:"component"`
	View       string `json:"view"`
	Target     string `json:"target"`
	TargetKind string `json:"target_kind"`
}

type DesignRefRow struct {
	DesignConfiguration string `json:"design_configuration"`
	Design              string `json:"design"`
	TargetKind          string `json:"target_kind"`
}

// ViewConfigRow selects the view of an instance. Key is "name" for view
// configurations and "uuid" for overrides keyed by instance UUID.
type ViewConfigRow struct {
	DesignConfiguration string `json:"design_configuration"`
	Instance            string `json:"instance"`
	View                string `json:"view"`
	Key                 string `json:"key"`
}

// DiagnosticRow is a message produced before policy evaluation: validator
// findings, walker errors and load failures.
type DiagnosticRow struct {
	Document string `json:"document"`
	Source   string `json:"source"`
	Subject  string `json:"subject"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// BuildTables reads every listed document from lib and flattens it into
// relations. Documents that fail to load only contribute their document row.
// Diagnostics are copied through.
func BuildTables(lib library.Library, ids []vlnv.VLNV, thirdParty map[string]bool, diagnostics []DiagnosticRow) Tables {
	tables := emptyTables()
	kind := func(v vlnv.VLNV) string {
		if !lib.Contains(v) {
			return ""
		}
		return lib.GetDocumentType(v).String()
	}

	for _, id := range ids {
		path := lib.GetPath(id)
		row := DocumentRow{
			VLNV:         id.String(),
			Kind:         lib.GetDocumentType(id).String(),
			Path:         path,
			Revision:     ipxact.RevisionUnknown.String(),
			IsThirdParty: thirdParty[path],
		}
		doc, err := lib.GetModel(id)
		if err != nil {
			tables.Documents = append(tables.Documents, row)
			continue
		}
		row.Revision = doc.StdRevision().String()
		tables.Documents = append(tables.Documents, row)

		switch d := doc.(type) {
		case *ipxact.Component:
			parser := expression.NewIPXactParser(expression.NewComponentFinder(d))
			d.AllParameters(func(p *ipxact.Parameter) {
				tables.Parameters = append(tables.Parameters, ParameterRow{
					Document: row.VLNV,
					ID:       p.ID,
					Name:     p.Name,
					Element:  p.ElementName(),
					Type:     p.Type,
					Value:    p.Value,
					Resolved: parser.ParseExpression(p.Value),
				})
			})
			for _, view := range d.HierarchicalViewNames() {
				ref := d.HierarchyRef(view)
				tables.HierarchyRefs = append(tables.HierarchyRefs, HierarchyRefRow{
					Component:  row.VLNV,
					View:       view,
					Target:     ref.String(),
					TargetKind: kind(ref),
				})
			}
		case *ipxact.Design:
			for _, inst := range d.Instances {
				tables.Instances = append(tables.Instances, InstanceRow{
					Design:       row.VLNV,
					Name:         inst.Name,
					UUID:         inst.UUID,
					ComponentRef: inst.ComponentRef.String(),
					TargetKind:   kind(inst.ComponentRef),
				})
			}
		case *ipxact.DesignConfiguration:
			tables.DesignRefs = append(tables.DesignRefs, DesignRefRow{
				DesignConfiguration: row.VLNV,
				Design:              d.DesignRef.String(),
				TargetKind:          kind(d.DesignRef),
			})
			for _, vc := range d.ViewConfigurations {
				tables.ViewConfigs = append(tables.ViewConfigs, ViewConfigRow{
					DesignConfiguration: row.VLNV,
					Instance:            vc.InstanceName,
					View:                vc.ViewName,
					Key:                 "name",
				})
			}
			for uuid, view := range d.ViewOverrides {
				tables.ViewConfigs = append(tables.ViewConfigs, ViewConfigRow{
					DesignConfiguration: row.VLNV,
					Instance:            uuid,
					View:                view,
					Key:                 "uuid",
				})
			}
		}
	}
	tables.Diagnostics = append(tables.Diagnostics, diagnostics...)

	sort.SliceStable(tables.Documents, func(i, j int) bool { return tables.Documents[i].VLNV < tables.Documents[j].VLNV })
	sort.SliceStable(tables.ViewConfigs, func(i, j int) bool {
		a, b := tables.ViewConfigs[i], tables.ViewConfigs[j]
		if a.DesignConfiguration != b.DesignConfiguration {
			return a.DesignConfiguration < b.DesignConfiguration
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Instance < b.Instance
	})

	return tables
}

func emptyTables() Tables {
	return Tables{
		Documents:     []DocumentRow{},
		Parameters:    []ParameterRow{},
		Instances:     []InstanceRow{},
		HierarchyRefs: []HierarchyRefRow{},
		DesignRefs:    []DesignRefRow{},
		ViewConfigs:   []ViewConfigRow{},
		Diagnostics:   []DiagnosticRow{},
	}
}

// Normalized returns t with nil relations replaced by empty ones, so every
// table marshals as a JSON array.
func (t Tables) Normalized() Tables {
	out := emptyTables()
	out.Documents = append(out.Documents, t.Documents...)
	out.Parameters = append(out.Parameters, t.Parameters...)
	out.Instances = append(out.Instances, t.Instances...)
	out.HierarchyRefs = append(out.HierarchyRefs, t.HierarchyRefs...)
	out.DesignRefs = append(out.DesignRefs, t.DesignRefs...)
	out.ViewConfigs = append(out.ViewConfigs, t.ViewConfigs...)
	out.Diagnostics = append(out.Diagnostics, t.Diagnostics...)
	return out
}
