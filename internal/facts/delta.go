package facts

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// IsEmpty reports whether the delta carries no rows at all.
func (d Delta) IsEmpty() bool {
	return d.Added.Len() == 0 && d.Removed.Len() == 0
}

// Len counts the rows of all relations.
func (t Tables) Len() int {
	return len(t.Documents) + len(t.Parameters) + len(t.Instances) + len(t.HierarchyRefs) +
		len(t.DesignRefs) + len(t.ViewConfigs) + len(t.Diagnostics)
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Documents = diffRows(from.Documents, to.Documents, func(r DocumentRow) string {
		return r.VLNV + "|" + r.Kind + "|" + r.Path + "|" + r.Revision + "|" + boolKey(r.IsThirdParty)
	})
	out.Parameters = diffRows(from.Parameters, to.Parameters, func(r ParameterRow) string {
		return r.Document + "|" + r.ID + "|" + r.Name + "|" + r.Element + "|" + r.Type + "|" + r.Value + "|" + r.Resolved
	})
	out.Instances = diffRows(from.Instances, to.Instances, func(r InstanceRow) string {
		return r.Design + "|" + r.Name + "|" + r.UUID + "|" + r.ComponentRef + "|" + r.TargetKind
	})
	out.HierarchyRefs = diffRows(from.HierarchyRefs, to.HierarchyRefs, func(r HierarchyRefRow) string {
		return r.Component + "|" + r.View + "|" + r.Target + "|" + r.TargetKind
	})
	out.DesignRefs = diffRows(from.DesignRefs, to.DesignRefs, func(r DesignRefRow) string {
		return r.DesignConfiguration + "|" + r.Design + "|" + r.TargetKind
	})
	out.ViewConfigs = diffRows(from.ViewConfigs, to.ViewConfigs, func(r ViewConfigRow) string {
		return r.DesignConfiguration + "|" + r.Instance + "|" + r.View + "|" + r.Key
	})
	out.Diagnostics = diffRows(from.Diagnostics, to.Diagnostics, func(r DiagnosticRow) string {
		return r.Document + "|" + r.Source + "|" + r.Subject + "|" + r.Severity + "|" + r.Message
	})

	return out
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	var diff []T
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
