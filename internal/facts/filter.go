package facts

// FilterTablesByDocuments returns a new Tables object containing only rows
// owned by a document in the provided set. Keys are VLNV strings.
func FilterTablesByDocuments(tables Tables, docs map[string]bool) Tables {
	out := emptyTables()
	if len(docs) == 0 {
		return out
	}

	for _, row := range tables.Documents {
		if docs[row.VLNV] {
			out.Documents = append(out.Documents, row)
		}
	}
	for _, row := range tables.Parameters {
		if docs[row.Document] {
			out.Parameters = append(out.Parameters, row)
		}
	}
	for _, row := range tables.Instances {
		if docs[row.Design] {
			out.Instances = append(out.Instances, row)
		}
	}
	for _, row := range tables.HierarchyRefs {
		if docs[row.Component] {
			out.HierarchyRefs = append(out.HierarchyRefs, row)
		}
	}
	for _, row := range tables.DesignRefs {
		if docs[row.DesignConfiguration] {
			out.DesignRefs = append(out.DesignRefs, row)
		}
	}
	for _, row := range tables.ViewConfigs {
		if docs[row.DesignConfiguration] {
			out.ViewConfigs = append(out.ViewConfigs, row)
		}
	}
	for _, row := range tables.Diagnostics {
		if docs[row.Document] {
			out.Diagnostics = append(out.Diagnostics, row)
		}
	}

	return out
}

// FilterDeltaByDocuments returns a new Delta containing only rows for the specified documents.
func FilterDeltaByDocuments(delta Delta, docs map[string]bool) Delta {
	return Delta{
		Added:   FilterTablesByDocuments(delta.Added, docs),
		Removed: FilterTablesByDocuments(delta.Removed, docs),
	}
}
