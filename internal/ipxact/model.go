// Package ipxact holds the in-memory IP-XACT document model (components,
// designs, design configurations and the definitions they reference) and the
// reader that builds it from XML.
package ipxact

import (
	"strings"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// Revision is the IP-XACT schema generation a document was written against.
type Revision int

const (
	RevisionUnknown Revision = iota
	// Std10 is the SPIRIT 1.x / IEEE 1685-2009 generation with format based parameters.
	Std10
	Std14
	Std22
)

// String returns the short revision name used in configuration files.
func (r Revision) String() string {
	switch r {
	case Std10:
		return "1.0"
	case Std14:
		return "2014"
	case Std22:
		return "2022"
	}
	return "unknown"
}

// ParseRevision accepts "2014", "2022", "1685-2014", "1.5", "2009", "legacy" and friends.
func ParseRevision(s string) Revision {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasSuffix(s, "2022") || s == "22":
		return Std22
	case strings.HasSuffix(s, "2014") || s == "14":
		return Std14
	case s == "1.0" || s == "1.4" || s == "1.5" || strings.HasSuffix(s, "2009") || s == "legacy" || s == "spirit":
		return Std10
	}
	return RevisionUnknown
}

// Document is any top level IP-XACT document held in a library.
type Document interface {
	Identity() vlnv.VLNV
	StdRevision() Revision
}

// Header carries the identity shared by every document.
type Header struct {
	VLNV        vlnv.VLNV
	Revision    Revision
	Description string
}

// Identity returns the VLNV of the document.
func (h Header) Identity() vlnv.VLNV { return h.VLNV }

// StdRevision returns the schema revision of the document.
func (h Header) StdRevision() Revision { return h.Revision }

// Vector is a left/right bound pair. ID is only allowed in 2022 documents.
type Vector struct {
	ID    string
	Left  string
	Right string
}

// Parameter is a named, typed value. Type is used by 2014/2022 documents and
// Format by 1.x documents; the validators pick the one their revision uses.
type Parameter struct {
	ID              string
	Name            string
	DisplayName     string
	Description     string
	Value           string
	Type            string
	Format          string
	BitStringLength string
	Minimum         string
	Maximum         string
	ChoiceRef       string
	Resolve         string
	Vectors         []Vector
	// Element is the XML element the parameter was read from, e.g.
	// "moduleParameter". Empty means "parameter".
	Element string
}

// ElementName is the noun used for the parameter in diagnostics.
func (p *Parameter) ElementName() string {
	if p.Element == "" {
		return "parameter"
	}
	return p.Element
}

// VectorLeft returns the left bound of the first vector, or "".
func (p *Parameter) VectorLeft() string {
	if len(p.Vectors) == 0 {
		return ""
	}
	return p.Vectors[0].Left
}

// VectorRight returns the right bound of the first vector, or "".
func (p *Parameter) VectorRight() string {
	if len(p.Vectors) == 0 {
		return ""
	}
	return p.Vectors[0].Right
}

// Enumeration is one allowed value of a Choice.
type Enumeration struct {
	Value string
	Text  string
	Help  string
}

// Choice is a named set of enumerations a parameter may be constrained to.
type Choice struct {
	Name         string
	Enumerations []Enumeration
}

// HasEnumeration reports whether value is one of the choice's enumeration
// values. Comparison is exact; no trimming or case folding.
func (c *Choice) HasEnumeration(value string) bool {
	for _, e := range c.Enumerations {
		if e.Value == value {
			return true
		}
	}
	return false
}

// FindChoice returns the choice with the given name, or nil.
func FindChoice(choices []Choice, name string) *Choice {
	for i := range choices {
		if choices[i].Name == name {
			return &choices[i]
		}
	}
	return nil
}

// File is one entry of a file set.
type File struct {
	Name          string
	FileTypes     []string
	IsIncludeFile bool
}

// FileSet groups files referenced by component instantiations or views.
type FileSet struct {
	Name  string
	Files []File
}

// View selects how a component is realised. In 2014/2022 documents the view
// references instantiations by name; 1.x views carry their hierarchy
// reference and file set references directly.
type View struct {
	Name                                string
	EnvIdentifiers                      []string
	ComponentInstantiationRef           string
	DesignInstantiationRef              string
	DesignConfigurationInstantiationRef string

	HierarchyRef vlnv.VLNV
	FileSetRefs  []string
}

// ComponentInstantiation describes a flat implementation of a view.
type ComponentInstantiation struct {
	Name             string
	Language         string
	ModuleName       string
	FileSetRefs      []string
	Parameters       []Parameter
	ModuleParameters []Parameter
}

// DesignInstantiation points a view at a design.
type DesignInstantiation struct {
	Name      string
	DesignRef vlnv.VLNV
}

// DesignConfigurationInstantiation points a view at a design configuration.
type DesignConfigurationInstantiation struct {
	Name                   string
	DesignConfigurationRef vlnv.VLNV
	Parameters             []Parameter
}

// Port is a component port. Left/Right are the wire vector bounds, empty for
// scalar ports.
type Port struct {
	Name      string
	Direction string
	Left      string
	Right     string
}

// BusInterface is a component bus interface.
type BusInterface struct {
	Name       string
	BusType    vlnv.VLNV
	Parameters []Parameter
}

// Field is a register bit field.
type Field struct {
	Name      string
	BitOffset string
	BitWidth  string
}

// Register holds fields and register level parameters.
type Register struct {
	Name       string
	Parameters []Parameter
	Fields     []Field
}

// AddressBlock groups registers inside a memory map.
type AddressBlock struct {
	Name      string
	Registers []Register
}

// MemoryMap is a named set of address blocks.
type MemoryMap struct {
	Name          string
	AddressBlocks []AddressBlock
}

// AddressSpace may own a local memory map.
type AddressSpace struct {
	Name           string
	LocalMemoryMap *MemoryMap
}

// PortSlice is a 2022 mode port condition.
type PortSlice struct {
	Name    string
	PortRef string
	Left    string
	Right   string
}

// FieldReference addresses a register field either through an address space's
// local memory map or through a memory map.
type FieldReference struct {
	AddressSpace string
	MemoryMap    string
	AddressBlock string
	Register     string
	Field        string
}

// FieldSlice is a 2022 mode field condition.
type FieldSlice struct {
	Name  string
	Ref   FieldReference
	Left  string
	Right string
}

// Mode is a 2022 component operating mode.
type Mode struct {
	Name        string
	Condition   string
	PortSlices  []PortSlice
	FieldSlices []FieldSlice
}

// Component is an IP-XACT component.
type Component struct {
	Header
	Parameters                        []Parameter
	Choices                           []Choice
	Views                             []View
	ComponentInstantiations           []ComponentInstantiation
	DesignInstantiations              []DesignInstantiation
	DesignConfigurationInstantiations []DesignConfigurationInstantiation
	FileSets                          []FileSet
	Ports                             []Port
	BusInterfaces                     []BusInterface
	AddressSpaces                     []AddressSpace
	MemoryMaps                        []MemoryMap
	Modes                             []Mode
}

// View returns the view with the given name, or nil.
func (c *Component) View(name string) *View {
	for i := range c.Views {
		if c.Views[i].Name == name {
			return &c.Views[i]
		}
	}
	return nil
}

// FileSet returns the file set with the given name, or nil.
func (c *Component) FileSet(name string) *FileSet {
	for i := range c.FileSets {
		if c.FileSets[i].Name == name {
			return &c.FileSets[i]
		}
	}
	return nil
}

// Port returns the port with the given name, or nil.
func (c *Component) Port(name string) *Port {
	for i := range c.Ports {
		if c.Ports[i].Name == name {
			return &c.Ports[i]
		}
	}
	return nil
}

func (c *Component) componentInstantiation(name string) *ComponentInstantiation {
	for i := range c.ComponentInstantiations {
		if c.ComponentInstantiations[i].Name == name {
			return &c.ComponentInstantiations[i]
		}
	}
	return nil
}

// HierarchyRef returns the design or design configuration referenced by the
// named view, or an empty VLNV for flat views. A design configuration
// reference takes precedence over a design reference.
func (c *Component) HierarchyRef(viewName string) vlnv.VLNV {
	view := c.View(viewName)
	if view == nil {
		return vlnv.VLNV{}
	}
	if !view.HierarchyRef.IsEmpty() {
		return view.HierarchyRef
	}
	if view.DesignConfigurationInstantiationRef != "" {
		for _, inst := range c.DesignConfigurationInstantiations {
			if inst.Name == view.DesignConfigurationInstantiationRef {
				return inst.DesignConfigurationRef
			}
		}
	}
	if view.DesignInstantiationRef != "" {
		for _, inst := range c.DesignInstantiations {
			if inst.Name == view.DesignInstantiationRef {
				return inst.DesignRef
			}
		}
	}
	return vlnv.VLNV{}
}

// IsHierarchicalView reports whether the named view references a design or
// design configuration.
func (c *Component) IsHierarchicalView(viewName string) bool {
	return !c.HierarchyRef(viewName).IsEmpty()
}

// HierarchicalViewNames lists the views that reference a hierarchy.
func (c *Component) HierarchicalViewNames() []string {
	var names []string
	for _, v := range c.Views {
		if c.IsHierarchicalView(v.Name) {
			names = append(names, v.Name)
		}
	}
	return names
}

// HierarchicalRefs returns the distinct hierarchy references of all views in
// view order.
func (c *Component) HierarchicalRefs() []vlnv.VLNV {
	var refs []vlnv.VLNV
	seen := make(map[vlnv.VLNV]bool)
	for _, v := range c.Views {
		ref := c.HierarchyRef(v.Name)
		if ref.IsEmpty() || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// FileSetRefs returns the file sets used by a view: its own references
// followed by those of the component instantiation it points at.
func (c *Component) FileSetRefs(viewName string) []string {
	view := c.View(viewName)
	if view == nil {
		return nil
	}
	refs := append([]string(nil), view.FileSetRefs...)
	if inst := c.componentInstantiation(view.ComponentInstantiationRef); inst != nil {
		refs = append(refs, inst.FileSetRefs...)
	}
	return refs
}

// AllParameters visits every parameter owned by the component: component
// parameters, instantiation and module parameters, bus interface parameters
// and register parameters. The callback receives a pointer into the model.
func (c *Component) AllParameters(fn func(*Parameter)) {
	for i := range c.Parameters {
		fn(&c.Parameters[i])
	}
	for i := range c.ComponentInstantiations {
		inst := &c.ComponentInstantiations[i]
		for j := range inst.Parameters {
			fn(&inst.Parameters[j])
		}
		for j := range inst.ModuleParameters {
			fn(&inst.ModuleParameters[j])
		}
	}
	for i := range c.DesignConfigurationInstantiations {
		inst := &c.DesignConfigurationInstantiations[i]
		for j := range inst.Parameters {
			fn(&inst.Parameters[j])
		}
	}
	for i := range c.BusInterfaces {
		bi := &c.BusInterfaces[i]
		for j := range bi.Parameters {
			fn(&bi.Parameters[j])
		}
	}
	visitMap := func(mm *MemoryMap) {
		for b := range mm.AddressBlocks {
			block := &mm.AddressBlocks[b]
			for r := range block.Registers {
				reg := &block.Registers[r]
				for j := range reg.Parameters {
					fn(&reg.Parameters[j])
				}
			}
		}
	}
	for i := range c.MemoryMaps {
		visitMap(&c.MemoryMaps[i])
	}
	for i := range c.AddressSpaces {
		if c.AddressSpaces[i].LocalMemoryMap != nil {
			visitMap(c.AddressSpaces[i].LocalMemoryMap)
		}
	}
}

// ComponentInstance is one instance inside a design.
type ComponentInstance struct {
	Name                      string
	UUID                      string
	DisplayName               string
	Description               string
	ComponentRef              vlnv.VLNV
	ConfigurableElementValues map[string]string
}

// Design is a set of component instances.
type Design struct {
	Header
	Instances []ComponentInstance
}

// ViewConfiguration selects the active view of one instance.
type ViewConfiguration struct {
	InstanceName string
	ViewName     string
}

// DesignConfiguration references a design and selects the active view of its
// instances. ViewOverrides maps instance UUIDs to view names and takes
// precedence over the name keyed view configurations.
type DesignConfiguration struct {
	Header
	DesignRef          vlnv.VLNV
	ViewConfigurations []ViewConfiguration
	ViewOverrides      map[string]string
}

// HasActiveView reports whether a view is configured for the named instance.
func (d *DesignConfiguration) HasActiveView(instanceName string) bool {
	for _, vc := range d.ViewConfigurations {
		if vc.InstanceName == instanceName {
			return true
		}
	}
	return false
}

// ActiveView returns the view configured for the named instance, or "".
func (d *DesignConfiguration) ActiveView(instanceName string) string {
	for _, vc := range d.ViewConfigurations {
		if vc.InstanceName == instanceName {
			return vc.ViewName
		}
	}
	return ""
}

// ViewFor selects the view of an instance: the UUID keyed override first,
// then the name keyed active view.
func (d *DesignConfiguration) ViewFor(inst ComponentInstance) (string, bool) {
	if inst.UUID != "" {
		if view, ok := d.ViewOverrides[inst.UUID]; ok {
			return view, true
		}
	}
	if d.HasActiveView(inst.Name) {
		return d.ActiveView(inst.Name), true
	}
	return "", false
}

// Definition is any other library document (bus, abstraction, API, COM
// definitions, generator chains, abstractors, catalogs). Only its identity is
// modelled.
type Definition struct {
	Header
}
