package ipxact

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// ErrUnknownDocument is returned for XML whose root element is not an IP-XACT document.
var ErrUnknownDocument = errors.New("not an IP-XACT document")

var rootTypes = map[string]vlnv.DocumentType{
	"component":             vlnv.Component,
	"design":                vlnv.Design,
	"designConfiguration":   vlnv.DesignConfiguration,
	"busDefinition":         vlnv.BusDefinition,
	"abstractionDefinition": vlnv.AbstractionDefinition,
	"apiDefinition":         vlnv.APIDefinition,
	"comDefinition":         vlnv.COMDefinition,
	"generatorChain":        vlnv.GeneratorChain,
	"abstractor":            vlnv.Abstractor,
	"catalog":               vlnv.Catalog,
}

// revisionForNamespace maps the root element namespace to a schema revision.
func revisionForNamespace(space string) Revision {
	switch {
	case strings.Contains(space, "1685-2022"):
		return Std22
	case strings.Contains(space, "1685-2014"):
		return Std14
	case strings.Contains(space, "SPIRIT") || strings.Contains(space, "spirit"):
		return Std10
	}
	return RevisionUnknown
}

// ReadFile parses the IP-XACT document stored at path.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// Read parses one IP-XACT document.
func Read(r io.Reader) (Document, error) {
	dec := xml.NewDecoder(r)
	start, err := rootElement(dec)
	if err != nil {
		return nil, err
	}
	docType, ok := rootTypes[start.Name.Local]
	if !ok {
		return nil, fmt.Errorf("%w: root element <%s>", ErrUnknownDocument, start.Name.Local)
	}
	rev := revisionForNamespace(start.Name.Space)

	switch docType {
	case vlnv.Component:
		var x xmlComponent
		if err := dec.DecodeElement(&x, &start); err != nil {
			return nil, fmt.Errorf("decoding component: %w", err)
		}
		return x.toModel(rev), nil
	case vlnv.Design:
		var x xmlDesign
		if err := dec.DecodeElement(&x, &start); err != nil {
			return nil, fmt.Errorf("decoding design: %w", err)
		}
		return x.toModel(rev), nil
	case vlnv.DesignConfiguration:
		var x xmlDesignConfiguration
		if err := dec.DecodeElement(&x, &start); err != nil {
			return nil, fmt.Errorf("decoding design configuration: %w", err)
		}
		return x.toModel(rev), nil
	}

	var x xmlHeader
	if err := dec.DecodeElement(&x, &start); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", start.Name.Local, err)
	}
	return &Definition{Header: x.header(docType, rev)}, nil
}

// ReadIdentity reads only the root element and the VLNV fields that follow
// it, without decoding the rest of the document.
func ReadIdentity(r io.Reader) (vlnv.VLNV, Revision, error) {
	dec := xml.NewDecoder(r)
	start, err := rootElement(dec)
	if err != nil {
		return vlnv.VLNV{}, RevisionUnknown, err
	}
	docType, ok := rootTypes[start.Name.Local]
	if !ok {
		return vlnv.VLNV{}, RevisionUnknown, fmt.Errorf("%w: root element <%s>", ErrUnknownDocument, start.Name.Local)
	}
	id := vlnv.VLNV{Type: docType}
	rev := revisionForNamespace(start.Name.Space)

	depth := 0
	var current string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return vlnv.VLNV{}, rev, fmt.Errorf("reading identity: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				current = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 1 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 1 {
				value := strings.TrimSpace(text.String())
				switch current {
				case "vendor":
					id.Vendor = value
				case "library":
					id.Library = value
				case "name":
					id.Name = value
				case "version":
					id.Version = value
					return id, rev, nil
				}
			}
			depth--
		}
	}
	return id, rev, nil
}

func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, fmt.Errorf("%w: empty document", ErrUnknownDocument)
		}
		if err != nil {
			return xml.StartElement{}, fmt.Errorf("reading root element: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

// =============================================================================
// XML mirror types. Tags carry local names only, so the same structs read
// spirit:, ipxact: and unprefixed documents.
// =============================================================================

type xmlHeader struct {
	Vendor      string `xml:"vendor"`
	Library     string `xml:"library"`
	Name        string `xml:"name"`
	Version     string `xml:"version"`
	Description string `xml:"description"`
}

func (h xmlHeader) header(t vlnv.DocumentType, rev Revision) Header {
	return Header{
		VLNV:        vlnv.New(t, trim(h.Vendor), trim(h.Library), trim(h.Name), trim(h.Version)),
		Revision:    rev,
		Description: trim(h.Description),
	}
}

type xmlVLNVRef struct {
	Vendor  string `xml:"vendor,attr"`
	Library string `xml:"library,attr"`
	Name    string `xml:"name,attr"`
	Version string `xml:"version,attr"`
}

func (r *xmlVLNVRef) toVLNV(t vlnv.DocumentType) vlnv.VLNV {
	if r == nil {
		return vlnv.VLNV{}
	}
	v := vlnv.New(t, trim(r.Vendor), trim(r.Library), trim(r.Name), trim(r.Version))
	if v.IsEmpty() {
		return vlnv.VLNV{}
	}
	return v
}

type xmlVector struct {
	VectorID string `xml:"vectorId,attr"`
	Left     string `xml:"left"`
	Right    string `xml:"right"`
}

type xmlValue struct {
	Text            string `xml:",chardata"`
	Format          string `xml:"format,attr"`
	Resolve         string `xml:"resolve,attr"`
	ID              string `xml:"id,attr"`
	Minimum         string `xml:"minimum,attr"`
	Maximum         string `xml:"maximum,attr"`
	ChoiceRef       string `xml:"choiceRef,attr"`
	BitStringLength string `xml:"bitStringLength,attr"`
}

type xmlParameter struct {
	XMLName     xml.Name
	ParameterID string      `xml:"parameterId,attr"`
	Type        string      `xml:"type,attr"`
	Resolve     string      `xml:"resolve,attr"`
	Minimum     string      `xml:"minimum,attr"`
	Maximum     string      `xml:"maximum,attr"`
	ChoiceRef   string      `xml:"choiceRef,attr"`
	Name        string      `xml:"name"`
	DisplayName string      `xml:"displayName"`
	Description string      `xml:"description"`
	Vectors     []xmlVector `xml:"vectors>vector"`
	Value       xmlValue    `xml:"value"`
}

func (x xmlParameter) toModel() Parameter {
	p := Parameter{
		ID:              firstNonEmpty(x.ParameterID, x.Value.ID),
		Name:            trim(x.Name),
		DisplayName:     trim(x.DisplayName),
		Description:     trim(x.Description),
		Value:           trim(x.Value.Text),
		Type:            x.Type,
		Format:          x.Value.Format,
		BitStringLength: x.Value.BitStringLength,
		Minimum:         firstNonEmpty(x.Minimum, x.Value.Minimum),
		Maximum:         firstNonEmpty(x.Maximum, x.Value.Maximum),
		ChoiceRef:       firstNonEmpty(x.ChoiceRef, x.Value.ChoiceRef),
		Resolve:         firstNonEmpty(x.Resolve, x.Value.Resolve),
	}
	if x.XMLName.Local != "" && x.XMLName.Local != "parameter" {
		p.Element = x.XMLName.Local
	}
	for _, v := range x.Vectors {
		p.Vectors = append(p.Vectors, Vector{ID: v.VectorID, Left: trim(v.Left), Right: trim(v.Right)})
	}
	return p
}

func parameters(xs []xmlParameter) []Parameter {
	if len(xs) == 0 {
		return nil
	}
	out := make([]Parameter, 0, len(xs))
	for _, x := range xs {
		out = append(out, x.toModel())
	}
	return out
}

type xmlEnumeration struct {
	Value string `xml:",chardata"`
	Text  string `xml:"text,attr"`
	Help  string `xml:"help,attr"`
}

type xmlChoice struct {
	Name         string           `xml:"name"`
	Enumerations []xmlEnumeration `xml:"enumeration"`
}

type xmlFile struct {
	Name          string   `xml:"name"`
	FileTypes     []string `xml:"fileType"`
	IsIncludeFile bool     `xml:"isIncludeFile"`
}

type xmlFileSet struct {
	Name  string    `xml:"name"`
	Files []xmlFile `xml:"file"`
}

type xmlFileSetRef struct {
	LocalName string `xml:"localName"`
	Text      string `xml:",chardata"`
}

func (r xmlFileSetRef) name() string {
	return firstNonEmpty(trim(r.LocalName), trim(r.Text))
}

type xmlView struct {
	Name                                string          `xml:"name"`
	EnvIdentifiers                      []string        `xml:"envIdentifier"`
	ComponentInstantiationRef           string          `xml:"componentInstantiationRef"`
	DesignInstantiationRef              string          `xml:"designInstantiationRef"`
	DesignConfigurationInstantiationRef string          `xml:"designConfigurationInstantiationRef"`
	HierarchyRef                        *xmlVLNVRef     `xml:"hierarchyRef"`
	FileSetRefs                         []xmlFileSetRef `xml:"fileSetRef"`
}

type xmlComponentInstantiation struct {
	Name             string          `xml:"name"`
	Language         string          `xml:"language"`
	ModuleName       string          `xml:"moduleName"`
	FileSetRefs      []xmlFileSetRef `xml:"fileSetRef"`
	Parameters       []xmlParameter  `xml:"parameters>parameter"`
	ModuleParameters []xmlParameter  `xml:"moduleParameters>moduleParameter"`
}

type xmlDesignInstantiation struct {
	Name      string      `xml:"name"`
	DesignRef *xmlVLNVRef `xml:"designRef"`
}

type xmlDesignConfigurationInstantiation struct {
	Name                   string         `xml:"name"`
	DesignConfigurationRef *xmlVLNVRef    `xml:"designConfigurationRef"`
	Parameters             []xmlParameter `xml:"parameters>parameter"`
}

type xmlInstantiations struct {
	Component           []xmlComponentInstantiation           `xml:"componentInstantiation"`
	Design              []xmlDesignInstantiation              `xml:"designInstantiation"`
	DesignConfiguration []xmlDesignConfigurationInstantiation `xml:"designConfigurationInstantiation"`
}

type xmlPort struct {
	Name    string      `xml:"name"`
	Wire    *xmlWire    `xml:"wire"`
	Vectors []xmlVector `xml:"vectors>vector"`
}

type xmlWire struct {
	Direction string      `xml:"direction"`
	Vectors   []xmlVector `xml:"vectors>vector"`
	Vector    *xmlVector  `xml:"vector"`
}

type xmlModel struct {
	Views          []xmlView         `xml:"views>view"`
	Instantiations xmlInstantiations `xml:"instantiations"`
	Ports          []xmlPort         `xml:"ports>port"`
	ModelParams    []xmlParameter    `xml:"modelParameters>modelParameter"`
}

type xmlBusInterface struct {
	Name       string         `xml:"name"`
	BusType    *xmlVLNVRef    `xml:"busType"`
	Parameters []xmlParameter `xml:"parameters>parameter"`
}

type xmlField struct {
	Name      string `xml:"name"`
	BitOffset string `xml:"bitOffset"`
	BitWidth  string `xml:"bitWidth"`
}

type xmlRegister struct {
	Name       string         `xml:"name"`
	Parameters []xmlParameter `xml:"parameters>parameter"`
	Fields     []xmlField     `xml:"field"`
}

type xmlAddressBlock struct {
	Name      string        `xml:"name"`
	Registers []xmlRegister `xml:"register"`
}

type xmlMemoryMap struct {
	Name          string            `xml:"name"`
	AddressBlocks []xmlAddressBlock `xml:"addressBlock"`
}

func (m *xmlMemoryMap) toModel() MemoryMap {
	mm := MemoryMap{Name: trim(m.Name)}
	for _, b := range m.AddressBlocks {
		block := AddressBlock{Name: trim(b.Name)}
		for _, r := range b.Registers {
			reg := Register{Name: trim(r.Name), Parameters: parameters(r.Parameters)}
			for _, f := range r.Fields {
				reg.Fields = append(reg.Fields, Field{Name: trim(f.Name), BitOffset: trim(f.BitOffset), BitWidth: trim(f.BitWidth)})
			}
			block.Registers = append(block.Registers, reg)
		}
		mm.AddressBlocks = append(mm.AddressBlocks, block)
	}
	return mm
}

type xmlAddressSpace struct {
	Name           string        `xml:"name"`
	LocalMemoryMap *xmlMemoryMap `xml:"localMemoryMap"`
}

type xmlRange struct {
	Left  string `xml:"left"`
	Right string `xml:"right"`
}

type xmlPortRef struct {
	PortRef string    `xml:"portRef,attr"`
	Range   *xmlRange `xml:"partSelect>range"`
}

type xmlPortSlice struct {
	Name    string      `xml:"name"`
	PortRef *xmlPortRef `xml:"portRef"`
}

type xmlNamedRef struct {
	AddressSpaceRef string `xml:"addressSpaceRef,attr"`
	MemoryMapRef    string `xml:"memoryMapRef,attr"`
	AddressBlockRef string `xml:"addressBlockRef,attr"`
	RegisterRef     string `xml:"registerRef,attr"`
	FieldRef        string `xml:"fieldRef,attr"`
}

type xmlFieldSlice struct {
	Name            string      `xml:"name"`
	AddressSpaceRef xmlNamedRef `xml:"addressSpaceRef"`
	MemoryMapRef    xmlNamedRef `xml:"memoryMapRef"`
	AddressBlockRef xmlNamedRef `xml:"addressBlockRef"`
	RegisterRef     xmlNamedRef `xml:"registerRef"`
	FieldRef        xmlNamedRef `xml:"fieldRef"`
	Range           *xmlRange   `xml:"range"`
}

type xmlMode struct {
	Name        string          `xml:"name"`
	Condition   string          `xml:"condition"`
	PortSlices  []xmlPortSlice  `xml:"portSlice"`
	FieldSlices []xmlFieldSlice `xml:"fieldSlice"`
}

type xmlComponent struct {
	xmlHeader
	BusInterfaces []xmlBusInterface `xml:"busInterfaces>busInterface"`
	Model         xmlModel          `xml:"model"`
	AddressSpaces []xmlAddressSpace `xml:"addressSpaces>addressSpace"`
	MemoryMaps    []xmlMemoryMap    `xml:"memoryMaps>memoryMap"`
	Choices       []xmlChoice       `xml:"choices>choice"`
	FileSets      []xmlFileSet      `xml:"fileSets>fileSet"`
	Parameters    []xmlParameter    `xml:"parameters>parameter"`
	Modes         []xmlMode         `xml:"modes>mode"`
}

func (x *xmlComponent) toModel(rev Revision) *Component {
	c := &Component{
		Header:     x.header(vlnv.Component, rev),
		Parameters: parameters(x.Parameters),
	}
	c.Parameters = append(c.Parameters, parameters(x.Model.ModelParams)...)

	for _, ch := range x.Choices {
		choice := Choice{Name: trim(ch.Name)}
		for _, e := range ch.Enumerations {
			choice.Enumerations = append(choice.Enumerations, Enumeration{Value: trim(e.Value), Text: e.Text, Help: e.Help})
		}
		c.Choices = append(c.Choices, choice)
	}

	for _, v := range x.Model.Views {
		view := View{
			Name:                                trim(v.Name),
			EnvIdentifiers:                      v.EnvIdentifiers,
			ComponentInstantiationRef:           trim(v.ComponentInstantiationRef),
			DesignInstantiationRef:              trim(v.DesignInstantiationRef),
			DesignConfigurationInstantiationRef: trim(v.DesignConfigurationInstantiationRef),
			HierarchyRef:                        v.HierarchyRef.toVLNV(vlnv.Invalid),
		}
		for _, ref := range v.FileSetRefs {
			view.FileSetRefs = append(view.FileSetRefs, ref.name())
		}
		c.Views = append(c.Views, view)
	}

	for _, ci := range x.Model.Instantiations.Component {
		inst := ComponentInstantiation{
			Name:             trim(ci.Name),
			Language:         trim(ci.Language),
			ModuleName:       trim(ci.ModuleName),
			Parameters:       parameters(ci.Parameters),
			ModuleParameters: parameters(ci.ModuleParameters),
		}
		for _, ref := range ci.FileSetRefs {
			inst.FileSetRefs = append(inst.FileSetRefs, ref.name())
		}
		c.ComponentInstantiations = append(c.ComponentInstantiations, inst)
	}
	for _, di := range x.Model.Instantiations.Design {
		c.DesignInstantiations = append(c.DesignInstantiations, DesignInstantiation{
			Name:      trim(di.Name),
			DesignRef: di.DesignRef.toVLNV(vlnv.Design),
		})
	}
	for _, dci := range x.Model.Instantiations.DesignConfiguration {
		c.DesignConfigurationInstantiations = append(c.DesignConfigurationInstantiations, DesignConfigurationInstantiation{
			Name:                   trim(dci.Name),
			DesignConfigurationRef: dci.DesignConfigurationRef.toVLNV(vlnv.DesignConfiguration),
			Parameters:             parameters(dci.Parameters),
		})
	}

	for _, p := range x.Model.Ports {
		port := Port{Name: trim(p.Name)}
		vectors := p.Vectors
		if p.Wire != nil {
			port.Direction = trim(p.Wire.Direction)
			vectors = append(vectors, p.Wire.Vectors...)
			if p.Wire.Vector != nil {
				vectors = append(vectors, *p.Wire.Vector)
			}
		}
		if len(vectors) > 0 {
			port.Left = trim(vectors[0].Left)
			port.Right = trim(vectors[0].Right)
		}
		c.Ports = append(c.Ports, port)
	}

	for _, bi := range x.BusInterfaces {
		c.BusInterfaces = append(c.BusInterfaces, BusInterface{
			Name:       trim(bi.Name),
			BusType:    bi.BusType.toVLNV(vlnv.BusDefinition),
			Parameters: parameters(bi.Parameters),
		})
	}

	for _, as := range x.AddressSpaces {
		space := AddressSpace{Name: trim(as.Name)}
		if as.LocalMemoryMap != nil {
			mm := as.LocalMemoryMap.toModel()
			space.LocalMemoryMap = &mm
		}
		c.AddressSpaces = append(c.AddressSpaces, space)
	}
	for i := range x.MemoryMaps {
		c.MemoryMaps = append(c.MemoryMaps, x.MemoryMaps[i].toModel())
	}

	for _, fs := range x.FileSets {
		set := FileSet{Name: trim(fs.Name)}
		for _, f := range fs.Files {
			set.Files = append(set.Files, File{Name: trim(f.Name), FileTypes: f.FileTypes, IsIncludeFile: f.IsIncludeFile})
		}
		c.FileSets = append(c.FileSets, set)
	}

	for _, m := range x.Modes {
		mode := Mode{Name: trim(m.Name), Condition: trim(m.Condition)}
		for _, ps := range m.PortSlices {
			slice := PortSlice{Name: trim(ps.Name)}
			if ps.PortRef != nil {
				slice.PortRef = trim(ps.PortRef.PortRef)
				if ps.PortRef.Range != nil {
					slice.Left = trim(ps.PortRef.Range.Left)
					slice.Right = trim(ps.PortRef.Range.Right)
				}
			}
			mode.PortSlices = append(mode.PortSlices, slice)
		}
		for _, fs := range m.FieldSlices {
			slice := FieldSlice{
				Name: trim(fs.Name),
				Ref: FieldReference{
					AddressSpace: trim(fs.AddressSpaceRef.AddressSpaceRef),
					MemoryMap:    trim(fs.MemoryMapRef.MemoryMapRef),
					AddressBlock: trim(fs.AddressBlockRef.AddressBlockRef),
					Register:     trim(fs.RegisterRef.RegisterRef),
					Field:        trim(fs.FieldRef.FieldRef),
				},
			}
			if fs.Range != nil {
				slice.Left = trim(fs.Range.Left)
				slice.Right = trim(fs.Range.Right)
			}
			mode.FieldSlices = append(mode.FieldSlices, slice)
		}
		c.Modes = append(c.Modes, mode)
	}

	return c
}

type xmlConfigurableElementValue struct {
	ReferenceID string `xml:"referenceId,attr"`
	Value       string `xml:",chardata"`
}

type xmlComponentRef struct {
	xmlVLNVRef
	ConfigurableElementValues []xmlConfigurableElementValue `xml:"configurableElementValues>configurableElementValue"`
}

type xmlComponentInstance struct {
	InstanceName string           `xml:"instanceName"`
	DisplayName  string           `xml:"displayName"`
	Description  string           `xml:"description"`
	ComponentRef *xmlComponentRef `xml:"componentRef"`
	UUID         string           `xml:"vendorExtensions>uuid"`
}

type xmlDesign struct {
	xmlHeader
	Instances []xmlComponentInstance `xml:"componentInstances>componentInstance"`
}

func (x *xmlDesign) toModel(rev Revision) *Design {
	d := &Design{Header: x.header(vlnv.Design, rev)}
	for _, ci := range x.Instances {
		inst := ComponentInstance{
			Name:        trim(ci.InstanceName),
			UUID:        trim(ci.UUID),
			DisplayName: trim(ci.DisplayName),
			Description: trim(ci.Description),
		}
		if ci.ComponentRef != nil {
			inst.ComponentRef = ci.ComponentRef.xmlVLNVRef.toVLNV(vlnv.Component)
			for _, cev := range ci.ComponentRef.ConfigurableElementValues {
				if inst.ConfigurableElementValues == nil {
					inst.ConfigurableElementValues = make(map[string]string)
				}
				inst.ConfigurableElementValues[cev.ReferenceID] = trim(cev.Value)
			}
		}
		d.Instances = append(d.Instances, inst)
	}
	return d
}

type xmlViewRef struct {
	ViewRef string `xml:"viewRef,attr"`
}

type xmlViewConfiguration struct {
	InstanceName string      `xml:"instanceName"`
	ViewName     string      `xml:"viewName"`
	View         *xmlViewRef `xml:"view"`
}

type xmlInstanceView struct {
	ID       string `xml:"id,attr"`
	ViewName string `xml:"viewName,attr"`
}

type xmlDesignConfiguration struct {
	xmlHeader
	DesignRef          *xmlVLNVRef            `xml:"designRef"`
	ViewConfigurations []xmlViewConfiguration `xml:"viewConfiguration"`
	ViewOverrides      []xmlInstanceView      `xml:"vendorExtensions>viewOverrides>instanceView"`
}

func (x *xmlDesignConfiguration) toModel(rev Revision) *DesignConfiguration {
	dc := &DesignConfiguration{
		Header:    x.header(vlnv.DesignConfiguration, rev),
		DesignRef: x.DesignRef.toVLNV(vlnv.Design),
	}
	for _, vc := range x.ViewConfigurations {
		view := trim(vc.ViewName)
		if vc.View != nil && vc.View.ViewRef != "" {
			view = trim(vc.View.ViewRef)
		}
		dc.ViewConfigurations = append(dc.ViewConfigurations, ViewConfiguration{
			InstanceName: trim(vc.InstanceName),
			ViewName:     view,
		})
	}
	for _, ov := range x.ViewOverrides {
		if dc.ViewOverrides == nil {
			dc.ViewOverrides = make(map[string]string)
		}
		dc.ViewOverrides[ov.ID] = ov.ViewName
	}
	return dc
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
