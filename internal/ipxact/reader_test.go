package ipxact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

const component2014 = `<?xml version="1.0" encoding="UTF-8"?>
<ipxact:component xmlns:ipxact="http://www.accellera.org/XMLSchema/IPXACT/1685-2014">
  <ipxact:vendor>tut.fi</ipxact:vendor>
  <ipxact:library>ip.hw</ipxact:library>
  <ipxact:name>top</ipxact:name>
  <ipxact:version>1.0</ipxact:version>
  <ipxact:model>
    <ipxact:views>
      <ipxact:view>
        <ipxact:name>structural</ipxact:name>
        <ipxact:designConfigurationInstantiationRef>top_dc</ipxact:designConfigurationInstantiationRef>
      </ipxact:view>
      <ipxact:view>
        <ipxact:name>rtl</ipxact:name>
        <ipxact:componentInstantiationRef>rtl_inst</ipxact:componentInstantiationRef>
      </ipxact:view>
    </ipxact:views>
    <ipxact:instantiations>
      <ipxact:componentInstantiation>
        <ipxact:name>rtl_inst</ipxact:name>
        <ipxact:language>vhdl</ipxact:language>
        <ipxact:fileSetRef><ipxact:localName>rtl_files</ipxact:localName></ipxact:fileSetRef>
        <ipxact:moduleParameters>
          <ipxact:moduleParameter parameterId="WIDTH" type="int">
            <ipxact:name>WIDTH</ipxact:name>
            <ipxact:value>8</ipxact:value>
          </ipxact:moduleParameter>
        </ipxact:moduleParameters>
      </ipxact:componentInstantiation>
      <ipxact:designConfigurationInstantiation>
        <ipxact:name>top_dc</ipxact:name>
        <ipxact:designConfigurationRef vendor="tut.fi" library="ip.hw" name="top.dc" version="1.0"/>
      </ipxact:designConfigurationInstantiation>
    </ipxact:instantiations>
    <ipxact:ports>
      <ipxact:port>
        <ipxact:name>data</ipxact:name>
        <ipxact:wire>
          <ipxact:direction>in</ipxact:direction>
          <ipxact:vectors><ipxact:vector><ipxact:left>7</ipxact:left><ipxact:right>0</ipxact:right></ipxact:vector></ipxact:vectors>
        </ipxact:wire>
      </ipxact:port>
    </ipxact:ports>
  </ipxact:model>
  <ipxact:choices>
    <ipxact:choice>
      <ipxact:name>widths</ipxact:name>
      <ipxact:enumeration text="eight">8</ipxact:enumeration>
      <ipxact:enumeration>16</ipxact:enumeration>
    </ipxact:choice>
  </ipxact:choices>
  <ipxact:fileSets>
    <ipxact:fileSet>
      <ipxact:name>rtl_files</ipxact:name>
      <ipxact:file><ipxact:name>rtl/top.vhd</ipxact:name><ipxact:fileType>vhdlSource</ipxact:fileType></ipxact:file>
    </ipxact:fileSet>
  </ipxact:fileSets>
  <ipxact:parameters>
    <ipxact:parameter parameterId="ID_DEPTH" resolve="user" type="longint" minimum="1" maximum="64" choiceRef="widths">
      <ipxact:name>depth</ipxact:name>
      <ipxact:vectors><ipxact:vector vectorId="v0"><ipxact:left>3</ipxact:left><ipxact:right>0</ipxact:right></ipxact:vector></ipxact:vectors>
      <ipxact:value>16</ipxact:value>
    </ipxact:parameter>
  </ipxact:parameters>
</ipxact:component>`

const component2022Modes = `<?xml version="1.0"?>
<ipxact:component xmlns:ipxact="http://www.accellera.org/XMLSchema/IPXACT/1685-2022">
  <ipxact:vendor>v</ipxact:vendor><ipxact:library>l</ipxact:library>
  <ipxact:name>modal</ipxact:name><ipxact:version>2.0</ipxact:version>
  <ipxact:memoryMaps>
    <ipxact:memoryMap>
      <ipxact:name>map</ipxact:name>
      <ipxact:addressBlock>
        <ipxact:name>block</ipxact:name>
        <ipxact:register>
          <ipxact:name>ctrl</ipxact:name>
          <ipxact:field><ipxact:name>enable</ipxact:name><ipxact:bitOffset>0</ipxact:bitOffset><ipxact:bitWidth>1</ipxact:bitWidth></ipxact:field>
        </ipxact:register>
      </ipxact:addressBlock>
    </ipxact:memoryMap>
  </ipxact:memoryMaps>
  <ipxact:modes>
    <ipxact:mode>
      <ipxact:name>testMode</ipxact:name>
      <ipxact:portSlice>
        <ipxact:name>slice</ipxact:name>
        <ipxact:portRef portRef="rst_n"><ipxact:partSelect><ipxact:range><ipxact:left>0</ipxact:left><ipxact:right>0</ipxact:right></ipxact:range></ipxact:partSelect></ipxact:portRef>
      </ipxact:portSlice>
      <ipxact:fieldSlice>
        <ipxact:name>fs</ipxact:name>
        <ipxact:memoryMapRef memoryMapRef="map"/>
        <ipxact:addressBlockRef addressBlockRef="block"/>
        <ipxact:registerRef registerRef="ctrl"/>
        <ipxact:fieldRef fieldRef="enable"/>
      </ipxact:fieldSlice>
      <ipxact:condition>$ipxact_port_value(slice) == 1</ipxact:condition>
    </ipxact:mode>
  </ipxact:modes>
</ipxact:component>`

const design2014 = `<?xml version="1.0"?>
<ipxact:design xmlns:ipxact="http://www.accellera.org/XMLSchema/IPXACT/1685-2014" xmlns:kactus2="http://kactus2.cs.tut.fi">
  <ipxact:vendor>tut.fi</ipxact:vendor><ipxact:library>ip.hw</ipxact:library>
  <ipxact:name>top.design</ipxact:name><ipxact:version>1.0</ipxact:version>
  <ipxact:componentInstances>
    <ipxact:componentInstance>
      <ipxact:instanceName>u_uart</ipxact:instanceName>
      <ipxact:componentRef vendor="tut.fi" library="ip.hw" name="uart" version="1.0">
        <ipxact:configurableElementValues>
          <ipxact:configurableElementValue referenceId="ID_BAUD">115200</ipxact:configurableElementValue>
        </ipxact:configurableElementValues>
      </ipxact:componentRef>
      <ipxact:vendorExtensions><kactus2:uuid>{1111-2222}</kactus2:uuid></ipxact:vendorExtensions>
    </ipxact:componentInstance>
  </ipxact:componentInstances>
</ipxact:design>`

const designConfiguration2014 = `<?xml version="1.0"?>
<ipxact:designConfiguration xmlns:ipxact="http://www.accellera.org/XMLSchema/IPXACT/1685-2014" xmlns:kactus2="http://kactus2.cs.tut.fi">
  <ipxact:vendor>tut.fi</ipxact:vendor><ipxact:library>ip.hw</ipxact:library>
  <ipxact:name>top.dc</ipxact:name><ipxact:version>1.0</ipxact:version>
  <ipxact:designRef vendor="tut.fi" library="ip.hw" name="top.design" version="1.0"/>
  <ipxact:viewConfiguration>
    <ipxact:instanceName>u_uart</ipxact:instanceName>
    <ipxact:view viewRef="rtl"/>
  </ipxact:viewConfiguration>
  <ipxact:vendorExtensions>
    <kactus2:viewOverrides><kactus2:instanceView id="{1111-2222}" viewName="sim"/></kactus2:viewOverrides>
  </ipxact:vendorExtensions>
</ipxact:designConfiguration>`

const spiritComponent = `<?xml version="1.0"?>
<spirit:component xmlns:spirit="http://www.spiritconsortium.org/XMLSchema/SPIRIT/1.5">
  <spirit:vendor>old</spirit:vendor><spirit:library>lib</spirit:library>
  <spirit:name>legacy</spirit:name><spirit:version>0.1</spirit:version>
  <spirit:model>
    <spirit:views>
      <spirit:view>
        <spirit:name>hier</spirit:name>
        <spirit:hierarchyRef spirit:vendor="old" spirit:library="lib" spirit:name="legacy.design" spirit:version="0.1"/>
        <spirit:fileSetRef><spirit:localName>src</spirit:localName></spirit:fileSetRef>
      </spirit:view>
    </spirit:views>
  </spirit:model>
  <spirit:parameters>
    <spirit:parameter>
      <spirit:name>size</spirit:name>
      <spirit:value spirit:format="long" spirit:id="size_id" spirit:resolve="user" spirit:minimum="1k">1024</spirit:value>
    </spirit:parameter>
  </spirit:parameters>
</spirit:component>`

func TestReadComponent2014(t *testing.T) {
	doc, err := Read(strings.NewReader(component2014))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	comp, ok := doc.(*Component)
	if !ok {
		t.Fatalf("expected *Component, got %T", doc)
	}
	if want := vlnv.New(vlnv.Component, "tut.fi", "ip.hw", "top", "1.0"); comp.Identity() != want {
		t.Fatalf("Identity() = %v, want %v", comp.Identity(), want)
	}
	if comp.StdRevision() != Std14 {
		t.Fatalf("revision = %v, want 2014", comp.StdRevision())
	}

	if len(comp.Parameters) != 1 {
		t.Fatalf("expected 1 parameter, got %d", len(comp.Parameters))
	}
	p := comp.Parameters[0]
	if p.ID != "ID_DEPTH" || p.Name != "depth" || p.Value != "16" || p.Type != "longint" {
		t.Errorf("unexpected parameter %+v", p)
	}
	if p.Minimum != "1" || p.Maximum != "64" || p.ChoiceRef != "widths" || p.Resolve != "user" {
		t.Errorf("unexpected parameter attributes %+v", p)
	}
	if len(p.Vectors) != 1 || p.Vectors[0].ID != "v0" || p.VectorLeft() != "3" || p.VectorRight() != "0" {
		t.Errorf("unexpected vectors %+v", p.Vectors)
	}

	choice := FindChoice(comp.Choices, "widths")
	if choice == nil || !choice.HasEnumeration("8") || choice.HasEnumeration("32") {
		t.Errorf("unexpected choice %+v", choice)
	}

	want := vlnv.New(vlnv.DesignConfiguration, "tut.fi", "ip.hw", "top.dc", "1.0")
	if got := comp.HierarchyRef("structural"); got != want {
		t.Errorf("HierarchyRef(structural) = %v, want %v", got, want)
	}
	if comp.IsHierarchicalView("rtl") {
		t.Errorf("rtl view should not be hierarchical")
	}
	if got := comp.FileSetRefs("rtl"); len(got) != 1 || got[0] != "rtl_files" {
		t.Errorf("FileSetRefs(rtl) = %v", got)
	}
	if fs := comp.FileSet("rtl_files"); fs == nil || len(fs.Files) != 1 || fs.Files[0].Name != "rtl/top.vhd" {
		t.Errorf("unexpected file set %+v", fs)
	}
	if port := comp.Port("data"); port == nil || port.Left != "7" || port.Right != "0" || port.Direction != "in" {
		t.Errorf("unexpected port %+v", port)
	}

	var seen []string
	comp.AllParameters(func(p *Parameter) { seen = append(seen, p.ElementName()+":"+p.Name) })
	if len(seen) != 2 || seen[0] != "parameter:depth" || seen[1] != "moduleParameter:WIDTH" {
		t.Errorf("AllParameters visited %v", seen)
	}
}

func TestReadModes2022(t *testing.T) {
	doc, err := Read(strings.NewReader(component2022Modes))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	comp := doc.(*Component)
	if comp.StdRevision() != Std22 {
		t.Fatalf("revision = %v, want 2022", comp.StdRevision())
	}
	if len(comp.Modes) != 1 {
		t.Fatalf("expected 1 mode, got %d", len(comp.Modes))
	}
	mode := comp.Modes[0]
	if mode.Condition != "$ipxact_port_value(slice) == 1" {
		t.Errorf("condition = %q", mode.Condition)
	}
	if len(mode.PortSlices) != 1 || mode.PortSlices[0].PortRef != "rst_n" || mode.PortSlices[0].Left != "0" {
		t.Errorf("unexpected port slices %+v", mode.PortSlices)
	}
	if len(mode.FieldSlices) != 1 {
		t.Fatalf("expected 1 field slice, got %d", len(mode.FieldSlices))
	}
	ref := mode.FieldSlices[0].Ref
	if ref.MemoryMap != "map" || ref.AddressBlock != "block" || ref.Register != "ctrl" || ref.Field != "enable" {
		t.Errorf("unexpected field reference %+v", ref)
	}
}

func TestReadDesignAndConfiguration(t *testing.T) {
	doc, err := Read(strings.NewReader(design2014))
	if err != nil {
		t.Fatalf("Read(design) error = %v", err)
	}
	design := doc.(*Design)
	if len(design.Instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(design.Instances))
	}
	inst := design.Instances[0]
	if inst.Name != "u_uart" || inst.UUID != "{1111-2222}" {
		t.Errorf("unexpected instance %+v", inst)
	}
	if inst.ComponentRef != vlnv.New(vlnv.Component, "tut.fi", "ip.hw", "uart", "1.0") {
		t.Errorf("unexpected component ref %v", inst.ComponentRef)
	}
	if inst.ConfigurableElementValues["ID_BAUD"] != "115200" {
		t.Errorf("unexpected configurable element values %v", inst.ConfigurableElementValues)
	}

	doc, err = Read(strings.NewReader(designConfiguration2014))
	if err != nil {
		t.Fatalf("Read(designConfiguration) error = %v", err)
	}
	dc := doc.(*DesignConfiguration)
	if dc.DesignRef != design.Identity() {
		t.Errorf("DesignRef = %v, want %v", dc.DesignRef, design.Identity())
	}
	if got := dc.ActiveView("u_uart"); got != "rtl" {
		t.Errorf("ActiveView = %q, want rtl", got)
	}
	if view, ok := dc.ViewFor(inst); !ok || view != "sim" {
		t.Errorf("ViewFor = %q %v, want the UUID override", view, ok)
	}
}

func TestReadSpirit(t *testing.T) {
	doc, err := Read(strings.NewReader(spiritComponent))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	comp := doc.(*Component)
	if comp.StdRevision() != Std10 {
		t.Fatalf("revision = %v, want 1.0", comp.StdRevision())
	}
	p := comp.Parameters[0]
	if p.ID != "size_id" || p.Format != "long" || p.Minimum != "1k" || p.Resolve != "user" {
		t.Errorf("value attributes not merged into parameter: %+v", p)
	}
	want := vlnv.New(vlnv.Invalid, "old", "lib", "legacy.design", "0.1")
	if got := comp.HierarchyRef("hier"); got.Key() != want {
		t.Errorf("HierarchyRef = %v, want %v", got, want)
	}
	if got := comp.FileSetRefs("hier"); len(got) != 1 || got[0] != "src" {
		t.Errorf("FileSetRefs = %v", got)
	}
}

func TestReadIdentity(t *testing.T) {
	id, rev, err := ReadIdentity(strings.NewReader(design2014))
	if err != nil {
		t.Fatalf("ReadIdentity() error = %v", err)
	}
	if id != vlnv.New(vlnv.Design, "tut.fi", "ip.hw", "top.design", "1.0") || rev != Std14 {
		t.Errorf("ReadIdentity() = %v %v", id, rev)
	}
}

func TestReadRejectsUnknownRoot(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "foreign root", input: `<project><name>x</name></project>`},
		{name: "empty", input: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.input)); !errors.Is(err, ErrUnknownDocument) {
				t.Fatalf("Read() error = %v, want ErrUnknownDocument", err)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.xml")
	if err := os.WriteFile(path, []byte(component2014), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if doc.Identity().Name != "top" {
		t.Errorf("unexpected identity %v", doc.Identity())
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
