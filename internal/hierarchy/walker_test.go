package hierarchy

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/library"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

func id(t vlnv.DocumentType, name string) vlnv.VLNV {
	return vlnv.New(t, "acme", "ip", name, "1.0")
}

func component(name string) *ipxact.Component {
	c := &ipxact.Component{}
	c.VLNV = id(vlnv.Component, name)
	c.Revision = ipxact.Std14
	return c
}

func instance(name, uuid, comp string) ipxact.ComponentInstance {
	return ipxact.ComponentInstance{Name: name, UUID: uuid, ComponentRef: id(vlnv.Component, comp)}
}

type fixture struct {
	dir   string
	store *library.Store
}

func (f *fixture) add(t *testing.T, doc ipxact.Document) {
	t.Helper()
	path := filepath.Join(f.dir, doc.Identity().Name+".xml")
	require.NoError(t, f.store.Add(path, doc))
}

func (f *fixture) touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("-- "+name), 0o644))
	return path
}

// newFixture builds a library where top has a structural view configured by
// top.dc over top.design. The design instantiates A twice, B, a missing
// component and a bus definition. A is itself hierarchical and instantiates
// top again and C.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dir:   t.TempDir(),
		store: library.New(library.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))),
	}

	top := component("top")
	top.Views = []ipxact.View{
		{Name: "structural", DesignConfigurationInstantiationRef: "top_dc_inst", FileSetRefs: []string{"top_files", "ghost"}},
		{Name: "rtl"},
	}
	top.DesignConfigurationInstantiations = []ipxact.DesignConfigurationInstantiation{
		{Name: "top_dc_inst", DesignConfigurationRef: id(vlnv.DesignConfiguration, "top.dc")},
	}
	top.FileSets = []ipxact.FileSet{{Name: "top_files", Files: []ipxact.File{{Name: "top.vhd", FileTypes: []string{"vhdlSource"}}}}}
	f.add(t, top)

	dc := &ipxact.DesignConfiguration{
		DesignRef: id(vlnv.Design, "top.design"),
		ViewConfigurations: []ipxact.ViewConfiguration{
			{InstanceName: "u_a", ViewName: "rtl"},
			{InstanceName: "u_b", ViewName: "rtl"},
		},
		ViewOverrides: map[string]string{"uuid-b": "sim"},
	}
	dc.VLNV = id(vlnv.DesignConfiguration, "top.dc")
	f.add(t, dc)

	design := &ipxact.Design{Instances: []ipxact.ComponentInstance{
		instance("u_a", "uuid-a", "A"),
		instance("u_b", "uuid-b", "B"),
		instance("u_missing", "", "missing"),
		{Name: "u_bus", ComponentRef: id(vlnv.Component, "bus")},
		instance("u_a2", "", "A"),
	}}
	design.VLNV = id(vlnv.Design, "top.design")
	f.add(t, design)

	bus := &ipxact.Definition{}
	bus.VLNV = id(vlnv.BusDefinition, "bus")
	f.add(t, bus)

	a := component("A")
	a.Views = []ipxact.View{
		{Name: "rtl", ComponentInstantiationRef: "a_inst"},
		{Name: "hier", DesignInstantiationRef: "a_design"},
	}
	a.ComponentInstantiations = []ipxact.ComponentInstantiation{{Name: "a_inst", FileSetRefs: []string{"a_files"}}}
	a.DesignInstantiations = []ipxact.DesignInstantiation{{Name: "a_design", DesignRef: id(vlnv.Design, "a.design")}}
	a.FileSets = []ipxact.FileSet{
		{Name: "a_files", Files: []ipxact.File{{Name: "a.vhd", FileTypes: []string{"vhdlSource-93"}}}},
		{Name: "a_docs", Files: []ipxact.File{{Name: "a.pdf", FileTypes: []string{"documentation"}}}},
	}
	f.add(t, a)

	aDesign := &ipxact.Design{Instances: []ipxact.ComponentInstance{
		instance("u_top", "", "top"),
		instance("u_c", "", "C"),
	}}
	aDesign.VLNV = id(vlnv.Design, "a.design")
	f.add(t, aDesign)

	b := component("B")
	b.Views = []ipxact.View{
		{Name: "rtl", FileSetRefs: []string{"b_rtl"}},
		{Name: "sim", FileSetRefs: []string{"b_sim"}},
	}
	b.FileSets = []ipxact.FileSet{
		{Name: "b_rtl", Files: []ipxact.File{{Name: "b.v", FileTypes: []string{"verilogSource"}}}},
		{Name: "b_sim", Files: []ipxact.File{
			{Name: "b_tb.sv", FileTypes: []string{"systemVerilogSource"}},
			{Name: "missing.sv", FileTypes: []string{"systemVerilogSource"}},
		}},
	}
	f.add(t, b)

	f.add(t, component("C"))

	for _, name := range []string{"top.vhd", "a.vhd", "a.pdf", "b.v", "b_tb.sv"} {
		f.touch(t, name)
	}
	return f
}

func TestNewWalkerPanicsWithoutLibrary(t *testing.T) {
	assert.Panics(t, func() { NewWalker(nil, nil) })
}

func TestExpand(t *testing.T) {
	f := newFixture(t)
	rec := &Recorder{}
	w := NewWalker(f.store, rec)

	nodes := w.Expand(id(vlnv.Component, "top"))

	var got []string
	for _, n := range nodes {
		got = append(got, n.VLNV.Name+"@"+n.Instance)
	}
	assert.Equal(t, []string{"top@", "A@u_a", "C@u_c", "B@u_b"}, got)
	assert.Equal(t, 2, nodes[2].Depth)
	assert.Equal(t, "A", nodes[2].Parent.Name)
	assert.Empty(t, rec.Errors())
}

func TestExpandMaxDepth(t *testing.T) {
	f := newFixture(t)
	w := NewWalker(f.store, nil)
	w.MaxDepth = 1

	var got []string
	for _, n := range w.Expand(id(vlnv.Component, "top")) {
		got = append(got, n.VLNV.Name)
	}
	assert.Equal(t, []string{"top", "A", "B"}, got)
}

func TestExpandTerminatesOnCycle(t *testing.T) {
	store := library.New()
	for _, pair := range [][2]string{{"X", "Y"}, {"Y", "X"}} {
		c := component(pair[0])
		c.Views = []ipxact.View{{Name: "hier", HierarchyRef: id(vlnv.Design, pair[0]+".design")}}
		require.NoError(t, store.Add("", c))

		d := &ipxact.Design{Instances: []ipxact.ComponentInstance{instance("u", "", pair[1])}}
		d.VLNV = id(vlnv.Design, pair[0]+".design")
		require.NoError(t, store.Add("", d))
	}

	nodes := NewWalker(store, nil).Expand(id(vlnv.Component, "X"))
	require.Len(t, nodes, 2)
	assert.Equal(t, "X", nodes[0].VLNV.Name)
	assert.Equal(t, "Y", nodes[1].VLNV.Name)
}

func TestExpandReportsBrokenHierarchy(t *testing.T) {
	store := library.New()
	c := component("top")
	c.Views = []ipxact.View{
		{Name: "a", HierarchyRef: id(vlnv.Design, "gone")},
		{Name: "b", HierarchyRef: id(vlnv.Component, "top")},
	}
	require.NoError(t, store.Add("", c))

	rec := &Recorder{}
	nodes := NewWalker(store, rec).Expand(c.VLNV)
	assert.Len(t, nodes, 1)
	assert.Equal(t, []string{
		"VLNV: acme:ip:gone:1.0 was not found in library.",
		"VLNV: acme:ip:top:1.0 was not for design or design configuration.",
	}, rec.Errors())

	rec = &Recorder{}
	assert.Nil(t, NewWalker(store, rec).Expand(id(vlnv.Component, "nothing")))
	assert.Equal(t, []string{"Component acme:ip:nothing:1.0 was not found within library. Stopping generation."}, rec.Errors())
}

func TestCollectFiles(t *testing.T) {
	f := newFixture(t)
	rec := &Recorder{}
	w := NewWalker(f.store, rec)

	files := w.CollectFiles(id(vlnv.Component, "top"), "structural")
	assert.Equal(t, []string{
		filepath.Join(f.dir, "a.vhd"),
		filepath.Join(f.dir, "b_tb.sv"),
		filepath.Join(f.dir, "top.vhd"),
	}, files)

	assert.Equal(t, []string{
		"The file " + filepath.Join(f.dir, "missing.sv") + " needed by component acme:ip:B:1.0 was not found in the file system.",
		"Component acme:ip:missing:1.0 was not found within library. Skipping.",
		"Referenced item acme:ip:bus:1.0 was not a component.",
		"Fileset ghost was not found within component acme:ip:top:1.0.",
	}, rec.Errors())
	assert.Contains(t, rec.Notices(), "No active view selected for instance u_a2 of component acme:ip:A:1.0.")
	assert.Contains(t, rec.Notices(), "Component A didn't contain an active view, adding all found RTL-files from component file sets.")
}

func TestCollectFilesFlatView(t *testing.T) {
	f := newFixture(t)
	w := NewWalker(f.store, nil)

	assert.Equal(t, []string{filepath.Join(f.dir, "a.vhd")}, w.CollectFiles(id(vlnv.Component, "A"), "rtl"))
	assert.Equal(t, []string{filepath.Join(f.dir, "a.vhd")}, w.CollectFiles(id(vlnv.Component, "A"), ""))
}

func TestCollectFilesMissingDesign(t *testing.T) {
	store := library.New()

	noDesign := &ipxact.DesignConfiguration{}
	noDesign.VLNV = id(vlnv.DesignConfiguration, "empty.dc")
	require.NoError(t, store.Add("", noDesign))

	goneDesign := &ipxact.DesignConfiguration{DesignRef: id(vlnv.Design, "gone")}
	goneDesign.VLNV = id(vlnv.DesignConfiguration, "gone.dc")
	require.NoError(t, store.Add("", goneDesign))

	c := component("top")
	c.Views = []ipxact.View{
		{Name: "empty", HierarchyRef: noDesign.VLNV},
		{Name: "gone", HierarchyRef: goneDesign.VLNV},
	}
	require.NoError(t, store.Add("", c))

	rec := &Recorder{}
	w := NewWalker(store, rec)
	assert.Empty(t, w.CollectFiles(c.VLNV, "empty"))
	assert.Empty(t, w.CollectFiles(c.VLNV, "gone"))
	assert.Equal(t, []string{
		"Could not find valid design. Stopping generation.",
		"Design acme:ip:gone:1.0 referenced withing design configuration gone.dc was not found within library. Stopping generation.",
	}, rec.Errors())
}

func TestImpact(t *testing.T) {
	f := newFixture(t)
	deps := BuildDependents(f.store, f.store.AllVLNVs())

	report := deps.Impact(id(vlnv.Component, "C"))
	var levels [][]string
	for _, level := range report.Levels {
		var names []string
		for _, v := range level {
			names = append(names, v.Name)
		}
		levels = append(levels, names)
	}
	assert.Equal(t, [][]string{
		{"a.design"},
		{"A"},
		{"top.design"},
		{"top.dc"},
		{"top"},
	}, levels)
	assert.Contains(t, report.String(), "level 1 (1): acme:ip:a.design:1.0")

	assert.Empty(t, deps.Impact(id(vlnv.Component, "nobody")).Levels)
}

func TestRecorderAndTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	r := Tee{a, b}
	r.Error("e")
	r.Notice("n")

	assert.Equal(t, []Message{{SeverityError, "e"}, {SeverityNotice, "n"}}, a.Messages())
	assert.Equal(t, a.Messages(), b.Messages())
	assert.Equal(t, []string{"e"}, a.Errors())
	assert.Equal(t, []string{"n"}, a.Notices())
}
