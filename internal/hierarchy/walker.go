// Package hierarchy walks the design hierarchy below a component through the
// VLNV references of its views, designs and design configurations.
//
// Walks tolerate broken libraries: a dangling or mistyped reference is
// reported and its branch skipped, the rest of the walk goes on. Every walk
// keeps a set of processed documents, so cyclic hierarchies terminate.
package hierarchy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/library"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// Node is one component reached by Expand.
type Node struct {
	VLNV vlnv.VLNV `json:"vlnv" yaml:"vlnv"`
	// Instance is the name of the instance the component was first reached
	// through; empty for the root.
	Instance string `json:"instance,omitempty" yaml:"instance,omitempty"`
	// Parent is the component whose hierarchy holds the instance.
	Parent vlnv.VLNV `json:"parent" yaml:"parent"`
	Depth  int       `json:"depth" yaml:"depth"`
}

// Walker walks hierarchies of one library.
type Walker struct {
	lib      library.Library
	reporter Reporter
	// MaxDepth stops Expand below this many levels of hierarchy. Zero means
	// unlimited.
	MaxDepth int
}

// NewWalker returns a walker over lib. A nil reporter discards messages. A
// nil library is a programming error and panics.
func NewWalker(lib library.Library, r Reporter) *Walker {
	if lib == nil {
		panic("hierarchy: nil library")
	}
	if r == nil {
		r = Tee(nil)
	}
	return &Walker{lib: lib, reporter: r}
}

// =============================================================================
// Expand
// =============================================================================

// Expand lists the root component and every component instantiated below it,
// each distinct VLNV exactly once, in depth-first order. Instances that were
// already processed, are missing from the library or are not components are
// skipped without a message.
func (w *Walker) Expand(root vlnv.VLNV) []Node {
	comp, ok := w.component(root)
	if !ok {
		w.reporter.Error(fmt.Sprintf("Component %s was not found within library. Stopping generation.", root))
		return nil
	}
	processed := map[vlnv.VLNV]bool{root.Key(): true}
	nodes := []Node{{VLNV: comp.VLNV}}
	return w.expand(comp, 0, processed, nodes)
}

func (w *Walker) expand(comp *ipxact.Component, depth int, processed map[vlnv.VLNV]bool, nodes []Node) []Node {
	if w.MaxDepth > 0 && depth >= w.MaxDepth {
		return nodes
	}
	for _, ref := range comp.HierarchicalRefs() {
		design := w.designFor(ref)
		if design == nil {
			continue
		}
		for _, inst := range design.Instances {
			key := inst.ComponentRef.Key()
			if processed[key] ||
				!w.lib.Contains(inst.ComponentRef) ||
				w.lib.GetDocumentType(inst.ComponentRef) != vlnv.Component {
				continue
			}
			processed[key] = true

			child, ok := w.component(inst.ComponentRef)
			if !ok {
				continue
			}
			nodes = append(nodes, Node{
				VLNV:     child.VLNV,
				Instance: inst.Name,
				Parent:   comp.VLNV,
				Depth:    depth + 1,
			})
			nodes = w.expand(child, depth+1, processed, nodes)
		}
	}
	return nodes
}

// designFor resolves a hierarchy reference to its design, going through a
// design configuration when needed. Problems are reported and yield nil.
func (w *Walker) designFor(ref vlnv.VLNV) *ipxact.Design {
	if !w.lib.Contains(ref) {
		w.reporter.Error(fmt.Sprintf("VLNV: %s was not found in library.", ref))
		return nil
	}
	switch w.lib.GetDocumentType(ref) {
	case vlnv.DesignConfiguration:
		dc := w.designConfiguration(ref)
		if dc == nil {
			return nil
		}
		if !w.lib.Contains(dc.DesignRef) {
			w.reporter.Error(fmt.Sprintf("VLNV: %s was not found in library.", dc.DesignRef))
			return nil
		}
		if w.lib.GetDocumentType(dc.DesignRef) != vlnv.Design {
			w.reporter.Error(fmt.Sprintf("VLNV: %s was not for design.", dc.DesignRef))
			return nil
		}
		return w.design(dc.DesignRef)
	case vlnv.Design:
		return w.design(ref)
	}
	w.reporter.Error(fmt.Sprintf("VLNV: %s was not for design or design configuration.", ref))
	return nil
}

// =============================================================================
// CollectFiles
// =============================================================================

// CollectFiles lists the absolute paths of the files needed to build root
// with the given view, descending into hierarchical views. Instance views
// come from the design configuration of each level. Paths are returned once,
// in discovery order. An empty view name takes the RTL files of every file
// set of root.
func (w *Walker) CollectFiles(root vlnv.VLNV, viewName string) []string {
	comp, ok := w.component(root)
	if !ok {
		w.reporter.Error(fmt.Sprintf("Component %s was not found within library. Stopping generation.", root))
		return nil
	}
	var view *ipxact.View
	if viewName != "" {
		view = comp.View(viewName)
	}
	c := &collector{
		walker:  w,
		seen:    make(map[string]bool),
		visited: make(map[string]bool),
	}
	c.parseFiles(comp, view)
	return c.files
}

type collector struct {
	walker *Walker
	files  []string
	seen   map[string]bool
	// visited holds component:view pairs already descended into.
	visited map[string]bool
}

func (c *collector) report() Reporter {
	return c.walker.reporter
}

func (c *collector) parseFiles(comp *ipxact.Component, view *ipxact.View) {
	if view == nil {
		c.report().Notice(fmt.Sprintf("Component %s didn't contain an active view, adding all found RTL-files from component file sets.",
			comp.VLNV.Name))
		c.parseAllFileSets(comp)
		return
	}

	key := comp.VLNV.Key().String() + "/" + view.Name
	if c.visited[key] {
		return
	}
	c.visited[key] = true

	c.report().Notice(fmt.Sprintf("Processing view %s of component %s", view.Name, comp.VLNV))
	if comp.IsHierarchicalView(view.Name) {
		c.parseHierarchicalView(comp, view)
		return
	}
	c.parseFileSets(comp, comp.FileSetRefs(view.Name))
}

func (c *collector) parseHierarchicalView(comp *ipxact.Component, view *ipxact.View) {
	lib := c.walker.lib
	ref := comp.HierarchyRef(view.Name)

	var dc *ipxact.DesignConfiguration
	designRef := ref
	if lib.GetDocumentType(ref) == vlnv.DesignConfiguration {
		dc = c.walker.designConfiguration(ref)
		if dc == nil {
			return
		}
		designRef = dc.DesignRef
	}
	if designRef.IsEmpty() {
		c.report().Error("Could not find valid design. Stopping generation.")
		return
	}

	var design *ipxact.Design
	if lib.Contains(designRef) {
		design = c.walker.design(designRef)
	}
	if design == nil {
		dcName := ""
		if dc != nil {
			dcName = dc.VLNV.Name
		}
		c.report().Error(fmt.Sprintf("Design %s referenced withing design configuration %s was not found within library. Stopping generation.",
			designRef, dcName))
		return
	}

	c.readDesign(design, dc)
	c.parseFileSets(comp, comp.FileSetRefs(view.Name))
}

func (c *collector) readDesign(design *ipxact.Design, dc *ipxact.DesignConfiguration) {
	lib := c.walker.lib
	for _, inst := range design.Instances {
		ref := inst.ComponentRef
		if !lib.Contains(ref) {
			c.report().Error(fmt.Sprintf("Component %s was not found within library. Skipping.", ref))
			continue
		}
		comp, ok := c.walker.component(ref)
		if !ok {
			c.report().Error(fmt.Sprintf("Referenced item %s was not a component.", ref))
			continue
		}

		var view *ipxact.View
		if viewName, ok := activeView(dc, inst); ok {
			view = comp.View(viewName)
		} else {
			c.report().Notice(fmt.Sprintf("No active view selected for instance %s of component %s.", inst.Name, ref))
		}
		c.parseFiles(comp, view)
	}
}

func activeView(dc *ipxact.DesignConfiguration, inst ipxact.ComponentInstance) (string, bool) {
	if dc == nil {
		return "", false
	}
	return dc.ViewFor(inst)
}

func (c *collector) parseFileSets(comp *ipxact.Component, names []string) {
	if len(names) == 0 {
		return
	}
	basePath := c.walker.lib.GetPath(comp.VLNV)
	if basePath == "" {
		c.report().Error(fmt.Sprintf("Component %s was not found within library. Stopping generation.", comp.VLNV))
		return
	}
	for _, name := range names {
		fs := comp.FileSet(name)
		if fs == nil {
			c.report().Error(fmt.Sprintf("Fileset %s was not found within component %s.", name, comp.VLNV))
			continue
		}
		for _, f := range fs.Files {
			c.addFile(f, basePath, comp.VLNV)
		}
	}
}

func (c *collector) parseAllFileSets(comp *ipxact.Component) {
	basePath := c.walker.lib.GetPath(comp.VLNV)
	if basePath == "" {
		c.report().Error(fmt.Sprintf("Component %s was not found within library. Stopping generation.", comp.VLNV))
		return
	}
	for _, fs := range comp.FileSets {
		for _, f := range fs.Files {
			if IsRTLFile(f) {
				c.addFile(f, basePath, comp.VLNV)
			}
		}
	}
}

// addFile resolves a file relative to the document that lists it.
func (c *collector) addFile(f ipxact.File, basePath string, owner vlnv.VLNV) {
	path := f.Name
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(basePath), filepath.FromSlash(path))
	}
	if _, err := os.Stat(path); err != nil {
		c.report().Error(fmt.Sprintf("The file %s needed by component %s was not found in the file system.", path, owner))
		return
	}
	if !c.seen[path] {
		c.seen[path] = true
		c.files = append(c.files, path)
	}
}

var rtlFileTypes = []string{"vhdlSource", "verilogSource", "systemVerilogSource"}

// IsRTLFile reports whether any file type of f is an HDL source type.
func IsRTLFile(f ipxact.File) bool {
	for _, t := range f.FileTypes {
		for _, prefix := range rtlFileTypes {
			if strings.HasPrefix(t, prefix) {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// Typed lookups
// =============================================================================

func (w *Walker) component(v vlnv.VLNV) (*ipxact.Component, bool) {
	doc, err := w.lib.GetModel(v)
	if err != nil {
		return nil, false
	}
	comp, ok := doc.(*ipxact.Component)
	return comp, ok
}

func (w *Walker) design(v vlnv.VLNV) *ipxact.Design {
	doc, err := w.lib.GetModel(v)
	if err != nil {
		w.reporter.Error(err.Error())
		return nil
	}
	d, _ := doc.(*ipxact.Design)
	return d
}

func (w *Walker) designConfiguration(v vlnv.VLNV) *ipxact.DesignConfiguration {
	doc, err := w.lib.GetModel(v)
	if err != nil {
		w.reporter.Error(err.Error())
		return nil
	}
	dc, _ := doc.(*ipxact.DesignConfiguration)
	return dc
}
