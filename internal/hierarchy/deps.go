package hierarchy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/library"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

// Dependents maps a document to the documents that reference it: designs
// instantiating a component, design configurations of a design and
// components whose views point at a design or design configuration. Keys
// carry no document type.
type Dependents map[vlnv.VLNV]map[vlnv.VLNV]bool

// BuildDependents reads every listed document from lib and records its
// references. Documents that fail to load are skipped.
func BuildDependents(lib library.Library, ids []vlnv.VLNV) Dependents {
	g := make(Dependents)
	for _, id := range ids {
		doc, err := lib.GetModel(id)
		if err != nil {
			continue
		}
		from := id.Key()
		switch d := doc.(type) {
		case *ipxact.Component:
			for _, ref := range d.HierarchicalRefs() {
				g.add(ref, from)
			}
		case *ipxact.Design:
			for _, inst := range d.Instances {
				g.add(inst.ComponentRef, from)
			}
		case *ipxact.DesignConfiguration:
			g.add(d.DesignRef, from)
		}
	}
	return g
}

func (g Dependents) add(dependency, dependent vlnv.VLNV) {
	dependency = dependency.Key()
	if dependency.IsEmpty() || dependency == dependent {
		return
	}
	if g[dependency] == nil {
		g[dependency] = make(map[vlnv.VLNV]bool)
	}
	g[dependency][dependent] = true
}

// ImpactReport lists, level by level, the documents affected by a change to
// Root. Level one references Root directly.
type ImpactReport struct {
	Root   vlnv.VLNV     `json:"root" yaml:"root"`
	Levels [][]vlnv.VLNV `json:"levels" yaml:"levels"`
}

// Impact walks the dependents of root breadth first. Every document appears
// once, at the first level it is reached.
func (g Dependents) Impact(root vlnv.VLNV) ImpactReport {
	root = root.Key()
	visited := map[vlnv.VLNV]bool{root: true}
	frontier := []vlnv.VLNV{root}
	var levels [][]vlnv.VLNV

	for len(frontier) > 0 {
		var next []vlnv.VLNV
		for _, v := range frontier {
			for dep := range g[v] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Slice(next, func(i, j int) bool { return vlnv.Compare(next[i], next[j]) < 0 })
		levels = append(levels, next)
		frontier = next
	}

	return ImpactReport{Root: root, Levels: levels}
}

// String renders the report as indented text.
func (r ImpactReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n", r.Root)
	for i, level := range r.Levels {
		names := make([]string, len(level))
		for j, v := range level {
			names[j] = v.String()
		}
		fmt.Fprintf(&b, "    level %d (%d): %s\n", i+1, len(level), strings.Join(names, ", "))
	}
	return b.String()
}
