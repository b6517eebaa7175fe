// Package depgraph holds the precomputed file-dependency graph the
// relevance layer operates on. The graph is produced by an external
// import indexer and consumed read-only here.
package depgraph

import (
	"encoding/json"
	"fmt"
	"os"
)

// Graph maps a file path to the set of file paths it imports.
// Edges are directional: g["a.go"]["b.go"] means a.go imports b.go.
type Graph map[string]map[string]struct{}

// New creates an empty graph.
func New() Graph {
	return make(Graph)
}

// Add records that file imports dep.
func (g Graph) Add(file, dep string) {
	if g[file] == nil {
		g[file] = make(map[string]struct{})
	}
	g[file][dep] = struct{}{}
}

// AddAll records every dep as an import of file. A file with no imports
// still gets an entry so lookups distinguish "known, imports nothing"
// from "unknown file".
func (g Graph) AddAll(file string, deps ...string) {
	if g[file] == nil {
		g[file] = make(map[string]struct{})
	}
	for _, d := range deps {
		g[file][d] = struct{}{}
	}
}

// Direct returns the import set of file, or nil if the file is unknown.
func (g Graph) Direct(file string) map[string]struct{} {
	return g[file]
}

// Imports reports whether file directly imports dep.
func (g Graph) Imports(file, dep string) bool {
	_, ok := g[file][dep]
	return ok
}

// Importers returns every file whose import set contains target.
// Linear scan over the graph; dependency graphs in this domain are
// small, and the index does not maintain an inverted edge list.
func (g Graph) Importers(target string) []string {
	var importers []string
	for file, deps := range g {
		if _, ok := deps[target]; ok {
			importers = append(importers, file)
		}
	}
	return importers
}

// Len returns the number of files with an entry in the graph.
func (g Graph) Len() int {
	return len(g)
}

// indexFile mirrors the on-disk layout of the import index.
type indexFile struct {
	Context struct {
		Files []struct {
			Path    string   `json:"path"`
			Imports []string `json:"imports"`
		} `json:"files"`
	} `json:"context"`
}

// Load reads a dependency graph from an import-index JSON file.
// A missing file is not an error; it yields an empty graph, which
// degrades cluster building to {focus} and scoring to conservative
// defaults.
func Load(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read import index: %w", err)
	}
	return Parse(data)
}

// Parse decodes an import-index document into a Graph.
func Parse(data []byte) (Graph, error) {
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse import index: %w", err)
	}

	g := New()
	for _, f := range idx.Context.Files {
		if f.Path == "" {
			continue
		}
		g.AddAll(f.Path, f.Imports...)
	}
	return g, nil
}
