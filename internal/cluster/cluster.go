// Package cluster builds the focus cluster: the set of files considered
// related to the file currently being edited, derived from the import
// graph. Downstream signal gathering is filtered against this set.
package cluster

import (
	"sort"

	"ace/internal/depgraph"
)

// DefaultDepth is the standard expansion depth: direct plus second-degree
// imports alongside reverse dependencies.
const DefaultDepth = 2

// Build computes the focus cluster for focusFile.
//
// The cluster always contains focusFile itself, every file it directly
// imports, and every file that imports it (reverse dependencies, found
// by linear scan). For depth > 1, each additional level unions in the
// imports of the previous frontier; at the default depth of 2 that is
// exactly the imports of the direct dependencies. A file unknown to the
// graph yields {focusFile}. Import cycles need no special handling: set
// union is idempotent.
func Build(focusFile string, graph depgraph.Graph, depth int) map[string]struct{} {
	out := map[string]struct{}{focusFile: {}}
	if graph == nil {
		return out
	}

	frontier := make([]string, 0)
	for dep := range graph.Direct(focusFile) {
		out[dep] = struct{}{}
		frontier = append(frontier, dep)
	}

	for _, importer := range graph.Importers(focusFile) {
		out[importer] = struct{}{}
	}

	for level := 1; level < depth; level++ {
		next := make([]string, 0)
		for _, file := range frontier {
			for dep := range graph.Direct(file) {
				if _, seen := out[dep]; !seen {
					next = append(next, dep)
				}
				out[dep] = struct{}{}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	return out
}

// Paths returns the cluster as a sorted slice, the canonical order used
// for fingerprinting and display.
func Paths(cluster map[string]struct{}) []string {
	paths := make([]string, 0, len(cluster))
	for p := range cluster {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Contains reports whether path is part of the cluster. An empty path is
// treated as in-cluster so project-wide signals are never filtered out.
func Contains(cluster map[string]struct{}, path string) bool {
	if path == "" {
		return true
	}
	_, ok := cluster[path]
	return ok
}
