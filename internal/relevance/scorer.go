// Package relevance scores signals against the user's current focus.
// Higher score = more relevant. Range: 0.0 to 1.0.
package relevance

import (
	"path/filepath"
	"strings"

	"ace/internal/depgraph"
	"ace/internal/signal"
)

// Weights for the four scoring factors. They sum to 1.0.
const (
	WeightImportDistance = 0.35
	WeightRecency        = 0.25
	WeightSeverity       = 0.25
	WeightSymbolMatch    = 0.15
)

// Recency decay boundaries, in seconds.
const (
	recencyFreshWindow = 60.0
	recencyDecayWindow = 600.0
	recencyFloor       = 0.1
)

// Scorer computes relevance scores over a fixed dependency graph.
// Scorers are stateless beyond the graph reference and safe for
// concurrent use.
type Scorer struct {
	graph depgraph.Graph
}

// NewScorer creates a scorer for the given dependency graph. A nil
// graph is valid and degrades import-distance scoring to its defaults.
func NewScorer(graph depgraph.Graph) *Scorer {
	return &Scorer{graph: graph}
}

// Score rates one signal against the focus. now is the caller's clock
// in epoch seconds; passing it explicitly keeps scoring deterministic
// and repeatable for a fixed input.
func (sc *Scorer) Score(sig signal.Signal, focusFile string, focusSymbols []string, now float64) float64 {
	score := WeightImportDistance*sc.scoreImportDistance(sig.FilePath, focusFile) +
		WeightRecency*scoreRecency(sig.Timestamp, now) +
		WeightSeverity*signal.SeverityWeight(sig.Severity) +
		WeightSymbolMatch*scoreSymbolMatch(sig.Symbols, focusSymbols, focusFile)

	return clamp01(score)
}

// scoreImportDistance rates how close the signal's file sits to the
// focus file in the import graph. Rules are checked in order; the first
// match wins, so inconsistent graph data still yields deterministic
// results.
func (sc *Scorer) scoreImportDistance(signalFile, focusFile string) float64 {
	if signalFile == "" || focusFile == "" {
		return 0.3 // Generic signal, some relevance
	}
	if signalFile == focusFile {
		return 1.0
	}

	if sc.graph.Imports(focusFile, signalFile) {
		return 0.9 // Direct import
	}
	if sc.graph.Imports(signalFile, focusFile) {
		return 0.85 // Reverse dependency
	}

	for dep := range sc.graph.Direct(focusFile) {
		if sc.graph.Imports(dep, signalFile) {
			return 0.6 // Second-degree import
		}
	}

	return 0.2 // Unrelated file
}

// scoreRecency gives full weight to signals under a minute old, decays
// linearly out to ten minutes, then holds a small floor so old signals
// never vanish entirely.
func scoreRecency(timestamp, now float64) float64 {
	age := now - timestamp
	switch {
	case age < recencyFreshWindow:
		return 1.0
	case age < recencyDecayWindow:
		return 1.0 - (age-recencyFreshWindow)/(recencyDecayWindow-recencyFreshWindow)
	default:
		return recencyFloor
	}
}

// scoreSymbolMatch rates the overlap between the signal's symbols and
// what the user is looking at. Signals that mention no symbols at all
// get a neutral default.
func scoreSymbolMatch(signalSymbols, focusSymbols []string, focusFile string) float64 {
	if len(signalSymbols) == 0 {
		return 0.3
	}

	focusName := ""
	if focusFile != "" {
		base := filepath.Base(focusFile)
		focusName = strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	}

	matches := 0
	totalChecks := len(focusSymbols) + 1 // +1 for the focus file name

	// One credit if any signal symbol mentions the focus file name.
	if focusName != "" {
		for _, sym := range signalSymbols {
			if strings.Contains(strings.ToLower(sym), focusName) {
				matches++
				break
			}
		}
	}

	// One credit per exact (case-insensitive) symbol overlap.
	focusSet := make(map[string]struct{}, len(focusSymbols))
	for _, s := range focusSymbols {
		focusSet[strings.ToLower(s)] = struct{}{}
	}
	seen := make(map[string]struct{}, len(signalSymbols))
	for _, s := range signalSymbols {
		lower := strings.ToLower(s)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		if _, ok := focusSet[lower]; ok {
			matches++
		}
	}

	return clamp01(float64(matches) / float64(totalChecks))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
