// Package allocator packs scored signals into a hard token budget.
// The output packet is never over budget; that is the allocator's one
// correctness contract.
package allocator

import (
	"fmt"
	"sort"
	"strings"

	"ace/internal/logging"
	"ace/internal/relevance"
	"ace/internal/signal"
)

// DefaultBudget is the standard token ceiling for a context packet.
const DefaultBudget = 8000

// previewLength is how much signal content the prompt rendering shows.
const previewLength = 200

// ContextPacket is the budget-bounded, relevance-ranked subset of
// signals chosen for downstream consumption.
type ContextPacket struct {
	Signals         []signal.Signal    `json:"signals"`         // Selection order
	TotalTokens     int                `json:"totalTokens"`     // Sum of selected token costs
	BudgetRemaining int                `json:"budgetRemaining"` // budget - TotalTokens, >= 0
	FocusFile       string             `json:"focusFile"`
	RelevanceScores map[string]float64 `json:"relevanceScores"` // Signal key -> score, for explainability
}

// SignalKey builds the identity key used in RelevanceScores.
func SignalKey(s signal.Signal) string {
	return fmt.Sprintf("%s:%s:%v", s.Source, s.FilePath, s.Timestamp)
}

// Allocator fills a fixed token budget with the highest-value signals.
type Allocator struct {
	scorer *relevance.Scorer
	budget int
	logger *logging.Logger
}

// NewAllocator creates an allocator over the given scorer. A negative
// budget falls back to DefaultBudget; zero is a valid (empty) budget.
func NewAllocator(scorer *relevance.Scorer, budget int, logger *logging.Logger) *Allocator {
	if budget < 0 {
		budget = DefaultBudget
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Allocator{scorer: scorer, budget: budget, logger: logger}
}

// Budget returns the configured token ceiling.
func (a *Allocator) Budget() int {
	return a.budget
}

// Allocate scores every candidate signal, sorts by score descending
// (stable: ties keep input order, which makes repeated runs over the
// same input reproducible), then walks the sorted list once taking each
// signal that still fits. A signal that would overflow is skipped and
// the walk continues, so a smaller lower-scored signal later in the
// order can still be selected. This is first-fit-after-sort, not a
// knapsack optimum.
func (a *Allocator) Allocate(signals []signal.Signal, focusFile string, focusSymbols []string, now float64) *ContextPacket {
	type scored struct {
		sig   signal.Signal
		score float64
	}

	ranked := make([]scored, len(signals))
	for i, sig := range signals {
		ranked[i] = scored{sig: sig, score: a.scorer.Score(sig, focusFile, focusSymbols, now)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	selected := make([]signal.Signal, 0, len(ranked))
	scores := make(map[string]float64, len(ranked))
	totalTokens := 0

	for _, r := range ranked {
		if totalTokens+r.sig.TokenCost > a.budget {
			continue
		}
		selected = append(selected, r.sig)
		totalTokens += r.sig.TokenCost
		scores[SignalKey(r.sig)] = r.score
	}

	a.logger.Debug("packet allocated", logging.Fields{
		"selected":   len(selected),
		"candidates": len(signals),
		"tokens":     totalTokens,
		"budget":     a.budget,
	})

	return &ContextPacket{
		Signals:         selected,
		TotalTokens:     totalTokens,
		BudgetRemaining: a.budget - totalTokens,
		FocusFile:       focusFile,
		RelevanceScores: scores,
	}
}

// FormatForLLM renders the packet into a prompt-ready block, ranked
// entries with severity, score and a content preview.
func FormatForLLM(packet *ContextPacket) string {
	var b strings.Builder
	b.WriteString("=== ADAPTIVE CONTEXT (Ranked by Relevance) ===\n")
	fmt.Fprintf(&b, "Focus: %s\n", packet.FocusFile)
	fmt.Fprintf(&b, "Signals: %d | Tokens: %d\n\n", len(packet.Signals), packet.TotalTokens)

	for _, sig := range packet.Signals {
		score := packet.RelevanceScores[SignalKey(sig)]
		fmt.Fprintf(&b, "[%s] (%s) [%.2f] %s\n", sig.Source, sig.Severity, score, sig.FilePath)
		preview := sig.Content
		if len(preview) > previewLength {
			preview = preview[:previewLength] + "..."
		}
		fmt.Fprintf(&b, "  %s\n\n", preview)
	}

	b.WriteString("=== END CONTEXT ===")
	return b.String()
}
