// Package signal defines the common currency of the engine: a single
// timestamped, severity-tagged observation about a file or the project,
// produced by an external collector (linter, log tailer, audit probe).
package signal

import "strings"

// ContentKeyLength is the number of leading content characters (runes,
// not bytes) used as a signal's identity for deduplication and fix
// verification.
const ContentKeyLength = 50

// Signal is one observed fact. Signals are immutable once created; every
// field is always present, with empty values standing in for "unknown".
type Signal struct {
	Source    string   `json:"source"`    // Producer tag, e.g. "LINTER", "LOG_TAIL"
	FilePath  string   `json:"filePath"`  // File this signal relates to; empty for project-wide signals
	Content   string   `json:"content"`   // Human-readable text (error message, snippet, note)
	Severity  string   `json:"severity"`  // CRITICAL, FATAL, ERROR, WARNING, INFO, DEBUG
	Timestamp float64  `json:"timestamp"` // Seconds since epoch
	Symbols   []string `json:"symbols"`   // Identifiers the signal mentions
	TokenCost int      `json:"tokenCost"` // Estimated tokens if included verbatim, >= 0
}

// ContentKey returns the first ContentKeyLength characters of Content.
//
// This is a deliberately lossy identity: two distinct long messages that
// share a 50-character prefix are treated as the same signal. Changing
// the prefix length would change observable dedup and regression
// classification, so it stays as-is.
func (s Signal) ContentKey() string {
	runes := []rune(s.Content)
	if len(runes) <= ContentKeyLength {
		return s.Content
	}
	return string(runes[:ContentKeyLength])
}

// IsError reports whether the signal carries error severity
// (ERROR, CRITICAL or FATAL, case-insensitive).
func (s Signal) IsError() bool {
	switch strings.ToUpper(s.Severity) {
	case "ERROR", "CRITICAL", "FATAL":
		return true
	}
	return false
}

// severityWeights maps normalized severity strings to their relevance
// contribution.
var severityWeights = map[string]float64{
	"CRITICAL": 1.0,
	"FATAL":    1.0,
	"ERROR":    0.8,
	"WARNING":  0.5,
	"WARN":     0.5,
	"INFO":     0.2,
	"DEBUG":    0.1,
}

// defaultSeverityWeight is used for unrecognized severity strings.
const defaultSeverityWeight = 0.3

// SeverityWeight returns the relevance weight for a severity string,
// case-insensitive. Unknown severities get a middling default.
func SeverityWeight(severity string) float64 {
	if w, ok := severityWeights[strings.ToUpper(severity)]; ok {
		return w
	}
	return defaultSeverityWeight
}

// ContentKeySet collects the content keys of a signal slice into a set.
func ContentKeySet(signals []Signal) map[string]struct{} {
	keys := make(map[string]struct{}, len(signals))
	for _, s := range signals {
		keys[s.ContentKey()] = struct{}{}
	}
	return keys
}

// FilterErrors returns the subset of signals with error severity,
// preserving input order.
func FilterErrors(signals []Signal) []Signal {
	errs := make([]Signal, 0, len(signals))
	for _, s := range signals {
		if s.IsError() {
			errs = append(errs, s)
		}
	}
	return errs
}
