// Package verify tracks active issues and confirms resolution after
// fixes. An issue is fingerprinted from its focus cluster and initial
// error content; later signal snapshots are classified as resolved,
// regression or incomplete against that baseline.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ace/internal/logging"
	"ace/internal/signal"
)

// Status values returned by VerifyFix.
const (
	StatusNotFound   = "NOT_FOUND"
	StatusResolved   = "RESOLVED"
	StatusRegression = "REGRESSION"
	StatusIncomplete = "INCOMPLETE"
)

// Action values suggested alongside a status.
const (
	ActionClose = "CLOSE"
	ActionRetry = "RETRY"
)

// fingerprintLength is the number of hex characters kept from the hash.
const fingerprintLength = 16

// ActiveIssue represents an issue being actively debugged. Owned
// exclusively by the Director; callers receive copies.
type ActiveIssue struct {
	Fingerprint    string          `json:"fingerprint"`
	FocusFile      string          `json:"focusFile"`
	FocusCluster   []string        `json:"focusCluster"`
	InitialError   string          `json:"initialError"`
	InitialSignals []signal.Signal `json:"initialSignals"`
	CreatedAt      float64         `json:"createdAt"`
	FixAttempts    int             `json:"fixAttempts"`
	Resolved       bool            `json:"resolved"`
}

// Result is the outcome of a verification attempt.
type Result struct {
	Status           string          `json:"status"`
	Message          string          `json:"message"`
	Action           string          `json:"action,omitempty"`
	NewSignals       []signal.Signal `json:"newSignals,omitempty"`       // Errors not in the baseline
	RemainingSignals []signal.Signal `json:"remainingSignals,omitempty"` // Baseline errors still present
}

// LedgerEvent records one averted disaster for the external ROI ledger.
type LedgerEvent struct {
	ProjectID     string
	Reason        string
	ValueSaved    int
	TechnicalDebt string
}

// Ledger is the external sink for resolution events. Writes are
// fire-and-forget: a failed write is logged but never rolls back the
// resolved flag; retry policy belongs to the implementation.
type Ledger interface {
	Record(event LedgerEvent) error
}

// Director is the stateful registry of in-flight issues. All registry
// access goes through one mutex; no operation can observe a partially
// updated issue. Safe for concurrent use.
type Director struct {
	mu        sync.Mutex
	issues    map[string]*ActiveIssue
	ledger    Ledger
	projectID string
	logger    *logging.Logger
	now       func() float64
}

// NewDirector creates a Director writing resolution events for
// projectID to ledger. ledger may be nil when no sink is configured.
func NewDirector(ledger Ledger, projectID string, logger *logging.Logger) *Director {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Director{
		issues:    make(map[string]*ActiveIssue),
		ledger:    ledger,
		projectID: projectID,
		logger:    logger,
		now:       func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// Fingerprint derives the deterministic issue identity from the sorted
// cluster paths and the first three error signals' content keys.
func Fingerprint(clusterPaths []string, errorSignals []signal.Signal) string {
	sorted := make([]string, len(clusterPaths))
	copy(sorted, clusterPaths)
	sort.Strings(sorted)

	head := errorSignals
	if len(head) > 3 {
		head = head[:3]
	}
	keys := make([]string, len(head))
	for i, s := range head {
		keys[i] = s.ContentKey()
	}

	sum := sha256.Sum256([]byte(strings.Join(sorted, ":") + "|" + strings.Join(keys, ":")))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// RegisterIssue records a new active issue and returns its fingerprint.
// Registering an already-known fingerprint is a no-op beyond a debug
// line, so repeated focus events on a broken file do not double-count.
func (d *Director) RegisterIssue(focusFile string, clusterPaths []string, errorSignals []signal.Signal) string {
	fingerprint := Fingerprint(clusterPaths, errorSignals)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.issues[fingerprint]; exists {
		d.logger.Debug("issue already registered", logging.Fields{"fingerprint": fingerprint})
		return fingerprint
	}

	head := errorSignals
	if len(head) > 3 {
		head = head[:3]
	}
	keys := make([]string, len(head))
	for i, s := range head {
		keys[i] = s.ContentKey()
	}

	clusterCopy := make([]string, len(clusterPaths))
	copy(clusterCopy, clusterPaths)
	signalsCopy := make([]signal.Signal, len(errorSignals))
	copy(signalsCopy, errorSignals)

	d.issues[fingerprint] = &ActiveIssue{
		Fingerprint:    fingerprint,
		FocusFile:      focusFile,
		FocusCluster:   clusterCopy,
		InitialError:   strings.Join(keys, ":"),
		InitialSignals: signalsCopy,
		CreatedAt:      d.now(),
	}

	d.logger.Info("registered issue", logging.Fields{
		"fingerprint": fingerprint,
		"focusFile":   focusFile,
		"errors":      len(errorSignals),
	})

	return fingerprint
}

// VerifyFix classifies a fresh signal snapshot against the issue's
// baseline. The original errors gone and nothing new: RESOLVED (and the
// resolution is written to the ledger exactly once). Any new error:
// REGRESSION, even when original errors also remain. Otherwise the
// original errors persist: INCOMPLETE. Each call counts as one fix
// attempt.
func (d *Director) VerifyFix(fingerprint string, currentSignals []signal.Signal) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	issue, ok := d.issues[fingerprint]
	if !ok {
		return Result{Status: StatusNotFound, Message: "Issue not registered."}
	}

	issue.FixAttempts++

	original := signal.ContentKeySet(issue.InitialSignals)
	currentErrors := signal.FilterErrors(currentSignals)
	current := signal.ContentKeySet(currentErrors)

	remaining := intersect(original, current)
	newKeys := subtract(current, original)

	switch {
	case len(remaining) == 0 && len(newKeys) == 0:
		issue.Resolved = true
		d.recordResolution(issue)
		return Result{
			Status:  StatusResolved,
			Message: fmt.Sprintf("Issue %s resolved after %d attempt(s).", fingerprint[:8], issue.FixAttempts),
			Action:  ActionClose,
		}

	case len(newKeys) > 0:
		return Result{
			Status:     StatusRegression,
			Message:    fmt.Sprintf("Fix introduced %d new error(s).", len(newKeys)),
			Action:     ActionRetry,
			NewSignals: filterByKey(currentErrors, newKeys),
		}

	default:
		return Result{
			Status:           StatusIncomplete,
			Message:          fmt.Sprintf("%d original error(s) still present.", len(remaining)),
			Action:           ActionRetry,
			RemainingSignals: filterByKey(currentErrors, remaining),
		}
	}
}

// recordResolution writes the averted-disaster event. Called with the
// mutex held; the resolved flag is already set and stays set even when
// the ledger write fails.
func (d *Director) recordResolution(issue *ActiveIssue) {
	d.logger.Info("issue resolved", logging.Fields{
		"fingerprint": issue.Fingerprint,
		"attempts":    issue.FixAttempts,
	})

	if d.ledger == nil {
		return
	}

	debtPaths := issue.FocusCluster
	if len(debtPaths) > 3 {
		debtPaths = debtPaths[:3]
	}
	initialError := issue.InitialError
	if runes := []rune(initialError); len(runes) > 50 {
		initialError = string(runes[:50])
	}

	event := LedgerEvent{
		ProjectID:     d.projectID,
		Reason:        fmt.Sprintf("Resolved issue in %s: %s", issue.FocusFile, initialError),
		ValueSaved:    50 * issue.FixAttempts,
		TechnicalDebt: fmt.Sprintf("Cluster: %s", strings.Join(debtPaths, ", ")),
	}

	if err := d.ledger.Record(event); err != nil {
		d.logger.Warn("ledger write failed", logging.Fields{
			"fingerprint": issue.Fingerprint,
			"error":       err.Error(),
		})
	}
}

// ActiveIssues returns copies of all currently unresolved issues.
func (d *Director) ActiveIssues() []ActiveIssue {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ActiveIssue, 0, len(d.issues))
	for _, issue := range d.issues {
		if !issue.Resolved {
			out = append(out, *issue)
		}
	}
	return out
}

// Snapshot returns copies of every registered issue, resolved ones
// included, sorted by fingerprint. Hosts that outlive the process use
// it to persist the registry between runs.
func (d *Director) Snapshot() []ActiveIssue {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ActiveIssue, 0, len(d.issues))
	for _, issue := range d.issues {
		out = append(out, *issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

// Restore loads previously snapshotted issues into the registry.
// Issues without a fingerprint are skipped; a restored fingerprint
// replaces any issue already registered under it.
func (d *Director) Restore(issues []ActiveIssue) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, issue := range issues {
		if issue.Fingerprint == "" {
			continue
		}
		restored := issue
		d.issues[restored.Fingerprint] = &restored
	}
}

// ClearResolved drops all resolved issues from the registry. Open
// issues are untouched.
func (d *Director) ClearResolved() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	cleared := 0
	for fp, issue := range d.issues {
		if issue.Resolved {
			delete(d.issues, fp)
			cleared++
		}
	}

	d.logger.Info("cleared resolved issues", logging.Fields{"count": cleared})
	return cleared
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func subtract(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func filterByKey(signals []signal.Signal, keys map[string]struct{}) []signal.Signal {
	out := make([]signal.Signal, 0, len(signals))
	for _, s := range signals {
		if _, ok := keys[s.ContentKey()]; ok {
			out = append(out, s)
		}
	}
	return out
}
