package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ace/internal/cluster"
	"ace/internal/depgraph"
	"ace/internal/signal"
	"ace/internal/verify"
)

type recordingLedger struct {
	mu     sync.Mutex
	events []verify.LedgerEvent
}

func (r *recordingLedger) Record(event verify.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingLedger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// staticSource returns a fixed signal list filtered by cluster
// membership, the way external collectors are expected to behave.
type staticSource struct {
	signals []signal.Signal
	calls   int
}

func (s *staticSource) Gather(_ context.Context, focusCluster map[string]struct{}) ([]signal.Signal, error) {
	s.calls++
	var out []signal.Signal
	for _, sig := range s.signals {
		if cluster.Contains(focusCluster, sig.FilePath) {
			out = append(out, sig)
		}
	}
	return out, nil
}

func testGraph() depgraph.Graph {
	g := depgraph.New()
	g.AddAll("auth.py", "session.py")
	g.AddAll("api.py", "auth.py")
	return g
}

func newTestEngine(t *testing.T, source SignalSource, ledger verify.Ledger) *Engine {
	t.Helper()
	now := 1_000_000.0
	e, err := New(testGraph(), source, Options{
		TokenBudget: 500,
		ProjectID:   "test-project",
		Ledger:      ledger,
		Now:         func() float64 { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := New(testGraph(), nil, Options{}); err == nil {
		t.Error("expected error for nil signal source")
	}
}

func TestProcessFocusEventFiltersAndAllocates(t *testing.T) {
	source := &staticSource{signals: []signal.Signal{
		{Source: "LINT", FilePath: "session.py", Content: "in-cluster", Severity: "WARN", Timestamp: 999_990, TokenCost: 10},
		{Source: "LINT", FilePath: "billing.py", Content: "out-of-cluster", Severity: "WARN", Timestamp: 999_990, TokenCost: 10},
		{Source: "LOG", FilePath: "", Content: "project-wide", Severity: "INFO", Timestamp: 999_990, TokenCost: 10},
	}}

	e := newTestEngine(t, source, nil)
	packet, err := e.ProcessFocusEvent(context.Background(), "auth.py", nil)
	if err != nil {
		t.Fatalf("ProcessFocusEvent: %v", err)
	}

	if packet.FocusFile != "auth.py" {
		t.Errorf("FocusFile = %s, want auth.py", packet.FocusFile)
	}
	for _, s := range packet.Signals {
		if s.Content == "out-of-cluster" {
			t.Error("signal outside the cluster must not reach the packet")
		}
	}
	if len(packet.Signals) != 2 {
		t.Errorf("expected 2 signals (in-cluster + project-wide), got %d", len(packet.Signals))
	}
	if packet.TotalTokens > 500 {
		t.Errorf("budget overrun: %d", packet.TotalTokens)
	}
}

func TestProcessFocusEventRegistersErrors(t *testing.T) {
	source := &staticSource{signals: []signal.Signal{
		{Source: "FORENSIC", FilePath: "session.py", Content: "session.user can be None", Severity: "ERROR", Timestamp: 999_990, TokenCost: 20},
	}}

	e := newTestEngine(t, source, nil)
	if _, err := e.ProcessFocusEvent(context.Background(), "auth.py", []string{"Session"}); err != nil {
		t.Fatalf("ProcessFocusEvent: %v", err)
	}

	active := e.Director().ActiveIssues()
	if len(active) != 1 {
		t.Fatalf("expected 1 registered issue, got %d", len(active))
	}
	if active[0].FocusFile != "auth.py" {
		t.Errorf("issue FocusFile = %s, want auth.py", active[0].FocusFile)
	}

	// A second identical focus event must not duplicate the issue.
	if _, err := e.ProcessFocusEvent(context.Background(), "auth.py", []string{"Session"}); err != nil {
		t.Fatal(err)
	}
	if got := len(e.Director().ActiveIssues()); got != 1 {
		t.Errorf("expected idempotent registration, got %d issues", got)
	}
}

func TestProcessFocusEventNoErrorsNoIssue(t *testing.T) {
	source := &staticSource{signals: []signal.Signal{
		{Source: "LOG", FilePath: "auth.py", Content: "all good", Severity: "INFO", Timestamp: 999_990, TokenCost: 5},
	}}

	e := newTestEngine(t, source, nil)
	if _, err := e.ProcessFocusEvent(context.Background(), "auth.py", nil); err != nil {
		t.Fatal(err)
	}
	if got := len(e.Director().ActiveIssues()); got != 0 {
		t.Errorf("expected no issues for a clean packet, got %d", got)
	}
}

func TestVerifyAfterFixResolves(t *testing.T) {
	ledger := &recordingLedger{}
	source := &staticSource{signals: []signal.Signal{
		{Source: "FORENSIC", FilePath: "auth.py", Content: "NoneType has no attribute x", Severity: "ERROR", Timestamp: 999_990, TokenCost: 20},
	}}

	e := newTestEngine(t, source, ledger)
	if _, err := e.ProcessFocusEvent(context.Background(), "auth.py", nil); err != nil {
		t.Fatal(err)
	}

	// Simulate the fix: collectors stop reporting the error.
	source.signals = nil

	results, err := e.VerifyAfterFix(context.Background(), "auth.py")
	if err != nil {
		t.Fatalf("VerifyAfterFix: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 verification result, got %d", len(results))
	}
	if results[0].Status != verify.StatusResolved {
		t.Errorf("Status = %s, want %s", results[0].Status, verify.StatusResolved)
	}
	if ledger.count() != 1 {
		t.Errorf("expected exactly 1 ledger write, got %d", ledger.count())
	}
	if got := len(e.Director().ActiveIssues()); got != 0 {
		t.Errorf("expected no active issues after resolution, got %d", got)
	}
}

func TestVerifyAfterFixOnlyTargetsFocusFile(t *testing.T) {
	source := &staticSource{signals: []signal.Signal{
		{Source: "F", FilePath: "auth.py", Content: "auth broken", Severity: "ERROR", Timestamp: 999_990, TokenCost: 10},
	}}

	e := newTestEngine(t, source, nil)
	if _, err := e.ProcessFocusEvent(context.Background(), "auth.py", nil); err != nil {
		t.Fatal(err)
	}

	// An unrelated file has no registered issues: nothing to verify.
	results, err := e.VerifyAfterFix(context.Background(), "billing.py")
	if err != nil {
		t.Fatalf("VerifyAfterFix: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for a file without issues, got %d", len(results))
	}
	if got := len(e.Director().ActiveIssues()); got != 1 {
		t.Errorf("auth.py issue must remain open, got %d active", got)
	}
}

func TestGatherErrorPropagates(t *testing.T) {
	failing := SignalSourceFunc(func(context.Context, map[string]struct{}) ([]signal.Signal, error) {
		return nil, errors.New("collector offline")
	})

	e := newTestEngine(t, failing, nil)
	if _, err := e.ProcessFocusEvent(context.Background(), "auth.py", nil); err == nil {
		t.Error("expected gather error to propagate")
	}
	if _, err := e.VerifyAfterFix(context.Background(), "auth.py"); err == nil {
		t.Error("expected gather error to propagate from VerifyAfterFix")
	}
}

func TestFocusClusterCaching(t *testing.T) {
	source := &staticSource{}
	e := newTestEngine(t, source, nil)

	first := e.FocusCluster("auth.py")
	second := e.FocusCluster("auth.py")
	if len(first) != len(second) {
		t.Fatal("cached cluster differs from first build")
	}
	if !cluster.Contains(first, "session.py") || !cluster.Contains(first, "api.py") {
		t.Errorf("unexpected cluster contents: %v", cluster.Paths(first))
	}

	// Swapping the graph drops the cache: auth.py is now unknown.
	e.SetGraph(depgraph.New())
	after := e.FocusCluster("auth.py")
	if len(after) != 1 {
		t.Errorf("expected singleton cluster after graph swap, got %v", cluster.Paths(after))
	}
}

func TestFocusClusterReturnsCopy(t *testing.T) {
	e := newTestEngine(t, &staticSource{}, nil)

	// A careless caller (or signal source) emptying the returned map
	// must not affect later focus events.
	first := e.FocusCluster("auth.py")
	for path := range first {
		delete(first, path)
	}

	second := e.FocusCluster("auth.py")
	if !cluster.Contains(second, "session.py") || !cluster.Contains(second, "api.py") {
		t.Errorf("mutation of a returned cluster reached the cache: %v", cluster.Paths(second))
	}
}
