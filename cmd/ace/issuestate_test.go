package main

import (
	"os"
	"path/filepath"
	"testing"

	"ace/internal/signal"
	"ace/internal/verify"
)

func TestIssueRegistryRoundTrip(t *testing.T) {
	stateDir := t.TempDir()

	// First invocation registers an issue and persists its registry on
	// teardown, as runtime.close does.
	first := verify.NewDirector(nil, "test-project", nil)
	fp := first.RegisterIssue("auth.py", []string{"auth.py", "session.py"}, []signal.Signal{{
		Source:   "LOG_TAIL",
		FilePath: "auth.py",
		Content:  "NoneType has no attribute x",
		Severity: "ERROR",
	}})
	if err := saveIssues(stateDir, first.Snapshot()); err != nil {
		t.Fatalf("saveIssues: %v", err)
	}

	// A second invocation starts with a fresh director and must see the
	// issue the first one registered.
	loaded, err := loadIssues(stateDir)
	if err != nil {
		t.Fatalf("loadIssues: %v", err)
	}
	second := verify.NewDirector(nil, "test-project", nil)
	second.Restore(loaded)

	issues := second.ActiveIssues()
	if len(issues) != 1 || issues[0].Fingerprint != fp {
		t.Fatalf("second invocation sees %d issues, want the one registered first (%s)", len(issues), fp)
	}
	if res := second.VerifyFix(fp, nil); res.Status != verify.StatusResolved {
		t.Errorf("VerifyFix across invocations = %s, want %s", res.Status, verify.StatusResolved)
	}
}

func TestLoadIssuesMissingFile(t *testing.T) {
	issues, err := loadIssues(t.TempDir())
	if err != nil {
		t.Fatalf("loadIssues: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("expected empty registry for missing file, got %d issues", len(issues))
	}
}

func TestLoadIssuesInvalid(t *testing.T) {
	stateDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(stateDir, issuesFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadIssues(stateDir); err == nil {
		t.Error("expected error for malformed registry file")
	}
}
