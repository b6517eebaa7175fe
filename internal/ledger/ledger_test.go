package ledger

import (
	"testing"

	"ace/internal/verify"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	events := []verify.LedgerEvent{
		{ProjectID: "proj", Reason: "Resolved issue in auth.py: boom", ValueSaved: 50, TechnicalDebt: "Cluster: auth.py"},
		{ProjectID: "proj", Reason: "Resolved issue in db.py: timeout", ValueSaved: 100, TechnicalDebt: "Cluster: db.py, pool.py"},
		{ProjectID: "other", Reason: "unrelated project", ValueSaved: 50},
	}
	for _, e := range events {
		if err := store.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := store.Recent("proj", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for proj, got %d", len(entries))
	}
	for _, e := range entries {
		if e.ProjectID != "proj" {
			t.Errorf("entry from wrong project: %s", e.ProjectID)
		}
		if e.ID == "" {
			t.Error("entry missing generated id")
		}
		if e.CreatedAt.IsZero() {
			t.Error("entry missing timestamp")
		}
	}
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 5; i++ {
		if err := store.Record(verify.LedgerEvent{ProjectID: "p", Reason: "r", ValueSaved: 50}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := store.Recent("p", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected limit of 3, got %d", len(entries))
	}
}

func TestRecentEmptyProject(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.Recent("nobody", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestTotalValueSaved(t *testing.T) {
	store := openTestStore(t)

	for _, v := range []int{50, 100, 150} {
		if err := store.Record(verify.LedgerEvent{ProjectID: "p", Reason: "r", ValueSaved: v}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	total, err := store.TotalValueSaved("p")
	if err != nil {
		t.Fatalf("TotalValueSaved: %v", err)
	}
	if total != 300 {
		t.Errorf("total = %d, want 300", total)
	}

	empty, err := store.TotalValueSaved("nobody")
	if err != nil {
		t.Fatalf("TotalValueSaved: %v", err)
	}
	if empty != 0 {
		t.Errorf("total for unknown project = %d, want 0", empty)
	}
}

func TestStoreSatisfiesLedgerInterface(t *testing.T) {
	var _ verify.Ledger = openTestStore(t)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(verify.LedgerEvent{ProjectID: "p", Reason: "persisted", ValueSaved: 50}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	store.Close()

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.Recent("p", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Reason != "persisted" {
		t.Errorf("expected persisted entry after reopen, got %+v", entries)
	}
}
