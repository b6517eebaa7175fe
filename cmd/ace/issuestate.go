package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ace/internal/verify"
)

// issuesFileName holds the issue registry snapshot between invocations.
// The registry itself is in-memory; each command restores it on setup
// and writes it back on teardown so focus, verify and issues see the
// same issues across processes.
const issuesFileName = "issues.json"

func issuesFilePath(stateDir string) string {
	return filepath.Join(stateDir, issuesFileName)
}

// loadIssues reads the persisted registry snapshot. A missing file is
// an empty registry, not an error.
func loadIssues(stateDir string) ([]verify.ActiveIssue, error) {
	data, err := os.ReadFile(issuesFilePath(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read issue registry: %w", err)
	}
	var issues []verify.ActiveIssue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("parse issue registry: %w", err)
	}
	return issues, nil
}

// saveIssues writes the registry snapshot, replacing any previous one.
func saveIssues(stateDir string, issues []verify.ActiveIssue) error {
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return fmt.Errorf("encode issue registry: %w", err)
	}
	if err := os.WriteFile(issuesFilePath(stateDir), data, 0o644); err != nil {
		return fmt.Errorf("write issue registry: %w", err)
	}
	return nil
}
