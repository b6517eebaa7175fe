package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ace/internal/cluster"
	"ace/internal/engine"
	"ace/internal/signal"
)

// signalsFile is the on-disk layout of a --signals YAML document.
type signalsFile struct {
	Signals []signalEntry `yaml:"signals"`
}

type signalEntry struct {
	Source    string   `yaml:"source"`
	FilePath  string   `yaml:"filePath"`
	Content   string   `yaml:"content"`
	Severity  string   `yaml:"severity"`
	Timestamp float64  `yaml:"timestamp"`
	Symbols   []string `yaml:"symbols"`
	TokenCost int      `yaml:"tokenCost"`
}

// loadSignalsFile parses a YAML signal document. Entries without a
// timestamp get the current time, matching how live collectors stamp
// signals on receipt.
func loadSignalsFile(path string) ([]signal.Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signals file: %w", err)
	}

	var doc signalsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse signals file: %w", err)
	}

	now := float64(time.Now().UnixNano()) / 1e9
	signals := make([]signal.Signal, len(doc.Signals))
	for i, e := range doc.Signals {
		ts := e.Timestamp
		if ts == 0 {
			ts = now
		}
		signals[i] = signal.Signal{
			Source:    e.Source,
			FilePath:  e.FilePath,
			Content:   e.Content,
			Severity:  e.Severity,
			Timestamp: ts,
			Symbols:   e.Symbols,
			TokenCost: e.TokenCost,
		}
	}
	return signals, nil
}

// signalSourceFromFlag builds the engine's signal source. Without a
// --signals file the source is empty: the CLI has no live collectors.
func signalSourceFromFlag(path string) (engine.SignalSource, error) {
	if path == "" {
		return engine.SignalSourceFunc(func(context.Context, map[string]struct{}) ([]signal.Signal, error) {
			return nil, nil
		}), nil
	}

	signals, err := loadSignalsFile(path)
	if err != nil {
		return nil, err
	}

	return engine.SignalSourceFunc(func(_ context.Context, focusCluster map[string]struct{}) ([]signal.Signal, error) {
		var out []signal.Signal
		for _, s := range signals {
			if cluster.Contains(focusCluster, s.FilePath) {
				out = append(out, s)
			}
		}
		return out, nil
	}), nil
}
