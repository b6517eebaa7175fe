package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ace/internal/config"
	"ace/internal/depgraph"
	"ace/internal/engine"
	"ace/internal/ledger"
	"ace/internal/logging"
	"ace/internal/project"
)

const version = "0.3.0"

var (
	projectRootFlag string
	budgetFlag      int
	depthFlag       int
	signalsFlag     string
	logLevelFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "ace",
	Short: "ACE - Adaptive Context Engine",
	Long: `ACE selects the diagnostic signals most relevant to the file you are
working on, packs them into a fixed token budget, and tracks whether
reported fixes actually resolved the issues it saw.`,
	Version: version,
}

func init() {
	rootCmd.SetVersionTemplate("ACE version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&projectRootFlag, "project-root", ".", "Project root directory")
	rootCmd.PersistentFlags().IntVar(&budgetFlag, "budget", 0, "Token budget override (default: from config)")
	rootCmd.PersistentFlags().IntVar(&depthFlag, "depth", 0, "Cluster depth override (default: from config)")
	rootCmd.PersistentFlags().StringVar(&signalsFlag, "signals", "", "YAML file with candidate signals")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level override: debug, info, warn, error")
}

// runtime bundles everything a command needs after setup.
type runtime struct {
	cfg      *config.Config
	logger   *logging.Logger
	manifest *project.Manifest
	stateDir string
	ledger   *ledger.Store
	engine   *engine.Engine
}

// close persists the issue registry and releases the ledger. A failed
// snapshot write is logged, not fatal: the command's own output already
// happened.
func (r *runtime) close() {
	if r.engine != nil {
		if err := saveIssues(r.stateDir, r.engine.Director().Snapshot()); err != nil {
			r.logger.Warn("issue registry not saved", logging.Fields{"error": err.Error()})
		}
	}
	if r.ledger != nil {
		r.ledger.Close()
	}
}

// setup loads config, project identity, the import index, the ledger
// and the engine for the configured project root.
func setup() (*runtime, error) {
	root := projectRootFlag
	if root == "" {
		root = "."
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if budgetFlag > 0 {
		cfg.TokenBudget = budgetFlag
	}
	if depthFlag > 0 {
		cfg.ClusterDepth = depthFlag
	}

	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(level),
		Output: os.Stderr,
	})

	stateDir := config.StateDir(root)
	manifest, err := project.Load(root, stateDir)
	if err != nil {
		return nil, err
	}

	graph, err := depgraph.Load(cfg.ResolveIndexPath(root))
	if err != nil {
		return nil, err
	}
	if graph.Len() == 0 {
		logger.Warn("import index empty or missing", logging.Fields{
			"path": cfg.ResolveIndexPath(root),
		})
	}

	store, err := ledger.Open(stateDir, logger)
	if err != nil {
		return nil, err
	}

	source, err := signalSourceFromFlag(signalsFlag)
	if err != nil {
		store.Close()
		return nil, err
	}

	eng, err := engine.New(graph, source, engine.Options{
		TokenBudget:  cfg.TokenBudget,
		ClusterDepth: cfg.ClusterDepth,
		ProjectID:    manifest.ID,
		Ledger:       store,
		Logger:       logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init engine: %w", err)
	}

	issues, err := loadIssues(stateDir)
	if err != nil {
		store.Close()
		return nil, err
	}
	eng.Director().Restore(issues)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		manifest: manifest,
		stateDir: stateDir,
		ledger:   store,
		engine:   eng,
	}, nil
}
