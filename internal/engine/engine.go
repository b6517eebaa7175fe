// Package engine composes the focus-cluster builder, relevance scorer,
// budget allocator and verification director into the per-focus-event
// pipeline. Signal gathering stays external behind SignalSource.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"ace/internal/allocator"
	"ace/internal/cluster"
	"ace/internal/depgraph"
	"ace/internal/logging"
	"ace/internal/relevance"
	"ace/internal/signal"
	"ace/internal/verify"
)

// clusterCacheSize bounds the number of memoized focus clusters.
const clusterCacheSize = 256

// SignalSource gathers candidate signals for a focus cluster. The
// engine never fetches signals itself; collectors (log tailers, audit
// stores, linters) sit behind this interface.
type SignalSource interface {
	Gather(ctx context.Context, focusCluster map[string]struct{}) ([]signal.Signal, error)
}

// SignalSourceFunc adapts a function to the SignalSource interface.
type SignalSourceFunc func(ctx context.Context, focusCluster map[string]struct{}) ([]signal.Signal, error)

// Gather implements SignalSource.
func (f SignalSourceFunc) Gather(ctx context.Context, focusCluster map[string]struct{}) ([]signal.Signal, error) {
	return f(ctx, focusCluster)
}

// Options configures an Engine.
type Options struct {
	TokenBudget  int           // Packet ceiling; negative means allocator.DefaultBudget
	ClusterDepth int           // Cluster expansion depth; <= 0 means cluster.DefaultDepth
	ProjectID    string        // Feeds ledger events
	Ledger       verify.Ledger // Resolution sink; may be nil
	Logger       *logging.Logger
	Now          func() float64 // Clock in epoch seconds; nil means wall clock
}

// Engine is the composition point. Cluster building, scoring and
// allocation are stateless; the issue registry lives in the director
// and the only other mutable state is the swappable graph plus its
// cluster cache, both guarded here.
type Engine struct {
	mu        sync.RWMutex
	graph     depgraph.Graph
	allocator *allocator.Allocator
	clusters  *lru.Cache[string, map[string]struct{}]

	director *verify.Director
	source   SignalSource
	depth    int
	budget   int
	logger   *logging.Logger
	now      func() float64
}

// New creates an engine over the given dependency graph and signal
// source.
func New(graph depgraph.Graph, source SignalSource, opts Options) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("signal source is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscard()
	}
	depth := opts.ClusterDepth
	if depth <= 0 {
		depth = cluster.DefaultDepth
	}
	now := opts.Now
	if now == nil {
		now = func() float64 { return float64(time.Now().UnixNano()) / 1e9 }
	}

	clusters, err := lru.New[string, map[string]struct{}](clusterCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init cluster cache: %w", err)
	}

	e := &Engine{
		graph:    graph,
		clusters: clusters,
		director: verify.NewDirector(opts.Ledger, opts.ProjectID, logger),
		source:   source,
		depth:    depth,
		budget:   opts.TokenBudget,
		logger:   logger,
		now:      now,
	}
	e.allocator = allocator.NewAllocator(relevance.NewScorer(graph), opts.TokenBudget, logger)
	return e, nil
}

// Director exposes the issue registry for callers that drive the
// verification loop directly (CLI, background sweeps).
func (e *Engine) Director() *verify.Director {
	return e.director
}

// SetGraph swaps in a freshly indexed dependency graph and drops all
// memoized clusters.
func (e *Engine) SetGraph(graph depgraph.Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph = graph
	e.allocator = allocator.NewAllocator(relevance.NewScorer(graph), e.budget, e.logger)
	e.clusters.Purge()
}

// FocusCluster returns the (possibly cached) cluster for focusFile.
// Callers get their own copy; mutating it cannot poison the cache.
func (e *Engine) FocusCluster(focusFile string) map[string]struct{} {
	key := fmt.Sprintf("%s@%d", focusFile, e.depth)

	e.mu.RLock()
	if cached, ok := e.clusters.Get(key); ok {
		e.mu.RUnlock()
		return copyCluster(cached)
	}
	g := e.graph
	e.mu.RUnlock()

	built := cluster.Build(focusFile, g, e.depth)

	e.mu.Lock()
	e.clusters.Add(key, built)
	e.mu.Unlock()
	return copyCluster(built)
}

func copyCluster(c map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(c))
	for path := range c {
		out[path] = struct{}{}
	}
	return out
}

// ProcessFocusEvent runs the full pipeline for one focus event: build
// the cluster, gather signals, score and allocate, and register an
// issue when the packet carries error-severity signals.
func (e *Engine) ProcessFocusEvent(ctx context.Context, focusFile string, focusSymbols []string) (*allocator.ContextPacket, error) {
	start := time.Now()

	focusCluster := e.FocusCluster(focusFile)

	signals, err := e.source.Gather(ctx, focusCluster)
	if err != nil {
		return nil, fmt.Errorf("gather signals: %w", err)
	}

	e.mu.RLock()
	alloc := e.allocator
	e.mu.RUnlock()
	packet := alloc.Allocate(signals, focusFile, focusSymbols, e.now())

	if errorSignals := signal.FilterErrors(packet.Signals); len(errorSignals) > 0 {
		e.director.RegisterIssue(focusFile, cluster.Paths(focusCluster), errorSignals)
	}

	e.logger.Info("context delivered", logging.Fields{
		"focusFile": focusFile,
		"cluster":   len(focusCluster),
		"signals":   len(packet.Signals),
		"tokens":    packet.TotalTokens,
		"latencyMs": time.Since(start).Milliseconds(),
	})

	return packet, nil
}

// VerifyAfterFix re-gathers signals for focusFile's cluster and
// verifies every active issue registered against that file. Issues are
// checked concurrently; the director serializes registry access.
func (e *Engine) VerifyAfterFix(ctx context.Context, focusFile string) ([]verify.Result, error) {
	focusCluster := e.FocusCluster(focusFile)

	signals, err := e.source.Gather(ctx, focusCluster)
	if err != nil {
		return nil, fmt.Errorf("gather signals: %w", err)
	}

	var targets []verify.ActiveIssue
	for _, issue := range e.director.ActiveIssues() {
		if issue.FocusFile == focusFile {
			targets = append(targets, issue)
		}
	}

	results := make([]verify.Result, len(targets))
	g, _ := errgroup.WithContext(ctx)
	for i, issue := range targets {
		i, issue := i, issue
		g.Go(func() error {
			results[i] = e.director.VerifyFix(issue.Fingerprint, signals)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
