package simulation

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"riskcast/internal/domain"
	"riskcast/internal/graph"
	"riskcast/internal/modifier"
)

const (
	// DefaultTrials is used when a request leaves the trial count unset.
	DefaultTrials = 5000
	// DefaultMaxTrials caps a run when no ceiling is configured.
	DefaultMaxTrials = 50000
)

// Config is the per-run configuration.
type Config struct {
	// NumSimulations is the trial count. Zero selects DefaultTrials.
	NumSimulations int
	// Seed fixes the run seed; nil draws one from the clock. The seed that
	// was actually used is always reported in the result metadata.
	Seed *int64
	// Workers bounds trial parallelism. Zero selects GOMAXPROCS.
	Workers int
	// MaxTrials is the enforced ceiling. Zero selects DefaultMaxTrials.
	MaxTrials int
	// FilterItemIDs restricts which items appear in the result. The whole
	// graph is always simulated; dependencies do not stop at the filter.
	FilterItemIDs []string
	// FilterMilestoneID restricts which milestones appear in the result.
	FilterMilestoneID string
}

// Engine performs the Monte-Carlo simulation over a built dependency graph
// and a compiled modifier plan. Inputs are read-only for the lifetime of
// the engine, so one engine may serve concurrent Run calls.
type Engine struct {
	graph      *graph.Graph
	plan       *modifier.Plan
	ref        time.Time
	milestones []domain.Milestone
	members    map[string][]int

	// now is swappable in tests.
	now func() time.Time
}

// NewEngine builds an engine for one portfolio snapshot.
func NewEngine(g *graph.Graph, plan *modifier.Plan, p *domain.Portfolio) *Engine {
	return &Engine{
		graph:      g,
		plan:       plan,
		ref:        p.ReferenceDate,
		milestones: p.Milestones,
		members:    g.MilestoneMembers(),
		now:        time.Now,
	}
}

// Run performs the requested number of simulation trials and aggregates them
// into a Result. The same seed reproduces identical output at any worker
// count: each trial derives its randomness from (seed, trial index) alone and
// writes its own column of the preallocated sample matrix, so scheduling
// order never shows up in the aggregation.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Result, error) {
	trials := cfg.NumSimulations
	if trials <= 0 {
		trials = DefaultTrials
	}
	maxTrials := cfg.MaxTrials
	if maxTrials <= 0 {
		maxTrials = DefaultMaxTrials
	}
	if trials > maxTrials {
		return nil, &domain.SimulationLimitExceededError{Requested: trials, MaxAllowed: maxTrials}
	}

	var seed int64
	if cfg.Seed != nil {
		seed = *cfg.Seed
	} else {
		seed = e.now().UnixNano()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > trials {
		workers = trials
	}

	started := e.now()
	n := len(e.graph.Nodes)

	finishSamples := make([][]float64, n)
	durationSamples := make([][]float64, n)
	for i := range finishSamples {
		finishSamples[i] = make([]float64, trials)
		durationSamples[i] = make([]float64, trials)
	}

	grp, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		grp.Go(func() error {
			scratch := newTrialScratch(n)
			for t := w; t < trials; t += workers {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				e.runTrial(t, seed, scratch)
				for i := 0; i < n; i++ {
					finishSamples[i][t] = scratch.finish[i]
					durationSamples[i][t] = scratch.duration[i]
				}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	result := e.aggregate(finishSamples, durationSamples, trials, cfg)
	result.Meta = RunMeta{
		NumSimulations:  trials,
		ExecutionTimeMS: e.now().Sub(started).Milliseconds(),
		SeedUsed:        seed,
		Workers:         workers,
	}
	return result, nil
}
