// Package forecast wires validation, graph building, modifier compilation and
// the Monte Carlo engine into one call, and derives the analysis layers the
// raw percentiles do not carry: contribution breakdown, confidence label,
// scenario comparison and mitigation preview.
package forecast

import (
	"context"

	"riskcast/internal/domain"
	"riskcast/internal/graph"
	"riskcast/internal/modifier"
	"riskcast/internal/simulation"
)

// Options configures one forecast invocation.
type Options struct {
	NumSimulations    int
	Seed              *int64
	Workers           int
	MaxTrials         int
	FilterItemIDs     []string
	FilterMilestoneID string
	// WithConvergence additionally runs the convergence probe on the same seed.
	WithConvergence bool
}

// Contribution is one named cause in the delay decomposition.
type Contribution struct {
	Cause string  `json:"cause"`
	Days  float64 `json:"days"`
}

// Outcome bundles a simulation result with the derived analysis.
type Outcome struct {
	Result      *simulation.Result            `json:"forecast"`
	Breakdown   []Contribution                `json:"contribution_breakdown"`
	Confidence  string                        `json:"confidence"`
	Summary     string                        `json:"summary"`
	Convergence *simulation.ConvergenceResult `json:"convergence,omitempty"`
}

// Run validates the portfolio, builds the graph and plan, runs the simulation
// and attaches breakdown, confidence and summary. All validation failures
// surface before any trial executes.
func Run(ctx context.Context, p *domain.Portfolio, opts Options) (*Outcome, error) {
	if err := domain.ValidatePortfolio(p); err != nil {
		return nil, err
	}
	g, err := graph.Build(p)
	if err != nil {
		return nil, err
	}
	plan, err := modifier.Compile(p, g)
	if err != nil {
		return nil, err
	}

	eng := simulation.NewEngine(g, plan, p)
	cfg := simulation.Config{
		NumSimulations:    opts.NumSimulations,
		Seed:              opts.Seed,
		Workers:           opts.Workers,
		MaxTrials:         opts.MaxTrials,
		FilterItemIDs:     opts.FilterItemIDs,
		FilterMilestoneID: opts.FilterMilestoneID,
	}
	res, err := eng.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Result:     res,
		Breakdown:  Breakdown(p, res, opts.FilterMilestoneID),
		Confidence: Confidence(p, res, opts.FilterMilestoneID),
	}
	out.Summary = Summarize(res, out.Breakdown, out.Confidence, opts.FilterMilestoneID)

	if opts.WithConvergence {
		// Reuse the seed the run actually used so the probe's largest
		// checkpoint reproduces the result above exactly.
		cfg.Seed = &res.Meta.SeedUsed
		conv, err := eng.CheckConvergence(ctx, simulation.ConvergenceConfig{Config: cfg})
		if err != nil {
			return nil, err
		}
		out.Convergence = conv
	}
	return out, nil
}

// finishOf resolves the finish percentiles of one forecast entity.
func finishOf(res *simulation.Result, kind, id string) (simulation.Percentiles, bool) {
	switch kind {
	case "milestone":
		if ms := res.Milestone(id); ms != nil {
			return ms.FinishDays, true
		}
	case "work_item":
		if it := res.Item(id); it != nil {
			return it.FinishDays, true
		}
	}
	return simulation.Percentiles{}, false
}
