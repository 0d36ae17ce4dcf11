package simulation

import (
	"context"
	"fmt"
)

// ConvergenceConfig defines the parameters for a convergence probe.
type ConvergenceConfig struct {
	Config
	MinTrials int     // First checkpoint size (default 250)
	Tolerance float64 // Max P80 drift in days to call the run stable (default 0.5)
}

// ConvergenceCheckpoint records the headline P80 at one trial count.
type ConvergenceCheckpoint struct {
	Trials    int     `json:"trials"`
	P80Days   float64 `json:"p80_days"`
	DriftDays float64 `json:"drift_days"` // Absolute change versus the previous checkpoint
}

// ConvergenceResult holds the aggregate outcome of the probe.
type ConvergenceResult struct {
	FocusKind   string                  `json:"focus_kind"`
	FocusID     string                  `json:"focus_id"`
	Checkpoints []ConvergenceCheckpoint `json:"checkpoints"`
	Stable      bool                    `json:"stable"`
	Message     string                  `json:"message"`
}

// CheckConvergence reruns the simulation at doubling trial counts and watches
// the headline P80 settle. All checkpoints share one seed, and trial t draws
// from (seed, t) alone, so each larger run extends the smaller one instead of
// resampling it; the drift between checkpoints is pure sampling error.
func (e *Engine) CheckConvergence(ctx context.Context, cfg ConvergenceConfig) (*ConvergenceResult, error) {
	trials := cfg.NumSimulations
	if trials <= 0 {
		trials = DefaultTrials
	}
	minTrials := cfg.MinTrials
	if minTrials <= 0 {
		minTrials = 250
	}
	if minTrials > trials {
		minTrials = trials
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = 0.5
	}

	runCfg := cfg.Config
	if runCfg.Seed == nil {
		seed := e.now().UnixNano()
		runCfg.Seed = &seed
	}

	sizes := []int{}
	for s := minTrials; s < trials; s *= 2 {
		sizes = append(sizes, s)
	}
	sizes = append(sizes, trials)

	result := &ConvergenceResult{
		Checkpoints: make([]ConvergenceCheckpoint, 0, len(sizes)),
	}

	prev := 0.0
	for i, size := range sizes {
		runCfg.NumSimulations = size
		r, err := e.Run(ctx, runCfg)
		if err != nil {
			return nil, err
		}
		kind, id, _, p80 := r.Focus(cfg.FilterMilestoneID)
		result.FocusKind = kind
		result.FocusID = id

		cp := ConvergenceCheckpoint{Trials: size, P80Days: p80}
		if i > 0 {
			cp.DriftDays = p80 - prev
			if cp.DriftDays < 0 {
				cp.DriftDays = -cp.DriftDays
			}
		}
		prev = p80
		result.Checkpoints = append(result.Checkpoints, cp)
	}

	last := result.Checkpoints[len(result.Checkpoints)-1]
	if len(result.Checkpoints) == 1 {
		result.Stable = true
		result.Message = fmt.Sprintf("Single checkpoint at %d trials; no drift to measure.", last.Trials)
		return result, nil
	}

	result.Stable = last.DriftDays <= tolerance
	if result.Stable {
		result.Message = fmt.Sprintf("P80 drift over the final doubling is %.2f days (tolerance %.2f); the forecast is stable at %d trials.", last.DriftDays, tolerance, last.Trials)
	} else {
		result.Message = fmt.Sprintf("P80 still moved %.2f days over the final doubling (tolerance %.2f); increase num_simulations beyond %d.", last.DriftDays, tolerance, last.Trials)
	}
	return result, nil
}
