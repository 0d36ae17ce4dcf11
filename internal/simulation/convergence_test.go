package simulation

import (
	"context"
	"testing"
)

func TestCheckConvergence_ChainStabilizes(t *testing.T) {
	e := newTestEngine(t, chainPortfolio())
	res, err := e.CheckConvergence(context.Background(), ConvergenceConfig{
		Config:    Config{NumSimulations: 4000, Seed: seedOf(7)},
		MinTrials: 500,
	})
	if err != nil {
		t.Fatalf("CheckConvergence failed: %v", err)
	}

	wantSizes := []int{500, 1000, 2000, 4000}
	if len(res.Checkpoints) != len(wantSizes) {
		t.Fatalf("Expected %d checkpoints, got %d", len(wantSizes), len(res.Checkpoints))
	}
	for i, cp := range res.Checkpoints {
		if cp.Trials != wantSizes[i] {
			t.Errorf("Checkpoint %d at %d trials, expected %d", i, cp.Trials, wantSizes[i])
		}
		if cp.P80Days <= 0 {
			t.Errorf("Checkpoint %d has non-positive P80 %f", i, cp.P80Days)
		}
	}
	if res.Checkpoints[0].DriftDays != 0 {
		t.Errorf("First checkpoint should carry no drift, got %f", res.Checkpoints[0].DriftDays)
	}

	if res.FocusKind != "milestone" || res.FocusID != "launch" {
		t.Errorf("Expected the probe to focus on milestone launch, got %s %s", res.FocusKind, res.FocusID)
	}
	if !res.Stable {
		t.Errorf("Expected the chain forecast to converge within tolerance: %s", res.Message)
	}

	// Checkpoints reuse the run seed, and trial t draws from (seed, t) alone,
	// so a direct run at the first checkpoint size must agree exactly.
	direct := mustRun(t, chainPortfolio(), Config{NumSimulations: 500, Seed: seedOf(7)})
	_, _, _, p80 := direct.Focus("")
	if p80 != res.Checkpoints[0].P80Days {
		t.Errorf("Checkpoint P80 %f differs from direct run %f", res.Checkpoints[0].P80Days, p80)
	}
}

func TestCheckConvergence_SingleCheckpoint(t *testing.T) {
	e := newTestEngine(t, chainPortfolio())
	res, err := e.CheckConvergence(context.Background(), ConvergenceConfig{
		Config:    Config{NumSimulations: 300, Seed: seedOf(1)},
		MinTrials: 500,
	})
	if err != nil {
		t.Fatalf("CheckConvergence failed: %v", err)
	}
	if len(res.Checkpoints) != 1 || res.Checkpoints[0].Trials != 300 {
		t.Fatalf("Expected a single checkpoint at 300 trials, got %+v", res.Checkpoints)
	}
	if !res.Stable {
		t.Errorf("A single checkpoint has no drift and should report stable")
	}
}
