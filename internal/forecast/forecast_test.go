package forecast

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"riskcast/internal/domain"
	"riskcast/internal/simulation"
)

func chainFixture() *domain.Portfolio {
	ref := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	target := ref.AddDate(0, 0, 7)
	return &domain.Portfolio{
		ReferenceDate: ref,
		Items: []domain.WorkItem{
			{ID: "a", Name: "API contract", Status: domain.StatusInProgress, MilestoneID: "launch",
				Estimate: domain.Estimate{Min: 1, Likely: 2, Max: 3}},
			{ID: "b", Name: "Backend", Status: domain.StatusNotStarted, MilestoneID: "launch",
				Estimate:  domain.Estimate{Min: 2, Likely: 3, Max: 5},
				DependsOn: []domain.Dependency{{OnID: "a", Type: domain.FinishToStart}}},
			{ID: "c", Name: "Client", Status: domain.StatusNotStarted, MilestoneID: "launch",
				Estimate:  domain.Estimate{Min: 1, Likely: 1, Max: 2},
				DependsOn: []domain.Dependency{{OnID: "b", Type: domain.FinishToStart}}},
		},
		Milestones: []domain.Milestone{
			{ID: "launch", Name: "Launch", TargetDate: &target},
		},
	}
}

func seedOf(s int64) *int64 { return &s }

func TestRun_ProducesFullOutcome(t *testing.T) {
	out, err := Run(context.Background(), chainFixture(), Options{
		NumSimulations:  2000,
		Seed:            seedOf(42),
		WithConvergence: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(out.Result.Items) != 3 {
		t.Errorf("Expected 3 item forecasts, got %d", len(out.Result.Items))
	}
	found := false
	for _, c := range out.Breakdown {
		if c.Cause == "baseline_uncertainty" {
			found = true
			if c.Days <= 0 {
				t.Errorf("Expected positive baseline uncertainty, got %f", c.Days)
			}
		}
	}
	if !found {
		t.Errorf("Breakdown is missing the baseline uncertainty term: %+v", out.Breakdown)
	}

	switch out.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		t.Errorf("Unexpected confidence label %q", out.Confidence)
	}
	if !strings.Contains(out.Summary, "launch") {
		t.Errorf("Summary does not mention the focus milestone: %q", out.Summary)
	}

	if out.Convergence == nil {
		t.Fatalf("Expected a convergence probe in the outcome")
	}
	last := out.Convergence.Checkpoints[len(out.Convergence.Checkpoints)-1]
	if last.Trials != 2000 {
		t.Errorf("Expected the final checkpoint at 2000 trials, got %d", last.Trials)
	}
	// The probe reuses the run seed, so its final checkpoint reproduces the
	// main result exactly.
	_, _, _, p80 := out.Result.Focus("")
	if last.P80Days != p80 {
		t.Errorf("Final checkpoint P80 %f differs from the run's %f", last.P80Days, p80)
	}
}

func TestRun_ValidatesBeforeSimulating(t *testing.T) {
	bad := chainFixture()
	bad.Items[0].Estimate = domain.Estimate{Min: 3, Likely: 2, Max: 4}
	_, err := Run(context.Background(), bad, Options{NumSimulations: 100})
	var estErr *domain.InvalidEstimateError
	if !errors.As(err, &estErr) {
		t.Fatalf("Expected InvalidEstimateError, got %v", err)
	}
	if estErr.WorkItemID != "a" {
		t.Errorf("Expected the error to name item a, got %q", estErr.WorkItemID)
	}

	cyclic := chainFixture()
	cyclic.Items[0].DependsOn = []domain.Dependency{{OnID: "c", Type: domain.FinishToStart}}
	_, err = Run(context.Background(), cyclic, Options{NumSimulations: 100})
	var cycErr *domain.CircularDependencyError
	if !errors.As(err, &cycErr) {
		t.Fatalf("Expected CircularDependencyError, got %v", err)
	}
	if len(cycErr.Cycle) != 4 || cycErr.Cycle[0] != cycErr.Cycle[3] {
		t.Errorf("Expected a closed 3-cycle, got %v", cycErr.Cycle)
	}
}

func TestBreakdown_OrderAndValues(t *testing.T) {
	ref := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	p := &domain.Portfolio{
		ReferenceDate: ref,
		Items: []domain.WorkItem{
			{ID: "x", Status: domain.StatusNotStarted, Estimate: domain.Estimate{Min: 8, Likely: 10, Max: 14}},
			{ID: "y", Status: domain.StatusNotStarted, Estimate: domain.Estimate{Min: 2, Likely: 4, Max: 6}},
		},
		Risks: []domain.Risk{
			{ID: "r-tie", Probability: 0.5, Status: domain.RiskOpen, AffectedItemIDs: []string{"y"},
				Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 10}},
			{ID: "r-delay", Probability: 0.4, Status: domain.RiskOpen, AffectedItemIDs: []string{"x"},
				Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 10}},
			{ID: "r-vel", Probability: 0.2, Status: domain.RiskMitigating, AffectedItemIDs: []string{"x"},
				Impact: domain.Impact{Type: domain.ImpactVelocityMultiplier, Value: 0.5}},
			{ID: "r-mat", Probability: 0.1, Status: domain.RiskMaterialised, AffectedItemIDs: []string{"x"},
				Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 3}},
			{ID: "r-closed", Probability: 0.9, Status: domain.RiskClosed, AffectedItemIDs: []string{"x"},
				Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 50}},
			{ID: "r-cost", Probability: 1, Status: domain.RiskOpen, AffectedItemIDs: []string{"x"},
				Impact: domain.Impact{Type: domain.ImpactCostMultiplier, Value: 2}},
			{ID: "r-tiny", Probability: 0.3, Status: domain.RiskOpen, AffectedItemIDs: []string{"x"},
				Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 0.1}},
			{ID: "r-orphan", Probability: 0.9, Status: domain.RiskOpen,
				Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 20}},
		},
		Decisions: []domain.Decision{
			{ID: "d-delay", Type: domain.DecisionDelay, Status: domain.DecisionApproved,
				TargetItemIDs: []string{"y"},
				Effect:        domain.Effect{Type: domain.EffectDelayDays, Value: 5}},
			{ID: "d-prop", Type: domain.DecisionDelay, Status: domain.DecisionProposed,
				TargetItemIDs: []string{"x"},
				Effect:        domain.Effect{Type: domain.EffectDelayDays, Value: 50}},
			{ID: "d-speed", Type: domain.DecisionAccelerate, Status: domain.DecisionImplemented,
				TargetItemIDs: []string{"x"},
				Effect:        domain.Effect{Type: domain.EffectVelocityMultiplier, Value: 2}},
		},
	}

	res := &simulation.Result{
		Items: []simulation.ItemForecast{
			{ID: "x", FinishDays: simulation.Percentiles{P10: 8, P50: 10, P80: 12.5, P90: 13, P99: 14}},
		},
	}

	got := Breakdown(p, res, "")

	// Expected days: r-tie 0.5x10, d-delay +5 (the risk wins the tie by
	// insertion order), d-speed 10x(1/2-1), r-delay 0.4x10, r-mat 1.0x3
	// (materialised is a certainty), baseline 12.5-10, r-vel 0.2x10x(1/0.5-1).
	// Closed, cost-only, sub-tenth and orphaned risks contribute nothing.
	want := []Contribution{
		{Cause: "risk:r-tie", Days: 5},
		{Cause: "decision:d-delay", Days: 5},
		{Cause: "decision:d-speed", Days: -5},
		{Cause: "risk:r-delay", Days: 4},
		{Cause: "risk:r-mat", Days: 3},
		{Cause: "baseline_uncertainty", Days: 2.5},
		{Cause: "risk:r-vel", Days: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Breakdown mismatch.\n got: %+v\nwant: %+v", got, want)
	}
}

func TestConfidence(t *testing.T) {
	resWith := func(p10, p50, p90 float64) *simulation.Result {
		return &simulation.Result{
			Items: []simulation.ItemForecast{
				{ID: "x", FinishDays: simulation.Percentiles{P10: p10, P50: p50, P80: p90, P90: p90, P99: p90}},
			},
		}
	}
	externalItem := domain.WorkItem{
		ID: "x", Status: domain.StatusNotStarted,
		Estimate: domain.Estimate{Min: 1, Likely: 2, Max: 3},
	}
	tests := []struct {
		name     string
		p        *domain.Portfolio
		res      *simulation.Result
		expected string
	}{
		{
			name:     "NarrowSpreadNoRisks",
			p:        &domain.Portfolio{Items: []domain.WorkItem{externalItem}},
			res:      resWith(9, 10, 12),
			expected: ConfidenceHigh,
		},
		{
			name:     "WideSpread",
			p:        &domain.Portfolio{Items: []domain.WorkItem{externalItem}},
			res:      resWith(5, 10, 13.5),
			expected: ConfidenceLow,
		},
		{
			name: "TooManyExternalDependencies",
			p: &domain.Portfolio{Items: []domain.WorkItem{{
				ID: "x", Status: domain.StatusNotStarted,
				Estimate: domain.Estimate{Min: 1, Likely: 2, Max: 3},
				DependsOn: []domain.Dependency{
					{OnID: "x1", Type: domain.FinishToStart, External: true},
					{OnID: "x2", Type: domain.FinishToStart, External: true},
					{OnID: "x3", Type: domain.FinishToStart, External: true},
				},
			}}},
			res:      resWith(9, 10, 12),
			expected: ConfidenceLow,
		},
		{
			name:     "ModerateSpread",
			p:        &domain.Portfolio{Items: []domain.WorkItem{externalItem}},
			res:      resWith(8, 10, 13),
			expected: ConfidenceMedium,
		},
		{
			name: "ManyOpenRisksBlockHigh",
			p: &domain.Portfolio{
				Items: []domain.WorkItem{externalItem},
				Risks: []domain.Risk{
					{ID: "r1", Status: domain.RiskOpen},
					{ID: "r2", Status: domain.RiskOpen},
					{ID: "r3", Status: domain.RiskOpen},
				},
			},
			res:      resWith(9, 10, 12),
			expected: ConfidenceMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(tt.p, tt.res, ""); got != tt.expected {
				t.Errorf("Confidence = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestSummarize_EmptyResult(t *testing.T) {
	got := Summarize(&simulation.Result{}, nil, ConfidenceHigh, "")
	if !strings.Contains(got, "Nothing to forecast") {
		t.Errorf("Unexpected summary for an empty result: %q", got)
	}
}
