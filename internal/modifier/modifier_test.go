package modifier

import (
	"math"
	"testing"
	"time"

	"riskcast/internal/domain"
	"riskcast/internal/graph"
)

func compile(t *testing.T, p *domain.Portfolio) (*Plan, *graph.Graph) {
	t.Helper()
	g, err := graph.Build(p)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}
	plan, err := Compile(p, g)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return plan, g
}

func testPortfolio() *domain.Portfolio {
	return &domain.Portfolio{
		ReferenceDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Items: []domain.WorkItem{
			{ID: "a", Estimate: domain.Estimate{Min: 2, Likely: 4, Max: 6}, Status: domain.StatusNotStarted},
			{ID: "b", Estimate: domain.Estimate{Min: 1, Likely: 2, Max: 3}, Status: domain.StatusNotStarted},
		},
	}
}

func TestCompile_DelayAndScope(t *testing.T) {
	p := testPortfolio()
	p.Decisions = []domain.Decision{
		{ID: "d1", Type: domain.DecisionDelay, Status: domain.DecisionApproved,
			TargetItemIDs: []string{"a"}, Effect: domain.Effect{Type: domain.EffectDelayDays, Value: 5}},
		{ID: "d2", Type: domain.DecisionChangeScope, Status: domain.DecisionApproved,
			TargetItemIDs: []string{"b"}, Effect: domain.Effect{Type: domain.EffectScopeMultiplier, Value: 0.5}},
		{ID: "d3", Type: domain.DecisionDelay, Status: domain.DecisionProposed,
			TargetItemIDs: []string{"a"}, Effect: domain.Effect{Type: domain.EffectDelayDays, Value: 99}},
	}

	plan, _ := compile(t, p)

	if got := plan.Items[0].StartOffset; got != 5 {
		t.Errorf("StartOffset(a) = %v, want 5 (proposed decisions must not apply)", got)
	}
	want := domain.Estimate{Min: 0.5, Likely: 1, Max: 1.5}
	if plan.Items[1].Estimate != want {
		t.Errorf("Estimate(b) = %v, want %v", plan.Items[1].Estimate, want)
	}
}

func TestCompile_ScopeZeroRemovesItem(t *testing.T) {
	p := testPortfolio()
	p.Decisions = []domain.Decision{
		{ID: "d1", Type: domain.DecisionChangeScope, Status: domain.DecisionImplemented,
			TargetItemIDs: []string{"b"}, Effect: domain.Effect{Type: domain.EffectScopeMultiplier, Value: 0}},
	}

	plan, _ := compile(t, p)

	if !plan.Items[1].Removed {
		t.Error("item b should be removed for this run")
	}
	if plan.Items[0].Removed {
		t.Error("item a should survive")
	}
}

func TestCompile_RiskBindings(t *testing.T) {
	p := testPortfolio()
	p.Risks = []domain.Risk{
		{ID: "r-zero", Probability: 0, Status: domain.RiskOpen,
			Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 4}, AffectedItemIDs: []string{"a"}},
		{ID: "r-closed", Probability: 0.9, Status: domain.RiskClosed,
			Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 4}, AffectedItemIDs: []string{"a"}},
		{ID: "r-cost", Probability: 0.9, Status: domain.RiskOpen,
			Impact: domain.Impact{Type: domain.ImpactCostMultiplier, Value: 2}, AffectedItemIDs: []string{"a"}},
		{ID: "r-mat", Probability: 0.1, Status: domain.RiskMaterialised,
			Impact: domain.Impact{Type: domain.ImpactDelayDays, Value: 4}, AffectedItemIDs: []string{"a"}},
		{ID: "r-live", Probability: 0.4, Status: domain.RiskOpen,
			Impact: domain.Impact{Type: domain.ImpactVelocityMultiplier, Value: 0.8}, AffectedItemIDs: []string{"b"}},
	}

	plan, _ := compile(t, p)

	if len(plan.Bindings) != 2 {
		t.Fatalf("bindings = %d, want 2 (zero-probability, closed, and cost risks drop out)", len(plan.Bindings))
	}
	mat := plan.Bindings[0]
	if mat.Risk.ID != "r-mat" || !mat.Certain || mat.P != 1 {
		t.Errorf("materialised binding = {%s certain=%v p=%v}, want certainty", mat.Risk.ID, mat.Certain, mat.P)
	}
	live := plan.Bindings[1]
	if live.Risk.ID != "r-live" || live.Certain || live.P != 0.4 {
		t.Errorf("open binding = {%s certain=%v p=%v}, want p=0.4", live.Risk.ID, live.Certain, live.P)
	}
}

func TestDurationFrom_RampupCurve(t *testing.T) {
	p := testPortfolio()
	p.Decisions = []domain.Decision{
		{ID: "d1", Type: domain.DecisionHire, Status: domain.DecisionApproved,
			TargetItemIDs: []string{"a"},
			Effect:        domain.Effect{Type: domain.EffectVelocityMultiplier, Value: 2, RampupDays: 10}},
	}

	plan, _ := compile(t, p)
	ip := &plan.Items[0]

	tests := []struct {
		name     string
		start    float64
		effort   float64
		expected float64
	}{
		// Capacity under the ramp is the trapezoid integral of 1 -> 2 over 10 days.
		{"ExactlyTheRamp", 0, 15, 10},
		{"WithinRamp", 0, 5, math.Sqrt(2)*10 - 10},
		{"BeyondRamp", 0, 20, 12.5},
		{"StartAfterRamp", 10, 8, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ip.DurationFrom(tt.start, tt.effort, 1)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("DurationFrom(%v, %v) = %v, want %v", tt.start, tt.effort, got, tt.expected)
			}
		})
	}
}

func TestDurationFrom_FireGrace(t *testing.T) {
	p := testPortfolio()
	p.Decisions = []domain.Decision{
		{ID: "d1", Type: domain.DecisionFire, Status: domain.DecisionApproved,
			TargetItemIDs: []string{"a"},
			Effect: domain.Effect{Type: domain.EffectVelocityMultiplier, Value: 0.8,
				KnowledgeTransferDays: 5}},
	}

	plan, _ := compile(t, p)
	ip := &plan.Items[0]

	// Five days at full velocity, then the remaining five effort-days at 0.8.
	got := ip.DurationFrom(0, 10, 1)
	if math.Abs(got-11.25) > 1e-9 {
		t.Errorf("DurationFrom(0, 10) = %v, want 11.25", got)
	}
}

func TestDurationFrom_BoundedWindow(t *testing.T) {
	p := testPortfolio()
	p.Decisions = []domain.Decision{
		{ID: "d1", Type: domain.DecisionAccelerate, Status: domain.DecisionApproved,
			TargetItemIDs: []string{"a"},
			Effect: domain.Effect{Type: domain.EffectVelocityMultiplier, Value: 1.5,
				DurationDays: 4}},
	}

	plan, _ := compile(t, p)
	ip := &plan.Items[0]

	// Four boosted days consume 6 effort-days; the remaining 3 run at 1.0.
	if got := ip.DurationFrom(0, 9, 1); math.Abs(got-7) > 1e-9 {
		t.Errorf("DurationFrom(0, 9) = %v, want 7", got)
	}
	// An item that starts after the window expires never sees the boost.
	if got := ip.DurationFrom(10, 9, 1); math.Abs(got-9) > 1e-9 {
		t.Errorf("DurationFrom(10, 9) = %v, want 9", got)
	}
}

func TestDurationFrom_ExtraMultiplier(t *testing.T) {
	p := testPortfolio()
	plan, _ := compile(t, p)
	ip := &plan.Items[0]

	// No curve: a materialized velocity risk divides duration directly.
	if got := ip.DurationFrom(0, 10, 0.5); math.Abs(got-20) > 1e-9 {
		t.Errorf("DurationFrom with extraMult 0.5 = %v, want 20", got)
	}
}
