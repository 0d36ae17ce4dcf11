package forecast

import (
	"context"
	"fmt"
	"math"

	"riskcast/internal/domain"
)

// ScenarioKind selects which hypothetical delta a comparison applies.
type ScenarioKind string

const (
	// ScenarioDependencyDelay pushes one item's earliest start out by DelayDays.
	ScenarioDependencyDelay ScenarioKind = "dependency_delay"
	// ScenarioScopeDelta shifts one item's three-point estimate by ScopeDeltaDays.
	ScenarioScopeDelta ScenarioKind = "scope_delta"
	// ScenarioCapacityMultiplier applies a velocity multiplier, portfolio-wide
	// unless ItemID narrows it to one item.
	ScenarioCapacityMultiplier ScenarioKind = "capacity_multiplier"
)

// ScenarioDelta is one hypothetical intervention applied to a cloned
// portfolio. Only the field matching Kind is read.
type ScenarioDelta struct {
	Kind               ScenarioKind `json:"kind"`
	ItemID             string       `json:"item_id,omitempty"`
	DelayDays          float64      `json:"delay_days,omitempty"`
	ScopeDeltaDays     float64      `json:"scope_delta_days,omitempty"`
	CapacityMultiplier float64      `json:"capacity_multiplier,omitempty"`
}

// Comparison reports a baseline and a scenario forecast side by side.
// ImpactDays is the scenario's focus P80 minus the baseline's; positive
// means the scenario finishes later.
type Comparison struct {
	Baseline          *Outcome `json:"baseline"`
	Scenario          *Outcome `json:"scenario"`
	ImpactDays        float64  `json:"impact_days"`
	ImpactDescription string   `json:"impact_description"`
}

// Compare runs the baseline, clones the portfolio, applies the delta and
// reruns with the baseline's seed so both runs share every random draw. The
// input portfolio is never modified; only the clone carries the scenario.
func Compare(ctx context.Context, p *domain.Portfolio, delta ScenarioDelta, opts Options) (*Comparison, error) {
	baseline, err := Run(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	scenario := p.Clone()
	if err := applyDelta(scenario, delta); err != nil {
		return nil, err
	}

	opts.Seed = &baseline.Result.Meta.SeedUsed
	modified, err := Run(ctx, scenario, opts)
	if err != nil {
		return nil, err
	}
	return compareOutcomes(baseline, modified, opts.FilterMilestoneID), nil
}

func compareOutcomes(baseline, modified *Outcome, milestoneID string) *Comparison {
	kind, id, _, basP80 := baseline.Result.Focus(milestoneID)
	var impact float64
	if fin, ok := finishOf(modified.Result, kind, id); ok {
		impact = fin.P80 - basP80
	} else {
		// The baseline focus left the scenario entirely (scope removal);
		// compare against whatever now finishes last.
		_, _, _, scenP80 := modified.Result.Focus(milestoneID)
		impact = scenP80 - basP80
	}
	return &Comparison{
		Baseline:          baseline,
		Scenario:          modified,
		ImpactDays:        impact,
		ImpactDescription: describeImpact(impact),
	}
}

func describeImpact(days float64) string {
	switch {
	case math.Abs(days) < 0.5:
		return "Minimal impact on forecast"
	case days > 0:
		return fmt.Sprintf("P80 slips by %.1f days", days)
	}
	return fmt.Sprintf("P80 improves by %.1f days", -days)
}

func applyDelta(p *domain.Portfolio, delta ScenarioDelta) error {
	switch delta.Kind {
	case ScenarioDependencyDelay:
		if _, ok := p.ItemIndex()[delta.ItemID]; !ok {
			return &domain.ValidationError{EntityKind: "scenario", EntityID: delta.ItemID,
				Message: "delay targets unknown work item"}
		}
		p.Decisions = append(p.Decisions, domain.Decision{
			ID:            "scenario:delay",
			Type:          domain.DecisionDelay,
			Status:        domain.DecisionApproved,
			TargetItemIDs: []string{delta.ItemID},
			Effect:        domain.Effect{Type: domain.EffectDelayDays, Value: delta.DelayDays},
		})

	case ScenarioScopeDelta:
		idx, ok := p.ItemIndex()[delta.ItemID]
		if !ok {
			return &domain.ValidationError{EntityKind: "scenario", EntityID: delta.ItemID,
				Message: "scope delta targets unknown work item"}
		}
		e := p.Items[idx].Estimate
		e.Min += delta.ScopeDeltaDays
		e.Likely += delta.ScopeDeltaDays
		e.Max += delta.ScopeDeltaDays
		if e.Min <= 0 {
			return &domain.ValidationError{EntityKind: "scenario", EntityID: delta.ItemID,
				Message: fmt.Sprintf("scope delta %g drives the estimate non-positive", delta.ScopeDeltaDays)}
		}
		p.Items[idx].Estimate = e

	case ScenarioCapacityMultiplier:
		if delta.CapacityMultiplier <= 0 {
			return &domain.ValidationError{EntityKind: "scenario", EntityID: delta.ItemID,
				Message: "capacity multiplier must be positive"}
		}
		var targets []string
		if delta.ItemID != "" {
			if _, ok := p.ItemIndex()[delta.ItemID]; !ok {
				return &domain.ValidationError{EntityKind: "scenario", EntityID: delta.ItemID,
					Message: "capacity change targets unknown work item"}
			}
			targets = []string{delta.ItemID}
		}
		p.Decisions = append(p.Decisions, domain.Decision{
			ID:            "scenario:capacity",
			Type:          domain.DecisionChangeCapacity,
			Status:        domain.DecisionApproved,
			TargetItemIDs: targets,
			Effect:        domain.Effect{Type: domain.EffectVelocityMultiplier, Value: delta.CapacityMultiplier},
		})

	default:
		return &domain.ValidationError{EntityKind: "scenario", EntityID: string(delta.Kind),
			Message: "unknown scenario kind"}
	}
	return nil
}

// Mitigation weakens one risk by caller-supplied amounts for preview.
type Mitigation struct {
	RiskID string `json:"risk_id"`
	// ProbabilityReduction subtracts from the risk probability, clamped to [0,1].
	ProbabilityReduction float64 `json:"probability_reduction,omitempty"`
	// ImpactReduction moves the impact toward its neutral value: zero extra
	// days for delays, 1.0 for multipliers.
	ImpactReduction float64 `json:"impact_reduction,omitempty"`
	// CostDays offsets the improvement when classifying the recommendation.
	CostDays float64 `json:"cost_days,omitempty"`
}

// Thresholds classify a mitigation's net improvement. These are policy
// knobs, not a contract.
type Thresholds struct {
	ApproveDays  float64
	EvaluateDays float64
}

// DefaultThresholds approve mitigations that buy at least three net days and
// reject ones that buy less than one.
var DefaultThresholds = Thresholds{ApproveDays: 3, EvaluateDays: 1}

// MitigationReport extends a comparison with the mitigation classification.
type MitigationReport struct {
	Comparison
	RiskID          string  `json:"risk_id"`
	ImprovementDays float64 `json:"improvement_days"`
	Recommendation  string  `json:"recommendation"`
}

// PreviewMitigation clones the portfolio, weakens the named risk and reruns
// with the baseline's seed. The recommendation weighs the P80 improvement
// against the stated cost.
func PreviewMitigation(ctx context.Context, p *domain.Portfolio, m Mitigation, th Thresholds, opts Options) (*MitigationReport, error) {
	if p.RiskByID(m.RiskID) == nil {
		return nil, &domain.ValidationError{EntityKind: "risk", EntityID: m.RiskID, Message: "unknown risk"}
	}

	baseline, err := Run(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	scenario := p.Clone()
	r := scenario.RiskByID(m.RiskID)
	r.Probability = clamp01(r.Probability - m.ProbabilityReduction)
	r.Impact = reduceImpact(r.Impact, m.ImpactReduction)

	opts.Seed = &baseline.Result.Meta.SeedUsed
	modified, err := Run(ctx, scenario, opts)
	if err != nil {
		return nil, err
	}

	cmp := compareOutcomes(baseline, modified, opts.FilterMilestoneID)
	report := &MitigationReport{
		Comparison:      *cmp,
		RiskID:          m.RiskID,
		ImprovementDays: -cmp.ImpactDays,
	}

	if th == (Thresholds{}) {
		th = DefaultThresholds
	}
	net := report.ImprovementDays - m.CostDays
	switch {
	case net >= th.ApproveDays:
		report.Recommendation = "approve"
	case net >= th.EvaluateDays:
		report.Recommendation = "evaluate"
	default:
		report.Recommendation = "reject"
	}
	return report, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func reduceImpact(imp domain.Impact, by float64) domain.Impact {
	if by <= 0 {
		return imp
	}
	switch imp.Type {
	case domain.ImpactDelayDays:
		imp.Value = math.Max(imp.Value-by, 0)
	case domain.ImpactVelocityMultiplier:
		if imp.Value < 1 {
			imp.Value = math.Min(imp.Value+by, 1)
		}
	case domain.ImpactEstimateMultiplier:
		if imp.Value > 1 {
			imp.Value = math.Max(imp.Value-by, 1)
		}
	}
	return imp
}
