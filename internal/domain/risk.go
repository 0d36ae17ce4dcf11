package domain

import "time"

// RiskStatus is the canonical risk lifecycle:
// open -> (accepted | mitigating) -> (materialised | closed).
type RiskStatus string

const (
	RiskOpen         RiskStatus = "open"
	RiskAccepted     RiskStatus = "accepted"
	RiskMitigating   RiskStatus = "mitigating"
	RiskMaterialised RiskStatus = "materialised"
	RiskClosed       RiskStatus = "closed"
)

// NormalizeRiskStatus maps both the canonical lifecycle and the legacy
// six-state vocabulary (identified, assessed, active, mitigated,
// materialized, closed) onto the canonical one. The second return value is
// false for unknown statuses.
func NormalizeRiskStatus(s string) (RiskStatus, bool) {
	switch RiskStatus(s) {
	case RiskOpen, RiskAccepted, RiskMitigating, RiskMaterialised, RiskClosed:
		return RiskStatus(s), true
	}
	switch s {
	case "identified", "assessed", "active":
		return RiskOpen, true
	case "mitigated":
		return RiskMitigating, true
	case "materialized":
		return RiskMaterialised, true
	}
	return "", false
}

// ImpactType tags how a risk's impact value is interpreted when the risk
// materializes in a trial. The set is closed; unknown tags fail validation.
type ImpactType string

const (
	// ImpactDelayDays adds a fixed number of days to each affected item.
	ImpactDelayDays ImpactType = "delay_days"
	// ImpactVelocityMultiplier divides affected item durations by the value.
	ImpactVelocityMultiplier ImpactType = "velocity_multiplier"
	// ImpactEstimateMultiplier scales the sampled duration of affected items.
	ImpactEstimateMultiplier ImpactType = "estimate_multiplier"
	// ImpactCostMultiplier affects cost only; it has no schedule effect.
	ImpactCostMultiplier ImpactType = "cost_multiplier"
)

// Impact is the adverse outcome a risk carries.
type Impact struct {
	Type  ImpactType `json:"type" yaml:"type"`
	Value float64    `json:"value" yaml:"value"`
}

// RiskSeverity is a coarse triage label used by signal detection.
type RiskSeverity string

const (
	SeverityLow    RiskSeverity = "low"
	SeverityMedium RiskSeverity = "medium"
	SeverityHigh   RiskSeverity = "high"
)

// BoundaryKind tags what kind of acceptance boundary applies.
type BoundaryKind string

const (
	// BoundaryDate re-evaluates the acceptance after a calendar date.
	BoundaryDate BoundaryKind = "date"
	// BoundaryThreshold re-evaluates when a tracked metric crosses a value.
	BoundaryThreshold BoundaryKind = "threshold"
	// BoundaryEvent re-evaluates when a named event occurs.
	BoundaryEvent BoundaryKind = "event"
)

// AcceptanceBoundary bounds how long a risk acceptance remains valid.
type AcceptanceBoundary struct {
	Kind      BoundaryKind `json:"kind" yaml:"kind"`
	Date      *time.Time   `json:"date,omitempty" yaml:"date,omitempty"`
	Threshold float64      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Event     string       `json:"event,omitempty" yaml:"event,omitempty"`
}

// Risk is an uncertain adverse event with a probability and a typed impact on
// a set of work items.
type Risk struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Probability float64      `json:"probability" yaml:"probability"`
	Impact      Impact       `json:"impact" yaml:"impact"`
	Status      RiskStatus   `json:"status" yaml:"status"`
	Severity    RiskSeverity `json:"severity,omitempty" yaml:"severity,omitempty"`
	// AffectedItemIDs are the work items the impact applies to when the risk materializes.
	AffectedItemIDs []string `json:"affected_item_ids,omitempty" yaml:"affected_item_ids,omitempty"`
	// DependentCount records how many downstream items hang off a blockage risk.
	DependentCount int `json:"dependent_count,omitempty" yaml:"dependent_count,omitempty"`
	// Boundary is set once the risk is accepted.
	Boundary   *AcceptanceBoundary `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	NextReview *time.Time          `json:"next_review,omitempty" yaml:"next_review,omitempty"`
}

// EffectiveProbability returns the per-trial materialization probability.
// A materialised risk is a certainty regardless of its stored probability.
func (r *Risk) EffectiveProbability() float64 {
	if r.Status == RiskMaterialised {
		return 1
	}
	return r.Probability
}

// Simulated reports whether the risk participates in trials at all.
// Closed risks are resolved facts and cannot materialize.
func (r *Risk) Simulated() bool {
	return r.Status != RiskClosed
}

// RiskTransitionAllowed reports whether a risk may move from one status to
// another under the canonical lifecycle.
func RiskTransitionAllowed(from, to RiskStatus) bool {
	switch from {
	case RiskOpen:
		return to == RiskAccepted || to == RiskMitigating || to == RiskMaterialised || to == RiskClosed
	case RiskAccepted:
		// An expired or withdrawn acceptance reopens the risk.
		return to == RiskOpen || to == RiskMitigating || to == RiskMaterialised || to == RiskClosed
	case RiskMitigating:
		return to == RiskOpen || to == RiskMaterialised || to == RiskClosed
	}
	return false
}
