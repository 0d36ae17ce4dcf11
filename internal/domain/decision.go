package domain

import "time"

// DecisionType classifies an intervention a user may take on the portfolio.
type DecisionType string

const (
	DecisionHire           DecisionType = "hire"
	DecisionFire           DecisionType = "fire"
	DecisionDelay          DecisionType = "delay"
	DecisionAccelerate     DecisionType = "accelerate"
	DecisionChangeScope    DecisionType = "change_scope"
	DecisionChangeCapacity DecisionType = "change_capacity"
	DecisionChangePriority DecisionType = "change_priority"
	DecisionAcceptRisk     DecisionType = "accept_risk"
	DecisionMitigateRisk   DecisionType = "mitigate_risk"
)

// DecisionStatus is the lifecycle state of a decision. Only approved-or-later
// decisions feed a forecast as modifiers.
type DecisionStatus string

const (
	DecisionProposed    DecisionStatus = "proposed"
	DecisionApproved    DecisionStatus = "approved"
	DecisionImplemented DecisionStatus = "implemented"
	DecisionCompleted   DecisionStatus = "completed"
	DecisionRejected    DecisionStatus = "rejected"
	DecisionCancelled   DecisionStatus = "cancelled"
	DecisionRolledBack  DecisionStatus = "rolled_back"
)

// EffectType tags how a decision's effect value is interpreted by the
// modifier resolver. The set is closed; unknown tags fail validation.
type EffectType string

const (
	// EffectVelocityMultiplier scales how fast affected items burn effort.
	EffectVelocityMultiplier EffectType = "velocity_multiplier"
	// EffectDelayDays pushes the earliest start of affected items out by a fixed offset.
	EffectDelayDays EffectType = "delay_days"
	// EffectScopeMultiplier scales the three-point estimate of affected items.
	// A value of zero removes the item from the graph for the run.
	EffectScopeMultiplier EffectType = "scope_multiplier"
	// EffectNone marks decisions with no direct duration modifier
	// (change_priority, accept_risk, mitigate_risk).
	EffectNone EffectType = "none"
)

// Effect is the numeric descriptor attached to a decision.
type Effect struct {
	Type  EffectType `json:"type" yaml:"type"`
	Value float64    `json:"value,omitempty" yaml:"value,omitempty"`
	// RampupDays linearly ramps a velocity multiplier from 1.0 to Value.
	// Zero steps immediately.
	RampupDays float64 `json:"rampup_days,omitempty" yaml:"rampup_days,omitempty"`
	// DurationDays bounds how long the effect stays active. Zero means permanent.
	DurationDays float64 `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
	// KnowledgeTransferDays delays the onset of capacity-negative effects.
	KnowledgeTransferDays float64 `json:"knowledge_transfer_days,omitempty" yaml:"knowledge_transfer_days,omitempty"`
}

// Decision is a proposed or enacted intervention.
type Decision struct {
	ID      string         `json:"id" yaml:"id"`
	Type    DecisionType   `json:"type" yaml:"type"`
	Subtype string         `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	Status  DecisionStatus `json:"status" yaml:"status"`
	// TargetItemIDs are the work items the effect applies to.
	TargetItemIDs []string `json:"target_item_ids,omitempty" yaml:"target_item_ids,omitempty"`
	// TargetRiskID links accept_risk and mitigate_risk decisions to their risk.
	TargetRiskID string `json:"target_risk_id,omitempty" yaml:"target_risk_id,omitempty"`
	Effect       Effect `json:"effect" yaml:"effect"`
	// Boundary carries the proposed acceptance boundary for accept_risk decisions.
	Boundary   *AcceptanceBoundary `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	ApprovedAt *time.Time          `json:"approved_at,omitempty" yaml:"approved_at,omitempty"`
}

// Active reports whether the decision feeds the forecast (approved or later,
// and not superseded).
func (d *Decision) Active() bool {
	switch d.Status {
	case DecisionApproved, DecisionImplemented, DecisionCompleted:
		return true
	}
	return false
}

// expectedEffect maps each decision type to the effect tag it must carry.
var expectedEffect = map[DecisionType]EffectType{
	DecisionHire:           EffectVelocityMultiplier,
	DecisionFire:           EffectVelocityMultiplier,
	DecisionDelay:          EffectDelayDays,
	DecisionAccelerate:     EffectVelocityMultiplier,
	DecisionChangeCapacity: EffectVelocityMultiplier,
	DecisionChangeScope:    EffectScopeMultiplier,
	DecisionChangePriority: EffectNone,
	DecisionAcceptRisk:     EffectNone,
	DecisionMitigateRisk:   EffectNone,
}

// DecisionTransitionAllowed reports whether a decision may move from one
// status to another. Terminal statuses admit nothing.
func DecisionTransitionAllowed(from, to DecisionStatus) bool {
	switch from {
	case DecisionProposed:
		return to == DecisionApproved || to == DecisionRejected || to == DecisionCancelled
	case DecisionApproved:
		return to == DecisionImplemented || to == DecisionCancelled || to == DecisionRolledBack
	case DecisionImplemented:
		return to == DecisionCompleted || to == DecisionRolledBack
	}
	return false
}
