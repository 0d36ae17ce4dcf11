package rules

import (
	"time"

	"riskcast/internal/domain"
)

// CommandKind enumerates the state mutations a rule may request. The set is
// closed; the applier matches exhaustively.
type CommandKind string

const (
	// CommandSetRiskStatus transitions an existing risk, optionally attaching
	// an acceptance boundary.
	CommandSetRiskStatus CommandKind = "set_risk_status"
	// CommandUpsertRisk creates or replaces a risk record keyed by its id.
	CommandUpsertRisk CommandKind = "upsert_risk"
	// CommandSetDecisionStatus transitions an existing decision.
	CommandSetDecisionStatus CommandKind = "set_decision_status"
	// CommandSetItemStatus transitions an existing work item.
	CommandSetItemStatus CommandKind = "set_item_status"
	// CommandScheduleReview sets a risk's next review date.
	CommandScheduleReview CommandKind = "schedule_review"
	// CommandRecomputeForecast signals consumers that simulation inputs
	// changed; it does not mutate the snapshot.
	CommandRecomputeForecast CommandKind = "recompute_forecast"
)

// Priority is a coarse urgency label on a command.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Command is one requested mutation. Only the payload fields relevant to
// Kind are set; TargetID names the entity the command addresses.
type Command struct {
	ID       string      `json:"id"`
	Kind     CommandKind `json:"kind"`
	RuleName string      `json:"rule_name"`
	TargetID string      `json:"target_id"`
	Reason   string      `json:"reason,omitempty"`
	IssuedAt time.Time   `json:"issued_at"`
	Priority Priority    `json:"priority"`

	RiskStatus     domain.RiskStatus          `json:"risk_status,omitempty"`
	Boundary       *domain.AcceptanceBoundary `json:"boundary,omitempty"`
	DecisionStatus domain.DecisionStatus      `json:"decision_status,omitempty"`
	ItemStatus     domain.ItemStatus          `json:"item_status,omitempty"`
	Risk           *domain.Risk               `json:"risk,omitempty"`
	ReviewAt       *time.Time                 `json:"review_at,omitempty"`
}
