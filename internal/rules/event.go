package rules

import "time"

// EventKind enumerates the domain facts the rule engine consumes. The set is
// closed; events with an unknown kind are rejected, not ignored.
type EventKind string

const (
	// EventDecisionApproved fires when a proposed decision is approved.
	EventDecisionApproved EventKind = "decision_approved"
	// EventDecisionSuperseded fires when a newer decision replaces an older one.
	EventDecisionSuperseded EventKind = "decision_superseded"
	// EventItemBlocked fires when a work item hits an impediment. Re-detecting
	// the same blockage is legitimate and must update, not duplicate, state.
	EventItemBlocked EventKind = "work_item_blocked"
	// EventItemUnblocked fires when the impediment clears.
	EventItemUnblocked EventKind = "work_item_unblocked"
	// EventItemStarted fires when work begins on an item.
	EventItemStarted EventKind = "work_item_started"
	// EventRiskMaterialised fires when a risk's adverse outcome occurs in reality.
	EventRiskMaterialised EventKind = "risk_materialised"
	// EventRiskClosed fires when a risk is resolved without materializing.
	EventRiskClosed EventKind = "risk_closed"
	// EventAcceptanceExpired fires when an accepted risk's boundary passes.
	EventAcceptanceExpired EventKind = "acceptance_expired"
	// EventSignalScan asks the detector rules to sweep the whole snapshot for
	// emergent risk signals no single event carries.
	EventSignalScan EventKind = "signal_scan"
)

// Event is one immutable domain fact submitted to the engine. Exactly the
// reference fields relevant to Kind are set.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	DecisionID string    `json:"decision_id,omitempty"`
	WorkItemID string    `json:"work_item_id,omitempty"`
	RiskID     string    `json:"risk_id,omitempty"`
}
