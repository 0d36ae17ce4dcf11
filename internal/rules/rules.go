package rules

import (
	"fmt"

	"riskcast/internal/domain"
)

// Review cadence for accepted risks whose boundary is not a nearer date.
const acceptanceReviewDays = 7

// Parameters for the risk record a blocked item creates.
const (
	blockedRiskPrefix            = "risk_blocked_"
	blockedRiskProbability       = 0.8
	blockedRiskMinDelayDays      = 2.0
	blockedRiskDelayPerDependent = 2.0
	blockedRiskHighDependents    = 3
)

// BlockageRiskID returns the deterministic id of the risk tracking a blocked
// work item. Re-detection of the same blockage lands on the same id.
func BlockageRiskID(itemID string) string {
	return blockedRiskPrefix + itemID
}

// DefaultRules returns the built-in registry. Every rule is pure; adding or
// reordering entries never changes what an individual rule emits.
func DefaultRules() []Rule {
	return []Rule{
		decisionStatusRule(),
		acceptRiskRule(),
		mitigateRiskRule(),
		itemStatusRule(),
		blockageRiskRule(),
		blockageClearedRule(),
		riskStatusRule(),
		acceptanceExpiryRule(),
		signalDetectorRule(),
		forecastInvalidationRule(),
	}
}

// decisionStatusRule syncs decision lifecycle facts into the snapshot.
func decisionStatusRule() Rule {
	return Rule{
		Name:  "decision-status-sync",
		Kinds: []EventKind{EventDecisionApproved, EventDecisionSuperseded},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			d := s.Decision(ev.DecisionID)
			if d == nil {
				return nil
			}
			status := domain.DecisionApproved
			reason := "decision approved"
			if ev.Kind == EventDecisionSuperseded {
				reason = "decision superseded by a newer decision"
				if d.Status == domain.DecisionImplemented {
					status = domain.DecisionRolledBack
				} else {
					status = domain.DecisionCancelled
				}
			}
			return []Command{{
				Kind:           CommandSetDecisionStatus,
				TargetID:       d.ID,
				DecisionStatus: status,
				Reason:         reason,
			}}
		},
	}
}

// acceptRiskRule moves the linked risk to accepted when an accept_risk
// decision is approved, carrying the decision's boundary onto the risk and
// scheduling the next review.
func acceptRiskRule() Rule {
	return Rule{
		Name:  "accept-risk-approval",
		Kinds: []EventKind{EventDecisionApproved},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			d := s.Decision(ev.DecisionID)
			if d == nil || d.Type != domain.DecisionAcceptRisk {
				return nil
			}
			r := s.Risk(d.TargetRiskID)
			if r == nil || !domain.RiskTransitionAllowed(r.Status, domain.RiskAccepted) {
				return nil
			}
			review := ev.OccurredAt.AddDate(0, 0, acceptanceReviewDays)
			if d.Boundary != nil && d.Boundary.Kind == domain.BoundaryDate &&
				d.Boundary.Date != nil && d.Boundary.Date.Before(review) {
				review = *d.Boundary.Date
			}
			return []Command{
				{
					Kind:       CommandSetRiskStatus,
					TargetID:   r.ID,
					RiskStatus: domain.RiskAccepted,
					Boundary:   d.Boundary,
					Reason:     fmt.Sprintf("accepted by decision %s", d.ID),
				},
				{
					Kind:     CommandScheduleReview,
					TargetID: r.ID,
					ReviewAt: &review,
					Reason:   "accepted risks are re-reviewed on a fixed cadence",
				},
			}
		},
	}
}

// mitigateRiskRule moves the linked risk to mitigating when a mitigate_risk
// decision is approved.
func mitigateRiskRule() Rule {
	return Rule{
		Name:  "mitigate-risk-approval",
		Kinds: []EventKind{EventDecisionApproved},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			d := s.Decision(ev.DecisionID)
			if d == nil || d.Type != domain.DecisionMitigateRisk {
				return nil
			}
			r := s.Risk(d.TargetRiskID)
			if r == nil || !domain.RiskTransitionAllowed(r.Status, domain.RiskMitigating) {
				return nil
			}
			return []Command{{
				Kind:       CommandSetRiskStatus,
				TargetID:   r.ID,
				RiskStatus: domain.RiskMitigating,
				Reason:     fmt.Sprintf("mitigation started by decision %s", d.ID),
			}}
		},
	}
}

// itemStatusRule syncs work item lifecycle facts into the snapshot.
func itemStatusRule() Rule {
	return Rule{
		Name:  "item-status-sync",
		Kinds: []EventKind{EventItemBlocked, EventItemUnblocked, EventItemStarted},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			it := s.Item(ev.WorkItemID)
			if it == nil {
				return nil
			}
			status := domain.StatusInProgress
			reason := "work item started"
			switch ev.Kind {
			case EventItemBlocked:
				if it.Status == domain.StatusBlocked {
					return nil
				}
				status = domain.StatusBlocked
				reason = "work item reported blocked"
			case EventItemUnblocked:
				reason = "blockage cleared, work resumes"
			}
			return []Command{{
				Kind:       CommandSetItemStatus,
				TargetID:   it.ID,
				ItemStatus: status,
				Reason:     reason,
			}}
		},
	}
}

// blockageRiskRule creates or updates the risk record keyed to a blocked
// item. Re-detecting the same blockage writes the same id with a recomputed
// affected set and dependent count, never a second record.
func blockageRiskRule() Rule {
	return Rule{
		Name:  "blocked-item-risk",
		Kinds: []EventKind{EventItemBlocked},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			it := s.Item(ev.WorkItemID)
			if it == nil {
				return nil
			}
			dependents := s.Dependents(it.ID)
			delay := blockedRiskDelayPerDependent * float64(len(dependents))
			if delay < blockedRiskMinDelayDays {
				delay = blockedRiskMinDelayDays
			}
			severity := domain.SeverityMedium
			priority := PriorityHigh
			if len(dependents) >= blockedRiskHighDependents {
				severity = domain.SeverityHigh
				priority = PriorityUrgent
			}
			name := it.Name
			if name == "" {
				name = it.ID
			}
			risk := domain.Risk{
				ID:              BlockageRiskID(it.ID),
				Name:            "Blocked: " + name,
				Probability:     blockedRiskProbability,
				Impact:          domain.Impact{Type: domain.ImpactDelayDays, Value: delay},
				Status:          domain.RiskOpen,
				Severity:        severity,
				AffectedItemIDs: append([]string{it.ID}, dependents...),
				DependentCount:  len(dependents),
			}
			return []Command{{
				Kind:     CommandUpsertRisk,
				TargetID: risk.ID,
				Risk:     &risk,
				Priority: priority,
				Reason:   fmt.Sprintf("%d downstream items hang on this blockage", len(dependents)),
			}}
		},
	}
}

// blockageClearedRule closes the blockage risk once its item unblocks.
func blockageClearedRule() Rule {
	return Rule{
		Name:  "blockage-clearance",
		Kinds: []EventKind{EventItemUnblocked},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			r := s.Risk(BlockageRiskID(ev.WorkItemID))
			if r == nil || !domain.RiskTransitionAllowed(r.Status, domain.RiskClosed) {
				return nil
			}
			return []Command{{
				Kind:       CommandSetRiskStatus,
				TargetID:   r.ID,
				RiskStatus: domain.RiskClosed,
				Reason:     fmt.Sprintf("work item %s is no longer blocked", ev.WorkItemID),
			}}
		},
	}
}

// riskStatusRule syncs risk lifecycle facts into the snapshot.
func riskStatusRule() Rule {
	return Rule{
		Name:  "risk-status-sync",
		Kinds: []EventKind{EventRiskMaterialised, EventRiskClosed},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			r := s.Risk(ev.RiskID)
			if r == nil {
				return nil
			}
			status := domain.RiskClosed
			priority := PriorityNormal
			reason := "risk closed"
			if ev.Kind == EventRiskMaterialised {
				status = domain.RiskMaterialised
				priority = PriorityUrgent
				reason = "risk materialised, impact now applies with certainty"
			}
			return []Command{{
				Kind:       CommandSetRiskStatus,
				TargetID:   r.ID,
				RiskStatus: status,
				Priority:   priority,
				Reason:     reason,
			}}
		},
	}
}

// acceptanceExpiryRule reopens a risk whose acceptance boundary has passed.
func acceptanceExpiryRule() Rule {
	return Rule{
		Name:  "acceptance-expiry",
		Kinds: []EventKind{EventAcceptanceExpired},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			r := s.Risk(ev.RiskID)
			if r == nil || r.Status != domain.RiskAccepted {
				return nil
			}
			return []Command{{
				Kind:       CommandSetRiskStatus,
				TargetID:   r.ID,
				RiskStatus: domain.RiskOpen,
				Priority:   PriorityHigh,
				Reason:     "acceptance boundary passed, risk needs re-evaluation",
			}}
		},
	}
}

// forecastInvalidationRule flags that simulation inputs changed and a fresh
// forecast is due. The command mutates nothing; consumers schedule the rerun.
func forecastInvalidationRule() Rule {
	return Rule{
		Name: "forecast-invalidation",
		Kinds: []EventKind{
			EventDecisionApproved, EventDecisionSuperseded,
			EventItemBlocked, EventItemUnblocked,
			EventRiskMaterialised, EventRiskClosed, EventAcceptanceExpired,
		},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			target := ev.DecisionID
			if target == "" {
				target = ev.WorkItemID
			}
			if target == "" {
				target = ev.RiskID
			}
			priority := PriorityNormal
			switch ev.Kind {
			case EventRiskMaterialised:
				priority = PriorityUrgent
			case EventItemBlocked:
				priority = PriorityHigh
			}
			return []Command{{
				Kind:     CommandRecomputeForecast,
				TargetID: target,
				Priority: priority,
				Reason:   "simulation inputs changed",
			}}
		},
	}
}
