package rules

import (
	"fmt"

	"riskcast/internal/domain"
)

// Signal thresholds.
const (
	blockedClusterMin   = 3
	clusterDelayPerItem = 2.0
	wipOverloadLimit    = 3
	overloadProbability = 0.6
	overloadVelocity    = 0.8
	clusterRiskID       = "risk_blocked_cluster"
	overloadRiskPrefix  = "risk_wip_overload_"
)

// signalDetectorRule sweeps the whole snapshot for emergent risks that no
// single event carries. Every command it emits is a keyed upsert, so a second
// sweep over the same state refreshes the same records.
func signalDetectorRule() Rule {
	return Rule{
		Name:  "risk-signal-detector",
		Kinds: []EventKind{EventSignalScan},
		Evaluate: func(ev Event, s *Snapshot) []Command {
			cmds := detectBlockedCluster(s)
			cmds = append(cmds, detectWIPOverload(s)...)
			if len(cmds) == 0 {
				return nil
			}
			cmds = append(cmds, Command{
				Kind:   CommandRecomputeForecast,
				Reason: "detected risk signals changed simulation inputs",
			})
			return cmds
		},
	}
}

// detectBlockedCluster flags widespread blockage: once enough items sit
// blocked at the same time, the impediments are systemic rather than local.
func detectBlockedCluster(s *Snapshot) []Command {
	var blocked []string
	for _, id := range s.itemOrder {
		if s.items[id].Status == domain.StatusBlocked {
			blocked = append(blocked, id)
		}
	}
	if len(blocked) < blockedClusterMin {
		return nil
	}
	risk := domain.Risk{
		ID:              clusterRiskID,
		Name:            "Blocked-item cluster",
		Probability:     blockedRiskProbability,
		Impact:          domain.Impact{Type: domain.ImpactDelayDays, Value: clusterDelayPerItem * float64(len(blocked))},
		Status:          domain.RiskOpen,
		Severity:        domain.SeverityHigh,
		AffectedItemIDs: blocked,
		DependentCount:  len(blocked),
	}
	return []Command{{
		Kind:     CommandUpsertRisk,
		TargetID: risk.ID,
		Risk:     &risk,
		Priority: PriorityUrgent,
		Reason:   fmt.Sprintf("%d items are blocked at once", len(blocked)),
	}}
}

// detectWIPOverload flags assignees carrying more concurrent in-progress
// items than they can realistically advance. Their items slow down rather
// than slip by a fixed amount, so the impact is a velocity multiplier.
func detectWIPOverload(s *Snapshot) []Command {
	perAssignee := make(map[string][]string)
	var assignees []string
	for _, id := range s.itemOrder {
		it := s.items[id]
		if it.AssigneeID == "" || it.Status != domain.StatusInProgress {
			continue
		}
		if _, ok := perAssignee[it.AssigneeID]; !ok {
			assignees = append(assignees, it.AssigneeID)
		}
		perAssignee[it.AssigneeID] = append(perAssignee[it.AssigneeID], id)
	}

	var cmds []Command
	for _, assignee := range assignees {
		items := perAssignee[assignee]
		if len(items) <= wipOverloadLimit {
			continue
		}
		risk := domain.Risk{
			ID:              overloadRiskPrefix + assignee,
			Name:            "WIP overload: " + assignee,
			Probability:     overloadProbability,
			Impact:          domain.Impact{Type: domain.ImpactVelocityMultiplier, Value: overloadVelocity},
			Status:          domain.RiskOpen,
			Severity:        domain.SeverityMedium,
			AffectedItemIDs: items,
		}
		cmds = append(cmds, Command{
			Kind:     CommandUpsertRisk,
			TargetID: risk.ID,
			Risk:     &risk,
			Priority: PriorityHigh,
			Reason:   fmt.Sprintf("%s has %d items in progress at once", assignee, len(items)),
		})
	}
	return cmds
}
