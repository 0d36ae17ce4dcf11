package domain

import "fmt"

// ValidatePortfolio checks the whole input snapshot before any simulation
// work begins: estimate ordering, probability ranges, closed tag sets, and
// referential integrity. The first violation is returned as a structured
// error; cycle detection is the graph builder's job.
func ValidatePortfolio(p *Portfolio) error {
	if p.ReferenceDate.IsZero() {
		return &ValidationError{EntityKind: "portfolio", EntityID: "", Message: "reference_date is required"}
	}

	itemIDs := make(map[string]bool, len(p.Items))
	for i := range p.Items {
		item := &p.Items[i]
		if item.ID == "" {
			return &ValidationError{EntityKind: "work_item", EntityID: "", Message: "id is required"}
		}
		if itemIDs[item.ID] {
			return &ValidationError{EntityKind: "work_item", EntityID: item.ID, Message: "duplicate id"}
		}
		itemIDs[item.ID] = true

		switch item.Status {
		case StatusNotStarted, StatusInProgress, StatusBlocked, StatusCompleted:
		default:
			return &ValidationError{EntityKind: "work_item", EntityID: item.ID,
				Message: fmt.Sprintf("unknown status %q", item.Status)}
		}

		// Completed items are fixed points; their estimates are not sampled.
		if !item.Completed() {
			if err := validateEstimate(item.ID, item.Estimate); err != nil {
				return err
			}
		}

		for _, dep := range item.DependsOn {
			switch dep.Type {
			case FinishToStart, FinishToFinish, Blocking:
			default:
				return &ValidationError{EntityKind: "work_item", EntityID: item.ID,
					Message: fmt.Sprintf("unknown dependency type %q on dependency to %q", dep.Type, dep.OnID)}
			}
			if dep.LagDays < 0 {
				return &ValidationError{EntityKind: "work_item", EntityID: item.ID,
					Message: fmt.Sprintf("negative lag on dependency to %q", dep.OnID)}
			}
		}
	}

	// Dangling references are caught here so the graph builder can assume
	// every edge endpoint exists.
	for i := range p.Items {
		for _, dep := range p.Items[i].DependsOn {
			if !itemIDs[dep.OnID] {
				return &ValidationError{EntityKind: "work_item", EntityID: p.Items[i].ID,
					Message: fmt.Sprintf("depends on unknown item %q", dep.OnID)}
			}
		}
	}

	milestoneIDs := make(map[string]bool, len(p.Milestones))
	for i := range p.Milestones {
		m := &p.Milestones[i]
		if m.ID == "" {
			return &ValidationError{EntityKind: "milestone", EntityID: "", Message: "id is required"}
		}
		if milestoneIDs[m.ID] {
			return &ValidationError{EntityKind: "milestone", EntityID: m.ID, Message: "duplicate id"}
		}
		milestoneIDs[m.ID] = true
	}
	for i := range p.Items {
		if mid := p.Items[i].MilestoneID; mid != "" && !milestoneIDs[mid] {
			return &ValidationError{EntityKind: "work_item", EntityID: p.Items[i].ID,
				Message: fmt.Sprintf("references unknown milestone %q", mid)}
		}
	}

	riskIDs := make(map[string]bool, len(p.Risks))
	for i := range p.Risks {
		if err := validateRisk(&p.Risks[i], itemIDs); err != nil {
			return err
		}
		if riskIDs[p.Risks[i].ID] {
			return &ValidationError{EntityKind: "risk", EntityID: p.Risks[i].ID, Message: "duplicate id"}
		}
		riskIDs[p.Risks[i].ID] = true
	}

	decisionIDs := make(map[string]bool, len(p.Decisions))
	for i := range p.Decisions {
		if err := validateDecision(&p.Decisions[i], itemIDs, riskIDs); err != nil {
			return err
		}
		if decisionIDs[p.Decisions[i].ID] {
			return &ValidationError{EntityKind: "decision", EntityID: p.Decisions[i].ID, Message: "duplicate id"}
		}
		decisionIDs[p.Decisions[i].ID] = true
	}

	return nil
}

func validateEstimate(itemID string, e Estimate) error {
	if e.Min <= 0 || e.Likely <= 0 || e.Max <= 0 {
		return &InvalidEstimateError{WorkItemID: itemID, Estimate: e}
	}
	if e.Min > e.Likely || e.Likely > e.Max {
		return &InvalidEstimateError{WorkItemID: itemID, Estimate: e}
	}
	return nil
}

func validateRisk(r *Risk, itemIDs map[string]bool) error {
	if r.ID == "" {
		return &ValidationError{EntityKind: "risk", EntityID: "", Message: "id is required"}
	}
	if r.Probability < 0 || r.Probability > 1 {
		return &ValidationError{EntityKind: "risk", EntityID: r.ID,
			Message: fmt.Sprintf("probability %g out of range [0,1]", r.Probability)}
	}
	switch r.Impact.Type {
	case ImpactDelayDays, ImpactVelocityMultiplier, ImpactEstimateMultiplier, ImpactCostMultiplier:
	default:
		return &ValidationError{EntityKind: "risk", EntityID: r.ID,
			Message: fmt.Sprintf("unknown impact type %q", r.Impact.Type)}
	}
	if r.Impact.Type == ImpactVelocityMultiplier && r.Impact.Value <= 0 {
		return &ValidationError{EntityKind: "risk", EntityID: r.ID,
			Message: "velocity_multiplier impact requires a value > 0"}
	}
	switch r.Status {
	case RiskOpen, RiskAccepted, RiskMitigating, RiskMaterialised, RiskClosed:
	default:
		return &ValidationError{EntityKind: "risk", EntityID: r.ID,
			Message: fmt.Sprintf("unknown status %q (normalize legacy vocabularies at intake)", r.Status)}
	}
	for _, id := range r.AffectedItemIDs {
		if !itemIDs[id] {
			return &ValidationError{EntityKind: "risk", EntityID: r.ID,
				Message: fmt.Sprintf("affects unknown item %q", id)}
		}
	}
	return nil
}

func validateDecision(d *Decision, itemIDs, riskIDs map[string]bool) error {
	if d.ID == "" {
		return &ValidationError{EntityKind: "decision", EntityID: "", Message: "id is required"}
	}
	want, ok := expectedEffect[d.Type]
	if !ok {
		return &ValidationError{EntityKind: "decision", EntityID: d.ID,
			Message: fmt.Sprintf("unknown type %q", d.Type)}
	}
	got := d.Effect.Type
	if got == "" {
		got = EffectNone
	}
	if got != want {
		return &ValidationError{EntityKind: "decision", EntityID: d.ID,
			Message: fmt.Sprintf("type %s requires effect type %q, got %q", d.Type, want, got)}
	}
	switch d.Status {
	case DecisionProposed, DecisionApproved, DecisionImplemented, DecisionCompleted,
		DecisionRejected, DecisionCancelled, DecisionRolledBack:
	default:
		return &ValidationError{EntityKind: "decision", EntityID: d.ID,
			Message: fmt.Sprintf("unknown status %q", d.Status)}
	}

	switch d.Type {
	case DecisionAcceptRisk, DecisionMitigateRisk:
		if d.TargetRiskID == "" {
			return &ValidationError{EntityKind: "decision", EntityID: d.ID,
				Message: fmt.Sprintf("type %s requires target_risk_id", d.Type)}
		}
		if !riskIDs[d.TargetRiskID] {
			return &ValidationError{EntityKind: "decision", EntityID: d.ID,
				Message: fmt.Sprintf("targets unknown risk %q", d.TargetRiskID)}
		}
	default:
		for _, id := range d.TargetItemIDs {
			if !itemIDs[id] {
				return &ValidationError{EntityKind: "decision", EntityID: d.ID,
					Message: fmt.Sprintf("targets unknown item %q", id)}
			}
		}
	}

	switch d.Effect.Type {
	case EffectVelocityMultiplier:
		if d.Effect.Value <= 0 {
			return &ValidationError{EntityKind: "decision", EntityID: d.ID,
				Message: "velocity_multiplier effect requires a value > 0"}
		}
	case EffectScopeMultiplier:
		if d.Effect.Value < 0 {
			return &ValidationError{EntityKind: "decision", EntityID: d.ID,
				Message: "scope_multiplier effect requires a value >= 0"}
		}
	}
	if d.Effect.RampupDays < 0 || d.Effect.DurationDays < 0 || d.Effect.KnowledgeTransferDays < 0 {
		return &ValidationError{EntityKind: "decision", EntityID: d.ID,
			Message: "effect windows must not be negative"}
	}
	return nil
}
