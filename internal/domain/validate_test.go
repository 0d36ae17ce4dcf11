package domain

import (
	"errors"
	"testing"
	"time"
)

func basePortfolio() *Portfolio {
	ref := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return &Portfolio{
		ReferenceDate: ref,
		Items: []WorkItem{
			{ID: "a", Estimate: Estimate{Min: 1, Likely: 2, Max: 3}, Status: StatusNotStarted},
			{ID: "b", Estimate: Estimate{Min: 2, Likely: 3, Max: 5}, Status: StatusNotStarted,
				DependsOn: []Dependency{{OnID: "a", Type: FinishToStart}}},
		},
	}
}

func TestValidatePortfolio_Estimates(t *testing.T) {
	tests := []struct {
		name    string
		est     Estimate
		wantErr bool
	}{
		{"Valid", Estimate{Min: 1, Likely: 2, Max: 3}, false},
		{"Degenerate", Estimate{Min: 2, Likely: 2, Max: 2}, false},
		{"MinAboveLikely", Estimate{Min: 3, Likely: 2, Max: 4}, true},
		{"LikelyAboveMax", Estimate{Min: 1, Likely: 5, Max: 4}, true},
		{"ZeroMax", Estimate{Min: 0, Likely: 0, Max: 0}, true},
		{"Negative", Estimate{Min: -1, Likely: 1, Max: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePortfolio()
			p.Items[0].Estimate = tt.est
			err := ValidatePortfolio(p)
			if tt.wantErr {
				var estErr *InvalidEstimateError
				if !errors.As(err, &estErr) {
					t.Fatalf("ValidatePortfolio() = %v, want InvalidEstimateError", err)
				}
				if estErr.WorkItemID != "a" {
					t.Errorf("WorkItemID = %q, want %q", estErr.WorkItemID, "a")
				}
			} else if err != nil {
				t.Errorf("ValidatePortfolio() = %v, want nil", err)
			}
		})
	}
}

func TestValidatePortfolio_CompletedEstimateIgnored(t *testing.T) {
	p := basePortfolio()
	done := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	p.Items[0].Status = StatusCompleted
	p.Items[0].CompletedAt = &done
	p.Items[0].Estimate = Estimate{} // completed items are fixed points

	if err := ValidatePortfolio(p); err != nil {
		t.Errorf("ValidatePortfolio() = %v, want nil", err)
	}
}

func TestValidatePortfolio_References(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Portfolio)
	}{
		{"DanglingDependency", func(p *Portfolio) {
			p.Items[1].DependsOn[0].OnID = "ghost"
		}},
		{"UnknownDependencyType", func(p *Portfolio) {
			p.Items[1].DependsOn[0].Type = "starts_with"
		}},
		{"UnknownMilestone", func(p *Portfolio) {
			p.Items[0].MilestoneID = "m-ghost"
		}},
		{"DuplicateItem", func(p *Portfolio) {
			p.Items = append(p.Items, WorkItem{ID: "a", Estimate: Estimate{Min: 1, Likely: 1, Max: 1}, Status: StatusNotStarted})
		}},
		{"RiskAffectsUnknownItem", func(p *Portfolio) {
			p.Risks = []Risk{{ID: "r1", Probability: 0.5, Status: RiskOpen,
				Impact: Impact{Type: ImpactDelayDays, Value: 3}, AffectedItemIDs: []string{"ghost"}}}
		}},
		{"RiskProbabilityOutOfRange", func(p *Portfolio) {
			p.Risks = []Risk{{ID: "r1", Probability: 1.5, Status: RiskOpen,
				Impact: Impact{Type: ImpactDelayDays, Value: 3}}}
		}},
		{"RiskUnknownImpact", func(p *Portfolio) {
			p.Risks = []Risk{{ID: "r1", Probability: 0.5, Status: RiskOpen,
				Impact: Impact{Type: "morale_multiplier", Value: 3}}}
		}},
		{"DecisionUnknownType", func(p *Portfolio) {
			p.Decisions = []Decision{{ID: "d1", Type: "outsource", Status: DecisionProposed}}
		}},
		{"DecisionEffectMismatch", func(p *Portfolio) {
			p.Decisions = []Decision{{ID: "d1", Type: DecisionDelay, Status: DecisionProposed,
				Effect: Effect{Type: EffectVelocityMultiplier, Value: 1.2}}}
		}},
		{"AcceptRiskWithoutTarget", func(p *Portfolio) {
			p.Decisions = []Decision{{ID: "d1", Type: DecisionAcceptRisk, Status: DecisionProposed}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePortfolio()
			tt.mutate(p)
			err := ValidatePortfolio(p)
			if err == nil {
				t.Fatal("ValidatePortfolio() = nil, want error")
			}
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("error type = %T, want *ValidationError", err)
			}
		})
	}
}

func TestNormalizeRiskStatus(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected RiskStatus
		ok       bool
	}{
		{"Canonical", "open", RiskOpen, true},
		{"CanonicalMaterialised", "materialised", RiskMaterialised, true},
		{"LegacyIdentified", "identified", RiskOpen, true},
		{"LegacyAssessed", "assessed", RiskOpen, true},
		{"LegacyActive", "active", RiskOpen, true},
		{"LegacyMitigated", "mitigated", RiskMitigating, true},
		{"LegacyAmericanSpelling", "materialized", RiskMaterialised, true},
		{"Closed", "closed", RiskClosed, true},
		{"Unknown", "simmering", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeRiskStatus(tt.in)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("NormalizeRiskStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestRiskTransitionAllowed(t *testing.T) {
	tests := []struct {
		name     string
		from, to RiskStatus
		expected bool
	}{
		{"OpenToAccepted", RiskOpen, RiskAccepted, true},
		{"OpenToMitigating", RiskOpen, RiskMitigating, true},
		{"AcceptedReopens", RiskAccepted, RiskOpen, true},
		{"MitigatingToClosed", RiskMitigating, RiskClosed, true},
		{"MaterialisedIsTerminal", RiskMaterialised, RiskOpen, false},
		{"ClosedIsTerminal", RiskClosed, RiskOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskTransitionAllowed(tt.from, tt.to); got != tt.expected {
				t.Errorf("RiskTransitionAllowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestDecisionTransitionAllowed(t *testing.T) {
	tests := []struct {
		name     string
		from, to DecisionStatus
		expected bool
	}{
		{"ProposedToApproved", DecisionProposed, DecisionApproved, true},
		{"ProposedToRejected", DecisionProposed, DecisionRejected, true},
		{"ApprovedToImplemented", DecisionApproved, DecisionImplemented, true},
		{"ImplementedToCompleted", DecisionImplemented, DecisionCompleted, true},
		{"ProposedSkipsToCompleted", DecisionProposed, DecisionCompleted, false},
		{"RejectedIsTerminal", DecisionRejected, DecisionApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecisionTransitionAllowed(tt.from, tt.to); got != tt.expected {
				t.Errorf("DecisionTransitionAllowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestPortfolioClone_Isolation(t *testing.T) {
	p := basePortfolio()
	target := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	p.Milestones = []Milestone{{ID: "m1", TargetDate: &target}}
	p.Items[0].MilestoneID = "m1"
	p.Risks = []Risk{{ID: "r1", Probability: 0.4, Status: RiskOpen,
		Impact: Impact{Type: ImpactDelayDays, Value: 5}, AffectedItemIDs: []string{"a"}}}

	c := p.Clone()
	c.Items[0].Estimate.Max = 99
	c.Items[1].DependsOn[0].LagDays = 7
	c.Risks[0].Probability = 0.9
	*c.Milestones[0].TargetDate = target.AddDate(0, 1, 0)

	if p.Items[0].Estimate.Max != 3 {
		t.Errorf("baseline estimate mutated: %v", p.Items[0].Estimate)
	}
	if p.Items[1].DependsOn[0].LagDays != 0 {
		t.Errorf("baseline dependency mutated: %v", p.Items[1].DependsOn[0])
	}
	if p.Risks[0].Probability != 0.4 {
		t.Errorf("baseline risk mutated: %v", p.Risks[0])
	}
	if !p.Milestones[0].TargetDate.Equal(target) {
		t.Errorf("baseline milestone target mutated: %v", p.Milestones[0].TargetDate)
	}
}
