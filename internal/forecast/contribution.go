package forecast

import (
	"math"
	"sort"

	"riskcast/internal/domain"
	"riskcast/internal/simulation"
)

// Breakdown decomposes the forecast into named day-impacts: each simulated
// risk's expected value, each active decision's net analytic impact, and a
// residual baseline-uncertainty term (the focus entity's P80-P50 gap).
// Entries are rounded to a tenth of a day, entries that round to zero are
// dropped, and the list is ordered by descending magnitude with insertion
// order (risks, then decisions, then baseline) breaking ties.
func Breakdown(p *domain.Portfolio, res *simulation.Result, milestoneID string) []Contribution {
	var out []Contribution

	for i := range p.Risks {
		r := &p.Risks[i]
		if !r.Simulated() {
			continue
		}
		days := r.EffectiveProbability() * riskImpactDays(p, r)
		out = appendContribution(out, "risk:"+r.ID, days)
	}

	for i := range p.Decisions {
		d := &p.Decisions[i]
		if !d.Active() {
			continue
		}
		out = appendContribution(out, "decision:"+d.ID, decisionImpactDays(p, d))
	}

	kind, id, p50, p80 := res.Focus(milestoneID)
	if kind != "" && id != "" {
		out = appendContribution(out, "baseline_uncertainty", p80-p50)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Days) > math.Abs(out[j].Days)
	})
	return out
}

func appendContribution(out []Contribution, cause string, days float64) []Contribution {
	rounded := math.Round(days*10) / 10
	if rounded == 0 {
		return out
	}
	return append(out, Contribution{Cause: cause, Days: rounded})
}

// riskImpactDays converts a risk's typed impact into days against the likely
// remaining effort of its affected items. Multiplier impacts are linearized;
// this is an attribution estimate, not a re-simulation. A risk with no live
// affected items has no schedule effect, matching the modifier resolver.
func riskImpactDays(p *domain.Portfolio, r *domain.Risk) float64 {
	items := liveNamed(p, r.AffectedItemIDs)
	if len(items) == 0 {
		return 0
	}
	switch r.Impact.Type {
	case domain.ImpactDelayDays:
		return r.Impact.Value
	case domain.ImpactVelocityMultiplier:
		if r.Impact.Value <= 0 {
			return 0
		}
		return likelySum(p, items) * (1/r.Impact.Value - 1)
	case domain.ImpactEstimateMultiplier:
		return likelySum(p, items) * (r.Impact.Value - 1)
	}
	// Cost impacts carry no schedule effect.
	return 0
}

// decisionImpactDays estimates a decision's net schedule impact in days.
// Positive means the decision pushes work later. An empty target list means
// portfolio-wide, mirroring how effects resolve.
func decisionImpactDays(p *domain.Portfolio, d *domain.Decision) float64 {
	var items []int
	if len(d.TargetItemIDs) == 0 {
		items = allLive(p)
	} else {
		items = liveNamed(p, d.TargetItemIDs)
	}
	if len(items) == 0 {
		return 0
	}
	switch d.Effect.Type {
	case domain.EffectDelayDays:
		return d.Effect.Value
	case domain.EffectScopeMultiplier:
		return likelySum(p, items) * (d.Effect.Value - 1)
	case domain.EffectVelocityMultiplier:
		if d.Effect.Value <= 0 {
			return 0
		}
		return likelySum(p, items) * (1/d.Effect.Value - 1)
	}
	return 0
}

func likelySum(p *domain.Portfolio, items []int) float64 {
	total := 0.0
	for _, i := range items {
		total += p.Items[i].Estimate.Likely
	}
	return total
}

func liveNamed(p *domain.Portfolio, ids []string) []int {
	idx := p.ItemIndex()
	var out []int
	for _, id := range ids {
		if i, ok := idx[id]; ok && !p.Items[i].Completed() {
			out = append(out, i)
		}
	}
	return out
}

func allLive(p *domain.Portfolio) []int {
	var out []int
	for i := range p.Items {
		if !p.Items[i].Completed() {
			out = append(out, i)
		}
	}
	return out
}
