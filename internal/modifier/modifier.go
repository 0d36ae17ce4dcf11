package modifier

import (
	"fmt"
	"math"
	"sort"

	"riskcast/internal/domain"
	"riskcast/internal/graph"
)

// Segment is one piece of a per-item velocity curve. The multiplier moves
// linearly from M0 at Start to M1 at End; the final segment has End = +Inf
// and a flat multiplier. Time is measured in days from the run reference date.
type Segment struct {
	Start float64
	End   float64
	M0    float64
	M1    float64
}

// ItemPlan is the compiled static state of one work item for a run.
type ItemPlan struct {
	// Removed drops the item from the graph for this run (scope zeroed).
	Removed bool
	// Estimate carries scope multipliers already applied.
	Estimate domain.Estimate
	// StartOffset is the summed fixed delay applied to the earliest start.
	StartOffset float64
	// Curve is the combined velocity curve. Nil means flat 1.0.
	Curve []Segment
}

// RiskBinding is one risk's per-trial materialization rule. Bindings with
// zero effective probability or no schedule impact are never created, so a
// probability-zero risk leaves trial sampling untouched.
type RiskBinding struct {
	Risk *domain.Risk
	// Items are the arena indices of affected, non-completed items.
	Items []int
	// P is the effective materialization probability for a trial.
	P float64
	// Certain short-circuits the Bernoulli draw (materialised status or P >= 1).
	Certain bool
}

// Plan is the compiled modifier state for one simulation run: decisions and
// risks translated into per-item numeric adjustments and per-trial bindings.
type Plan struct {
	Items    []ItemPlan
	Bindings []RiskBinding
}

// window is a single velocity effect before curve combination.
type window struct {
	start    float64 // onset offset (knowledge-transfer grace)
	rampup   float64
	duration float64 // 0 = permanent
	target   float64
}

// Compile translates approved-or-later decisions and non-closed risks into a
// Plan against the built graph. Effect and impact tags were validated at
// intake; an unknown tag reaching this point is a programming error and is
// reported as such.
func Compile(p *domain.Portfolio, g *graph.Graph) (*Plan, error) {
	plan := &Plan{Items: make([]ItemPlan, len(g.Nodes))}
	for i := range g.Nodes {
		plan.Items[i] = ItemPlan{Estimate: g.Nodes[i].Item.Estimate}
	}

	windows := make(map[int][]window)

	for di := range p.Decisions {
		d := &p.Decisions[di]
		if !d.Active() {
			continue
		}

		switch d.Effect.Type {
		case domain.EffectDelayDays:
			for _, idx := range targetIndices(d, g) {
				plan.Items[idx].StartOffset += d.Effect.Value
			}

		case domain.EffectScopeMultiplier:
			for _, idx := range targetIndices(d, g) {
				if d.Effect.Value == 0 {
					plan.Items[idx].Removed = true
					continue
				}
				plan.Items[idx].Estimate = plan.Items[idx].Estimate.Scale(d.Effect.Value)
			}

		case domain.EffectVelocityMultiplier:
			w := window{
				start:    d.Effect.KnowledgeTransferDays,
				rampup:   d.Effect.RampupDays,
				duration: d.Effect.DurationDays,
				target:   d.Effect.Value,
			}
			for _, idx := range targetIndices(d, g) {
				windows[idx] = append(windows[idx], w)
			}

		case domain.EffectNone, "":
			// change_priority reorders work the simulator cannot observe;
			// accept_risk and mitigate_risk act through the rule engine.

		default:
			return nil, fmt.Errorf("decision %s: unhandled effect type %q", d.ID, d.Effect.Type)
		}
	}

	for idx, ws := range windows {
		plan.Items[idx].Curve = buildCurve(ws)
	}

	for ri := range p.Risks {
		r := &p.Risks[ri]
		if !r.Simulated() {
			continue
		}
		if r.Impact.Type == domain.ImpactCostMultiplier {
			// Cost impacts carry no schedule effect.
			continue
		}
		prob := r.EffectiveProbability()
		if prob <= 0 {
			continue
		}

		var items []int
		for _, id := range r.AffectedItemIDs {
			if n, ok := g.NodeByID(id); ok && !n.Item.Completed() {
				items = append(items, n.Index)
			}
		}
		if len(items) == 0 {
			continue
		}

		plan.Bindings = append(plan.Bindings, RiskBinding{
			Risk:    r,
			Items:   items,
			P:       prob,
			Certain: prob >= 1,
		})
	}

	return plan, nil
}

// targetIndices resolves a decision's targets to non-completed arena indices.
// An effect decision with no explicit targets applies portfolio-wide; this is
// how a global capacity change is expressed.
func targetIndices(d *domain.Decision, g *graph.Graph) []int {
	if len(d.TargetItemIDs) == 0 {
		var all []int
		for i := range g.Nodes {
			if !g.Nodes[i].Item.Completed() {
				all = append(all, i)
			}
		}
		return all
	}
	var out []int
	for _, id := range d.TargetItemIDs {
		if n, ok := g.NodeByID(id); ok && !n.Item.Completed() {
			out = append(out, n.Index)
		}
	}
	return out
}

// buildCurve combines overlapping velocity windows into contiguous segments.
// Multipliers multiply; the product is linearized between the union of the
// windows' breakpoints, which is exact for a single window and a close
// approximation when ramps overlap.
func buildCurve(ws []window) []Segment {
	bps := []float64{0}
	for _, w := range ws {
		bps = append(bps, w.start)
		if w.rampup > 0 {
			bps = append(bps, w.start+w.rampup)
		}
		if w.duration > 0 {
			bps = append(bps, w.start+w.duration)
		}
	}
	sort.Float64s(bps)
	uniq := bps[:1]
	for _, b := range bps[1:] {
		if b > uniq[len(uniq)-1] {
			uniq = append(uniq, b)
		}
	}

	var segs []Segment
	for i := 0; i < len(uniq)-1; i++ {
		segs = append(segs, Segment{
			Start: uniq[i],
			End:   uniq[i+1],
			M0:    productAt(ws, uniq[i], false),
			M1:    productAt(ws, uniq[i+1], true),
		})
	}
	tail := productAt(ws, uniq[len(uniq)-1], false)
	segs = append(segs, Segment{Start: uniq[len(uniq)-1], End: math.Inf(1), M0: tail, M1: tail})
	return segs
}

// productAt evaluates the multiplier product at time t. Boundaries are
// right-continuous; fromLeft selects the value approaching t from below,
// which matters at step onsets and window ends.
func productAt(ws []window, t float64, fromLeft bool) float64 {
	m := 1.0
	for _, w := range ws {
		m *= windowAt(w, t, fromLeft)
	}
	return m
}

func windowAt(w window, t float64, fromLeft bool) float64 {
	rel := t - w.start
	if rel < 0 || (rel == 0 && fromLeft) {
		return 1
	}
	if w.duration > 0 && (rel > w.duration || (rel == w.duration && !fromLeft)) {
		return 1
	}
	if w.rampup > 0 && (rel < w.rampup || (rel == w.rampup && fromLeft)) {
		return 1 + (w.target-1)*rel/w.rampup
	}
	return w.target
}

// DurationFrom converts sampled effort into elapsed days for an item
// starting at startDay. The curve is integrated piecewise: each segment
// contributes capacity until the effort is consumed. extraMult folds
// per-trial constant multipliers (materialized velocity risks) into the
// curve without rebuilding it.
func (ip *ItemPlan) DurationFrom(startDay, effort, extraMult float64) float64 {
	if effort <= 0 {
		return 0
	}
	if extraMult <= 0 {
		extraMult = 1
	}
	if len(ip.Curve) == 0 {
		return effort / extraMult
	}

	remaining := effort
	t := startDay
	for _, s := range ip.Curve {
		if t >= s.End {
			continue
		}
		from := t
		if from < s.Start {
			from = s.Start
		}
		m0 := segValue(s, from) * extraMult

		if math.IsInf(s.End, 1) {
			return from + remaining/m0 - startDay
		}

		m1 := segValue(s, s.End) * extraMult
		width := s.End - from
		capacity := (m0 + m1) / 2 * width
		if capacity >= remaining {
			return from + solveSpan(m0, (m1-m0)/width, remaining) - startDay
		}
		remaining -= capacity
		t = s.End
	}
	// Unreachable: the tail segment is unbounded.
	return t + remaining - startDay
}

// segValue interpolates the multiplier inside a segment.
func segValue(s Segment, t float64) float64 {
	if math.IsInf(s.End, 1) || s.M0 == s.M1 {
		return s.M0
	}
	return s.M0 + (s.M1-s.M0)*(t-s.Start)/(s.End-s.Start)
}

// solveSpan solves integral(m0 + b*x, x=0..span) = effort for span.
func solveSpan(m0, b, effort float64) float64 {
	if math.Abs(b) < 1e-12 {
		return effort / m0
	}
	return (-m0 + math.Sqrt(m0*m0+2*b*effort)) / b
}
