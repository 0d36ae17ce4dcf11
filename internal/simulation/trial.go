package simulation

import (
	"math"

	"riskcast/internal/domain"
)

// trialScratch holds the per-worker arrays one trial writes into. Workers
// own their scratch exclusively; results are copied out into the shared
// per-trial sample columns afterwards.
type trialScratch struct {
	finish   []float64
	duration []float64
	addDays  []float64
	estMult  []float64
	velMult  []float64
}

func newTrialScratch(n int) *trialScratch {
	return &trialScratch{
		finish:   make([]float64, n),
		duration: make([]float64, n),
		addDays:  make([]float64, n),
		estMult:  make([]float64, n),
		velMult:  make([]float64, n),
	}
}

func (s *trialScratch) reset() {
	for i := range s.addDays {
		s.addDays[i] = 0
		s.estMult[i] = 1
		s.velMult[i] = 1
	}
}

// runTrial samples one complete pass through the dependency graph.
func (e *Engine) runTrial(trial int, seed int64, s *trialScratch) {
	s.reset()
	stream := trialStream(seed, trial)

	// Draw risk materializations first; each risk has its own stream.
	for i := range e.plan.Bindings {
		b := &e.plan.Bindings[i]
		if !b.Certain && unitFor(stream, "risk:"+b.Risk.ID) >= b.P {
			continue
		}
		for _, idx := range b.Items {
			switch b.Risk.Impact.Type {
			case domain.ImpactDelayDays:
				s.addDays[idx] += b.Risk.Impact.Value
			case domain.ImpactVelocityMultiplier:
				s.velMult[idx] *= b.Risk.Impact.Value
			case domain.ImpactEstimateMultiplier:
				s.estMult[idx] *= b.Risk.Impact.Value
			}
		}
	}

	// Completed items are fixed points with known finish dates.
	for i := range e.graph.Nodes {
		item := e.graph.Nodes[i].Item
		if !item.Completed() {
			continue
		}
		s.duration[i] = 0
		if item.CompletedAt != nil {
			s.finish[i] = domain.DaysBetween(e.ref, *item.CompletedAt)
		} else {
			s.finish[i] = 0
		}
	}

	// Walk the topological order, propagating start and finish times.
	for _, idx := range e.graph.Order {
		ip := &e.plan.Items[idx]
		if ip.Removed {
			s.finish[idx] = math.NaN()
			s.duration[idx] = math.NaN()
			continue
		}
		node := &e.graph.Nodes[idx]

		start := ip.StartOffset
		ffBound := math.Inf(-1)
		for _, edge := range node.In {
			if e.plan.Items[edge.From].Removed {
				continue
			}
			pf := s.finish[edge.From] + edge.Lag
			switch edge.Type {
			case domain.FinishToFinish:
				if pf > ffBound {
					ffBound = pf
				}
			default:
				// finish_to_start and blocking both gate the start.
				if pf > start {
					start = pf
				}
			}
		}
		if start < 0 {
			start = 0
		}

		est := ip.Estimate
		raw := sampleTriangular(unitFor(stream, "item:"+node.Item.ID), est.Min, est.Likely, est.Max)
		raw = raw*s.estMult[idx] + s.addDays[idx]

		dur := ip.DurationFrom(start, raw, s.velMult[idx])
		finish := start + dur
		if ffBound > finish {
			finish = ffBound
		}
		s.finish[idx] = finish
		s.duration[idx] = dur
	}
}

// sampleTriangular inverts the triangular CDF for a uniform u in [0,1).
// A degenerate estimate (min = likely = max) is a deterministic sample.
func sampleTriangular(u, min, likely, max float64) float64 {
	if max <= min {
		return min
	}
	c := (likely - min) / (max - min)
	if u < c {
		return min + math.Sqrt(u*(max-min)*(likely-min))
	}
	return max - math.Sqrt((1-u)*(max-min)*(max-likely))
}
