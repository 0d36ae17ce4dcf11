package simulation

import (
	"math"
	"sort"

	"riskcast/internal/domain"
	"riskcast/internal/stats"
)

// Percentiles holds the standard percentile set in fractional days from the
// reference date.
type Percentiles struct {
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P80 float64 `json:"p80"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// PercentileDates is the same set rendered as calendar dates.
type PercentileDates struct {
	P10 string `json:"p10"`
	P50 string `json:"p50"`
	P80 string `json:"p80"`
	P90 string `json:"p90"`
	P99 string `json:"p99"`
}

// ItemForecast is the per-work-item aggregation of all trials.
type ItemForecast struct {
	ID              string          `json:"id"`
	Name            string          `json:"name,omitempty"`
	PercentileDates PercentileDates `json:"percentile_dates"`
	DurationDays    Percentiles     `json:"duration_percentiles"`
	FinishDays      Percentiles     `json:"finish_day_percentiles"`
}

// MilestoneForecast aggregates the completion of a milestone, defined per
// trial as the latest finish among its member items.
type MilestoneForecast struct {
	ID                string          `json:"id"`
	Name              string          `json:"name,omitempty"`
	PercentileDates   PercentileDates `json:"percentile_dates"`
	FinishDays        Percentiles     `json:"finish_day_percentiles"`
	ProbabilityOnTime float64         `json:"probability_on_time"`
	ExpectedDelayDays float64         `json:"expected_delay_days"`
}

// RunMeta records how a result was produced.
type RunMeta struct {
	NumSimulations  int   `json:"num_simulations"`
	ExecutionTimeMS int64 `json:"execution_time_ms"`
	SeedUsed        int64 `json:"seed_used"`
	Workers         int   `json:"workers"`
}

// Result is the full output of one simulation run.
type Result struct {
	ReferenceDate string              `json:"reference_date"`
	Items         []ItemForecast      `json:"work_items"`
	Milestones    []MilestoneForecast `json:"milestones"`
	Meta          RunMeta             `json:"metadata"`
}

// Item returns the forecast for one work item, or nil when the item was
// filtered out or removed from scope.
func (r *Result) Item(id string) *ItemForecast {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// Milestone returns the forecast for one milestone, or nil.
func (r *Result) Milestone(id string) *MilestoneForecast {
	for i := range r.Milestones {
		if r.Milestones[i].ID == id {
			return &r.Milestones[i]
		}
	}
	return nil
}

// Focus picks the headline finish for a result: the named milestone when one
// is given, otherwise the latest-finishing milestone, otherwise the
// latest-finishing item. It returns the entity kind, its id and the P50/P80
// finish in days.
func (r *Result) Focus(milestoneID string) (kind, id string, p50, p80 float64) {
	if milestoneID != "" {
		if ms := r.Milestone(milestoneID); ms != nil {
			return "milestone", ms.ID, ms.FinishDays.P50, ms.FinishDays.P80
		}
	}
	if len(r.Milestones) > 0 {
		best := 0
		for i := range r.Milestones {
			if r.Milestones[i].FinishDays.P80 > r.Milestones[best].FinishDays.P80 {
				best = i
			}
		}
		ms := &r.Milestones[best]
		return "milestone", ms.ID, ms.FinishDays.P50, ms.FinishDays.P80
	}
	if len(r.Items) > 0 {
		best := 0
		for i := range r.Items {
			if r.Items[i].FinishDays.P80 > r.Items[best].FinishDays.P80 {
				best = i
			}
		}
		it := &r.Items[best]
		return "work_item", it.ID, it.FinishDays.P50, it.FinishDays.P80
	}
	return "", "", 0, 0
}

// aggregate folds the per-trial sample matrix into percentile forecasts.
// Milestone samples are derived before the item columns are sorted, because
// the per-trial max needs aligned columns.
func (e *Engine) aggregate(finishSamples, durationSamples [][]float64, trials int, cfg Config) *Result {
	result := &Result{ReferenceDate: e.ref.Format("2006-01-02")}

	var keep map[string]bool
	if len(cfg.FilterItemIDs) > 0 {
		keep = make(map[string]bool, len(cfg.FilterItemIDs))
		for _, id := range cfg.FilterItemIDs {
			keep[id] = true
		}
	}

	msSamples := make([][]float64, len(e.milestones))
	for m := range e.milestones {
		ms := e.milestones[m]
		if cfg.FilterMilestoneID != "" && ms.ID != cfg.FilterMilestoneID {
			continue
		}
		sample := make([]float64, trials)
		for t := 0; t < trials; t++ {
			latest := 0.0
			for _, i := range e.members[ms.ID] {
				v := finishSamples[i][t]
				if math.IsNaN(v) {
					continue
				}
				if v > latest {
					latest = v
				}
			}
			sample[t] = latest
		}
		msSamples[m] = sample
	}

	for i, node := range e.graph.Nodes {
		if e.plan.Items[i].Removed {
			continue
		}
		if keep != nil && !keep[node.Item.ID] {
			continue
		}
		sort.Float64s(finishSamples[i])
		sort.Float64s(durationSamples[i])
		finish := percentilesOf(finishSamples[i])
		result.Items = append(result.Items, ItemForecast{
			ID:              node.Item.ID,
			Name:            node.Item.Name,
			PercentileDates: e.datesOf(finish),
			DurationDays:    percentilesOf(durationSamples[i]),
			FinishDays:      finish,
		})
	}

	for m := range e.milestones {
		sample := msSamples[m]
		if sample == nil {
			continue
		}
		ms := e.milestones[m]
		sort.Float64s(sample)
		finish := percentilesOf(sample)
		fc := MilestoneForecast{
			ID:              ms.ID,
			Name:            ms.Name,
			PercentileDates: e.datesOf(finish),
			FinishDays:      finish,
		}
		if ms.TargetDate != nil {
			target := domain.DaysBetween(e.ref, *ms.TargetDate)
			onTime := 0
			delay := 0.0
			for _, v := range sample {
				if v <= target+1e-9 {
					onTime++
				} else {
					delay += v - target
				}
			}
			fc.ProbabilityOnTime = float64(onTime) / float64(trials)
			fc.ExpectedDelayDays = delay / float64(trials)
		}
		result.Milestones = append(result.Milestones, fc)
	}

	return result
}

func percentilesOf(sorted []float64) Percentiles {
	return Percentiles{
		P10: stats.PercentileOfSorted(sorted, 0.10),
		P50: stats.PercentileOfSorted(sorted, 0.50),
		P80: stats.PercentileOfSorted(sorted, 0.80),
		P90: stats.PercentileOfSorted(sorted, 0.90),
		P99: stats.PercentileOfSorted(sorted, 0.99),
	}
}

func (e *Engine) datesOf(p Percentiles) PercentileDates {
	return PercentileDates{
		P10: e.dateFor(p.P10),
		P50: e.dateFor(p.P50),
		P80: e.dateFor(p.P80),
		P90: e.dateFor(p.P90),
		P99: e.dateFor(p.P99),
	}
}

func (e *Engine) dateFor(days float64) string {
	return e.ref.AddDate(0, 0, int(math.Round(days))).Format("2006-01-02")
}
