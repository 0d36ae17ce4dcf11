package forecast

import (
	"fmt"
	"strings"

	"riskcast/internal/domain"
	"riskcast/internal/simulation"
)

// Confidence labels. The model is directional, not predictive to calendar
// precision, so confidence is reported qualitatively.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Classifier thresholds. Policy knobs, not a contract.
const (
	narrowSpread     = 0.35
	wideSpread       = 0.75
	maxExternalDeps  = 2
	maxOpenRisksHigh = 2
)

// Confidence labels how far the forecast should be trusted, from the relative
// percentile spread of the focus entity, the number of external dependencies,
// and the number of still-open risks.
func Confidence(p *domain.Portfolio, res *simulation.Result, milestoneID string) string {
	kind, id, _, _ := res.Focus(milestoneID)
	fin, ok := finishOf(res, kind, id)
	if !ok {
		// Nothing left to forecast means nothing left to be uncertain about.
		return ConfidenceHigh
	}

	denom := fin.P50
	if denom < 1 {
		denom = 1
	}
	spread := (fin.P90 - fin.P10) / denom

	external := 0
	for i := range p.Items {
		if p.Items[i].Completed() {
			continue
		}
		for _, dep := range p.Items[i].DependsOn {
			if dep.External {
				external++
			}
		}
	}

	openRisks := 0
	for i := range p.Risks {
		if p.Risks[i].Status == domain.RiskOpen {
			openRisks++
		}
	}

	switch {
	case spread > wideSpread || external > maxExternalDeps:
		return ConfidenceLow
	case spread <= narrowSpread && openRisks <= maxOpenRisksHigh:
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

// Summarize renders the forecast headline as a short plain-text paragraph.
func Summarize(res *simulation.Result, breakdown []Contribution, confidence, milestoneID string) string {
	kind, id, _, _ := res.Focus(milestoneID)
	if id == "" {
		return "Nothing to forecast: every work item is complete or out of scope."
	}

	var b strings.Builder
	if kind == "milestone" {
		ms := res.Milestone(id)
		fmt.Fprintf(&b, "Milestone %s finishes by %s in half the trials and by %s in 80%% of them (confidence %s).",
			id, ms.PercentileDates.P50, ms.PercentileDates.P80, confidence)
		if ms.ProbabilityOnTime > 0 || ms.ExpectedDelayDays > 0 {
			fmt.Fprintf(&b, " On-time probability is %.0f%% with an expected slip of %.1f days.",
				ms.ProbabilityOnTime*100, ms.ExpectedDelayDays)
		}
	} else {
		it := res.Item(id)
		fmt.Fprintf(&b, "Work item %s finishes by %s in half the trials and by %s in 80%% of them (confidence %s).",
			id, it.PercentileDates.P50, it.PercentileDates.P80, confidence)
	}

	if len(breakdown) > 0 {
		top := breakdown[0]
		if top.Days > 0 {
			fmt.Fprintf(&b, " Largest delay driver: %s at %.1f days.", top.Cause, top.Days)
		} else {
			fmt.Fprintf(&b, " Largest schedule effect: %s at %.1f days.", top.Cause, top.Days)
		}
	}
	return b.String()
}
