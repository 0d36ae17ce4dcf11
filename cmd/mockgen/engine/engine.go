package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"riskcast/internal/domain"
	"riskcast/internal/rules"
	"time"
)

type GeneratorConfig struct {
	Scenario      string // "steady", "risky" or "gridlock"
	Shape         string // "chain", "layers" or "web"
	Distribution  string // "uniform" or "weibull"
	Count         int
	Seed          int64
	ReferenceDate time.Time
}

const itemsPerMilestone = 8

// Generate synthesizes a portfolio document plus a small companion event
// batch. The same config always yields the same output.
func Generate(cfg GeneratorConfig) (*domain.Portfolio, []rules.Event) {
	if cfg.ReferenceDate.IsZero() {
		cfg.ReferenceDate = time.Now()
	}
	y, m, d := cfg.ReferenceDate.UTC().Date()
	ref := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	rng := rand.New(rand.NewSource(cfg.Seed))

	// 1. Determine Parameters
	k, lambda := 2.5, 6.5 // Steady: likely durations land around 5-6 days
	switch cfg.Scenario {
	case "risky":
		k = 1.1
		lambda = 8.0
	case "gridlock":
		k = 2.0
		lambda = 7.0
	}

	width := int(math.Ceil(math.Sqrt(float64(cfg.Count))))

	p := &domain.Portfolio{ReferenceDate: ref}

	numMilestones := (cfg.Count + itemsPerMilestone - 1) / itemsPerMilestone
	for j := 0; j < numMilestones; j++ {
		target := ref.AddDate(0, 0, (j+1)*12)
		p.Milestones = append(p.Milestones, domain.Milestone{
			ID:         fmt.Sprintf("ms-%d", j+1),
			Name:       fmt.Sprintf("Milestone %d", j+1),
			TargetDate: &target,
		})
	}

	var notStartedIDs, inProgressIDs, activeIDs []string

	for i := 0; i < cfg.Count; i++ {
		id := fmt.Sprintf("wi-%d", i+1)
		ratio := float64(i) / float64(cfg.Count)

		// 2. Sample the likely duration
		var likely float64
		if cfg.Distribution == "weibull" {
			l := lambda
			if cfg.Scenario == "risky" {
				// Risky portfolios get heavier tails the deeper the chain goes.
				l += 3.0 * ratio
			}
			likely = weibullSample(rng, k, l)
		} else {
			// Uniform baseline: 2-8 days
			likely = 2.0 + rng.Float64()*6.0
			if cfg.Scenario == "risky" && rng.Float64() < 0.2 {
				likely += 8 + rng.Float64()*10 // Controlled Black Swans
			}
		}

		// 3. Spread the three-point estimate around it
		minF := 0.6 + 0.2*rng.Float64()
		maxF := 1.3 + 0.4*rng.Float64()
		switch cfg.Scenario {
		case "risky":
			maxF = 1.6 + 1.4*rng.Float64()
		case "gridlock":
			maxF = 1.4 + 0.6*rng.Float64()
		}
		est := domain.Estimate{
			Min:    roundHalf(likely * minF),
			Likely: roundHalf(likely),
			Max:    roundHalf(likely * maxF),
		}
		if est.Min < 0.5 {
			est.Min = 0.5
		}
		if est.Likely < est.Min {
			est.Likely = est.Min
		}
		if est.Max < est.Likely {
			est.Max = est.Likely
		}

		// 4. Determine status by position: the front of the topological order
		// is the furthest along
		status := domain.StatusNotStarted
		var completedAt *time.Time
		switch {
		case ratio < 0.2:
			status = domain.StatusCompleted
			t := ref.AddDate(0, 0, -(1 + rng.Intn(14)))
			completedAt = &t
		case ratio < 0.35:
			status = domain.StatusInProgress
			if cfg.Scenario == "gridlock" && rng.Float64() < 0.6 {
				status = domain.StatusBlocked
			}
		}

		assignee := fmt.Sprintf("dev-%d", 1+rng.Intn(5))
		if cfg.Scenario == "gridlock" && rng.Float64() < 0.6 {
			// Pile work onto one assignee so overload signals have something to find.
			assignee = "dev-1"
		}

		// 5. Wire dependencies to strictly earlier items so the graph stays acyclic
		var preds []int
		switch cfg.Shape {
		case "chain":
			if i > 0 {
				preds = []int{i - 1}
			}
		case "web":
			preds = pickPredecessors(rng, 0, i, rng.Intn(3))
		default: // layers
			if layer := i / width; layer > 0 {
				preds = pickPredecessors(rng, (layer-1)*width, layer*width, 1+rng.Intn(2))
			}
		}
		var deps []domain.Dependency
		for _, pi := range preds {
			dep := domain.Dependency{OnID: fmt.Sprintf("wi-%d", pi+1), Type: domain.FinishToStart}
			if rng.Float64() < 0.15 {
				dep.Type = domain.FinishToFinish
			}
			if cfg.Scenario == "gridlock" && rng.Float64() < 0.25 {
				dep.Type = domain.Blocking
			}
			if rng.Float64() < 0.2 {
				dep.LagDays = roundHalf(1 + 3*rng.Float64())
			}
			if rng.Float64() < 0.05 {
				dep.External = true
			}
			deps = append(deps, dep)
		}

		p.Items = append(p.Items, domain.WorkItem{
			ID:          id,
			Name:        fmt.Sprintf("Work item %d", i+1),
			Estimate:    est,
			Status:      status,
			DependsOn:   deps,
			MilestoneID: fmt.Sprintf("ms-%d", i/itemsPerMilestone+1),
			AssigneeID:  assignee,
			CompletedAt: completedAt,
		})

		if status != domain.StatusCompleted {
			activeIDs = append(activeIDs, id)
		}
		switch status {
		case domain.StatusNotStarted:
			notStartedIDs = append(notStartedIDs, id)
		case domain.StatusInProgress:
			inProgressIDs = append(inProgressIDs, id)
		}
	}

	// 6. Attach risks to active items
	numRisks := cfg.Count/15 + 1
	switch cfg.Scenario {
	case "risky":
		numRisks = cfg.Count/5 + 1
	case "gridlock":
		numRisks = cfg.Count/10 + 1
	}
	pool := activeIDs
	if len(pool) == 0 {
		pool = allIDs(p)
	}
	for r := 0; r < numRisks; r++ {
		prob := 0.15 + 0.3*rng.Float64()
		switch cfg.Scenario {
		case "risky":
			prob = 0.3 + 0.5*rng.Float64()
		case "gridlock":
			prob = 0.2 + 0.4*rng.Float64()
		}
		impact := domain.Impact{Type: domain.ImpactDelayDays, Value: roundHalf(3 + 10*rng.Float64())}
		if rng.Float64() < 0.25 {
			impact = domain.Impact{Type: domain.ImpactEstimateMultiplier, Value: math.Round((1.2+0.6*rng.Float64())*10) / 10}
		}
		severity := domain.SeverityLow
		switch {
		case prob >= 0.5:
			severity = domain.SeverityHigh
		case prob >= 0.3:
			severity = domain.SeverityMedium
		}
		p.Risks = append(p.Risks, domain.Risk{
			ID:              fmt.Sprintf("rk-%d", r+1),
			Name:            fmt.Sprintf("Risk %d", r+1),
			Probability:     math.Round(prob*100) / 100,
			Impact:          impact,
			Status:          domain.RiskOpen,
			Severity:        severity,
			AffectedItemIDs: pickItems(rng, pool, 1+rng.Intn(2)),
		})
	}

	// 7. Propose a couple of decisions so event replays have something to approve
	if len(notStartedIDs) > 0 {
		p.Decisions = append(p.Decisions, domain.Decision{
			ID:            "dc-1",
			Type:          domain.DecisionDelay,
			Status:        domain.DecisionProposed,
			TargetItemIDs: pickItems(rng, notStartedIDs, 1),
			Effect:        domain.Effect{Type: domain.EffectDelayDays, Value: roundHalf(3 + 5*rng.Float64())},
		})
	}
	if len(p.Risks) > 0 {
		p.Decisions = append(p.Decisions, domain.Decision{
			ID:           "dc-2",
			Type:         domain.DecisionMitigateRisk,
			Status:       domain.DecisionProposed,
			TargetRiskID: p.Risks[0].ID,
			Effect:       domain.Effect{Type: domain.EffectNone},
		})
	}

	// 8. Companion event batch: a start, a blockage, an approval, and a sweep
	var events []rules.Event
	if len(notStartedIDs) > 0 {
		events = append(events, rules.Event{
			Kind:       rules.EventItemStarted,
			WorkItemID: notStartedIDs[0],
			OccurredAt: ref.AddDate(0, 0, 1).Add(9 * time.Hour),
		})
	}
	if len(inProgressIDs) > 0 {
		events = append(events, rules.Event{
			Kind:       rules.EventItemBlocked,
			WorkItemID: inProgressIDs[0],
			OccurredAt: ref.AddDate(0, 0, 1).Add(14 * time.Hour),
		})
	}
	if len(p.Decisions) > 0 && p.Decisions[0].Type == domain.DecisionDelay {
		events = append(events, rules.Event{
			Kind:       rules.EventDecisionApproved,
			DecisionID: p.Decisions[0].ID,
			OccurredAt: ref.AddDate(0, 0, 2).Add(10 * time.Hour),
		})
	}
	events = append(events, rules.Event{
		Kind:       rules.EventSignalScan,
		OccurredAt: ref.AddDate(0, 0, 3),
	})

	return p, events
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

func pickPredecessors(rng *rand.Rand, lo, hi, want int) []int {
	span := hi - lo
	if span <= 0 || want <= 0 {
		return nil
	}
	if want > span {
		want = span
	}
	seen := make(map[int]bool, want)
	out := make([]int, 0, want)
	for len(out) < want {
		idx := lo + rng.Intn(span)
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

func pickItems(rng *rand.Rand, pool []string, want int) []string {
	if len(pool) == 0 || want <= 0 {
		return nil
	}
	if want > len(pool) {
		want = len(pool)
	}
	out := make([]string, want)
	for j, idx := range rng.Perm(len(pool))[:want] {
		out[j] = pool[idx]
	}
	return out
}

func allIDs(p *domain.Portfolio) []string {
	ids := make([]string, len(p.Items))
	for i := range p.Items {
		ids[i] = p.Items[i].ID
	}
	return ids
}

// Save writes the portfolio and event batch as JSON documents the loader
// reads back verbatim.
func Save(outDir, name string, p *domain.Portfolio, events []rules.Event) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	portfolioPath := filepath.Join(outDir, fmt.Sprintf("%s_portfolio.json", name))
	eventsPath := filepath.Join(outDir, fmt.Sprintf("%s_events.json", name))

	f, err := os.Create(portfolioPath)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return err
	}

	if events == nil {
		events = []rules.Event{}
	}
	fe, err := os.Create(eventsPath)
	if err != nil {
		return err
	}
	defer fe.Close()

	encE := json.NewEncoder(fe)
	encE.SetIndent("", "  ")
	return encE.Encode(events)
}
