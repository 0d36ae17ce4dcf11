// Package loader reads portfolio documents, scenario deltas, and event
// batches from JSON or YAML files. It is the intake boundary: legacy
// vocabularies are normalized here, defaults filled in, and the result is
// validated before any caller sees it.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"riskcast/internal/domain"
	"riskcast/internal/forecast"
	"riskcast/internal/rules"
)

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath sniffs the encoding from the file extension. Anything that
// is not .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// LoadPortfolio reads, normalizes, and validates a portfolio document.
func LoadPortfolio(path string) (*domain.Portfolio, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portfolio: %w", err)
	}
	p, err := ParsePortfolio(raw, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", filepath.Base(path), err)
	}
	log.Info().
		Str("path", path).
		Int("items", len(p.Items)).
		Int("milestones", len(p.Milestones)).
		Int("decisions", len(p.Decisions)).
		Int("risks", len(p.Risks)).
		Msg("Loaded portfolio")
	return p, nil
}

// ParsePortfolio decodes a portfolio document and validates the result.
func ParsePortfolio(raw []byte, format Format) (*domain.Portfolio, error) {
	var doc portfolioDoc
	if err := decode(raw, format, &doc); err != nil {
		return nil, err
	}
	p, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePortfolio(p); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadScenario reads a scenario delta document.
func LoadScenario(path string) (*forecast.ScenarioDelta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var doc scenarioDoc
	if err := decode(raw, FormatForPath(path), &doc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", filepath.Base(path), err)
	}
	return &forecast.ScenarioDelta{
		Kind:               forecast.ScenarioKind(doc.Kind),
		ItemID:             doc.WorkItemID,
		DelayDays:          doc.DelayDays,
		ScopeDeltaDays:     doc.ScopeDeltaDays,
		CapacityMultiplier: doc.CapacityMultiplier,
	}, nil
}

// LoadEvents reads an ordered batch of rule engine events.
func LoadEvents(path string) ([]rules.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	var docs []eventDoc
	if err := decode(raw, FormatForPath(path), &docs); err != nil {
		return nil, fmt.Errorf("events %s: %w", filepath.Base(path), err)
	}
	events := make([]rules.Event, len(docs))
	for i, d := range docs {
		ev := rules.Event{
			ID:         d.ID,
			Kind:       rules.EventKind(d.Kind),
			DecisionID: d.DecisionID,
			WorkItemID: d.WorkItemID,
			RiskID:     d.RiskID,
		}
		if t := d.OccurredAt.timePtr(); t != nil {
			ev.OccurredAt = *t
		}
		events[i] = ev
	}
	return events, nil
}

func decode(raw []byte, format Format, out any) error {
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	}
	return nil
}

// NormalizeRiskStatus maps the richer intake vocabulary onto the canonical
// five-state lifecycle. An empty status is an open risk; "resolved" and
// "retired" are intake-only synonyms for closed.
func NormalizeRiskStatus(s string) (domain.RiskStatus, error) {
	switch norm := strings.ToLower(strings.TrimSpace(s)); norm {
	case "":
		return domain.RiskOpen, nil
	case "resolved", "retired":
		return domain.RiskClosed, nil
	default:
		if status, ok := domain.NormalizeRiskStatus(norm); ok {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown risk status %q", s)
}

func normalizeItemStatus(s string) domain.ItemStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "not_started", "todo", "planned":
		return domain.StatusNotStarted
	case "in_progress", "started":
		return domain.StatusInProgress
	case "blocked":
		return domain.StatusBlocked
	case "completed", "done":
		return domain.StatusCompleted
	}
	// Unknown statuses pass through for validation to report.
	return domain.ItemStatus(s)
}

func normalizeDependencyType(s string) domain.DependencyType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fs", "finish_to_start":
		return domain.FinishToStart
	case "ff", "finish_to_finish":
		return domain.FinishToFinish
	case "blocking":
		return domain.Blocking
	}
	return domain.DependencyType(s)
}

func (doc *portfolioDoc) toDomain() (*domain.Portfolio, error) {
	p := &domain.Portfolio{}
	if t := doc.ReferenceDate.timePtr(); t != nil {
		p.ReferenceDate = *t
	}

	p.Items = make([]domain.WorkItem, len(doc.Items))
	for i, it := range doc.Items {
		deps := make([]domain.Dependency, len(it.DependsOn))
		for j, dep := range it.DependsOn {
			deps[j] = domain.Dependency{
				OnID:     dep.OnID,
				Type:     normalizeDependencyType(dep.Type),
				LagDays:  dep.LagDays,
				External: dep.External,
			}
		}
		if len(deps) == 0 {
			deps = nil
		}
		p.Items[i] = domain.WorkItem{
			ID:          it.ID,
			Name:        it.Name,
			Estimate:    domain.Estimate{Min: it.Estimate.Min, Likely: it.Estimate.Likely, Max: it.Estimate.Max},
			Status:      normalizeItemStatus(it.Status),
			DependsOn:   deps,
			MilestoneID: it.MilestoneID,
			AssigneeID:  it.AssigneeID,
			CompletedAt: it.CompletedAt.timePtr(),
		}
	}

	p.Milestones = make([]domain.Milestone, len(doc.Milestones))
	for i, m := range doc.Milestones {
		p.Milestones[i] = domain.Milestone{
			ID:         m.ID,
			Name:       m.Name,
			TargetDate: m.TargetDate.timePtr(),
		}
	}

	p.Decisions = make([]domain.Decision, len(doc.Decisions))
	for i, d := range doc.Decisions {
		status := domain.DecisionStatus(strings.ToLower(strings.TrimSpace(d.Status)))
		if status == "" {
			status = domain.DecisionProposed
		}
		dec := domain.Decision{
			ID:            d.ID,
			Type:          domain.DecisionType(d.Type),
			Subtype:       d.Subtype,
			Status:        status,
			TargetItemIDs: d.TargetItemIDs,
			TargetRiskID:  d.TargetRiskID,
			Boundary:      d.Boundary.toDomain(),
			ApprovedAt:    d.ApprovedAt.timePtr(),
		}
		if d.Effect != nil {
			dec.Effect = domain.Effect{
				Type:                  domain.EffectType(d.Effect.Type),
				Value:                 d.Effect.Value,
				RampupDays:            d.Effect.RampupDays,
				DurationDays:          d.Effect.DurationDays,
				KnowledgeTransferDays: d.Effect.KnowledgeTransferDays,
			}
		}
		p.Decisions[i] = dec
	}

	p.Risks = make([]domain.Risk, len(doc.Risks))
	for i, r := range doc.Risks {
		status, err := NormalizeRiskStatus(r.Status)
		if err != nil {
			return nil, &domain.ValidationError{EntityKind: "risk", EntityID: r.ID, Message: err.Error()}
		}
		p.Risks[i] = domain.Risk{
			ID:              r.ID,
			Name:            r.Name,
			Probability:     r.Probability,
			Impact:          domain.Impact{Type: domain.ImpactType(r.Impact.Type), Value: r.Impact.Value},
			Status:          status,
			Severity:        domain.RiskSeverity(strings.ToLower(strings.TrimSpace(r.Severity))),
			AffectedItemIDs: r.AffectedItemIDs,
			Boundary:        r.Boundary.toDomain(),
			NextReview:      r.NextReview.timePtr(),
		}
	}

	if len(p.Milestones) == 0 {
		p.Milestones = nil
	}
	if len(p.Decisions) == 0 {
		p.Decisions = nil
	}
	if len(p.Risks) == 0 {
		p.Risks = nil
	}
	return p, nil
}

func (b *boundaryDoc) toDomain() *domain.AcceptanceBoundary {
	if b == nil {
		return nil
	}
	kind := domain.BoundaryKind(strings.ToLower(strings.TrimSpace(b.Kind)))
	if kind == "" && b.Date.set {
		kind = domain.BoundaryDate
	}
	return &domain.AcceptanceBoundary{
		Kind:      kind,
		Date:      b.Date.timePtr(),
		Threshold: b.Threshold,
		Event:     b.Event,
	}
}
