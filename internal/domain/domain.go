package domain

import "time"

// ItemStatus is the lifecycle state of a work item.
type ItemStatus string

const (
	// StatusNotStarted indicates no work has begun.
	StatusNotStarted ItemStatus = "not_started"
	// StatusInProgress indicates the item is actively being worked.
	StatusInProgress ItemStatus = "in_progress"
	// StatusBlocked indicates the item cannot proceed until an impediment clears.
	StatusBlocked ItemStatus = "blocked"
	// StatusCompleted indicates the item is done; its finish date is a fixed fact.
	StatusCompleted ItemStatus = "completed"
)

// DependencyType defines how a predecessor constrains its dependent.
type DependencyType string

const (
	// FinishToStart means the dependent cannot start before the predecessor finishes.
	FinishToStart DependencyType = "finish_to_start"
	// FinishToFinish means the dependent cannot finish before the predecessor finishes.
	FinishToFinish DependencyType = "finish_to_finish"
	// Blocking is a hard impediment edge; it schedules like finish_to_start
	// and additionally feeds blockage-risk detection.
	Blocking DependencyType = "blocking"
)

// Estimate is a three-point duration estimate in days.
type Estimate struct {
	Min    float64 `json:"min" yaml:"min"`
	Likely float64 `json:"likely" yaml:"likely"`
	Max    float64 `json:"max" yaml:"max"`
}

// Degenerate reports whether the estimate has zero spread (min = likely = max).
// A degenerate estimate samples deterministically; it is not an error.
func (e Estimate) Degenerate() bool {
	return e.Min == e.Likely && e.Likely == e.Max
}

// Scale returns the estimate with all three points multiplied by f.
func (e Estimate) Scale(f float64) Estimate {
	return Estimate{Min: e.Min * f, Likely: e.Likely * f, Max: e.Max * f}
}

// Dependency is a typed edge from a work item to one of its predecessors.
type Dependency struct {
	// OnID is the id of the predecessor item.
	OnID string         `json:"on_id" yaml:"on_id"`
	Type DependencyType `json:"type" yaml:"type"`
	// LagDays is an optional fixed delay added to the constraint.
	LagDays float64 `json:"lag_days,omitempty" yaml:"lag_days,omitempty"`
	// External marks a dependency on work outside the forecasted portfolio.
	External bool `json:"external,omitempty" yaml:"external,omitempty"`
}

// WorkItem is a unit of schedulable work. The engine treats it as read-only
// input for the duration of a run.
type WorkItem struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Estimate    Estimate     `json:"estimate" yaml:"estimate"`
	Status      ItemStatus   `json:"status" yaml:"status"`
	DependsOn   []Dependency `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	MilestoneID string       `json:"milestone_id,omitempty" yaml:"milestone_id,omitempty"`
	AssigneeID  string       `json:"assignee_id,omitempty" yaml:"assignee_id,omitempty"`
	// CompletedAt is the known finish date for completed items.
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Completed reports whether the item is a fixed point rather than a sampling input.
func (w *WorkItem) Completed() bool {
	return w.Status == StatusCompleted
}

// Milestone groups work items under a named delivery point with an optional target.
type Milestone struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
	TargetDate *time.Time `json:"target_date,omitempty" yaml:"target_date,omitempty"`
}

// Portfolio is the consistent input snapshot for one forecast run: all work
// items, milestones, decisions, and risks as of the reference date.
type Portfolio struct {
	ReferenceDate time.Time   `json:"reference_date" yaml:"reference_date"`
	Items         []WorkItem  `json:"work_items" yaml:"work_items"`
	Milestones    []Milestone `json:"milestones,omitempty" yaml:"milestones,omitempty"`
	Decisions     []Decision  `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	Risks         []Risk      `json:"risks,omitempty" yaml:"risks,omitempty"`
}

// ItemIndex returns a map from item id to its position in Items.
func (p *Portfolio) ItemIndex() map[string]int {
	idx := make(map[string]int, len(p.Items))
	for i := range p.Items {
		idx[p.Items[i].ID] = i
	}
	return idx
}

// MilestoneByID returns the milestone with the given id, or nil.
func (p *Portfolio) MilestoneByID(id string) *Milestone {
	for i := range p.Milestones {
		if p.Milestones[i].ID == id {
			return &p.Milestones[i]
		}
	}
	return nil
}

// RiskByID returns the risk with the given id, or nil.
func (p *Portfolio) RiskByID(id string) *Risk {
	for i := range p.Risks {
		if p.Risks[i].ID == id {
			return &p.Risks[i]
		}
	}
	return nil
}

// DecisionByID returns the decision with the given id, or nil.
func (p *Portfolio) DecisionByID(id string) *Decision {
	for i := range p.Decisions {
		if p.Decisions[i].ID == id {
			return &p.Decisions[i]
		}
	}
	return nil
}

// DaysBetween returns the signed day distance from a to b.
func DaysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}
