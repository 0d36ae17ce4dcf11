package loader

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// docDate accepts both date-only values and RFC3339 timestamps, in JSON and
// YAML alike. Absent or empty values stay unset.
type docDate struct {
	t   time.Time
	set bool
}

func (d *docDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *docDate) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *docDate) parse(s string) error {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.t = t.UTC()
			d.set = true
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q (want YYYY-MM-DD or RFC3339)", s)
}

func (d docDate) timePtr() *time.Time {
	if !d.set {
		return nil
	}
	t := d.t
	return &t
}

// portfolioDoc is the wire form of a portfolio document. Statuses and risk
// vocabulary are normalized during mapping, not here.
type portfolioDoc struct {
	ReferenceDate docDate        `json:"reference_date" yaml:"reference_date"`
	Items         []workItemDoc  `json:"work_items" yaml:"work_items"`
	Milestones    []milestoneDoc `json:"milestones,omitempty" yaml:"milestones,omitempty"`
	Decisions     []decisionDoc  `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	Risks         []riskDoc      `json:"risks,omitempty" yaml:"risks,omitempty"`
}

type estimateDoc struct {
	Min    float64 `json:"min" yaml:"min"`
	Likely float64 `json:"likely" yaml:"likely"`
	Max    float64 `json:"max" yaml:"max"`
}

type dependencyDoc struct {
	OnID     string  `json:"on_id" yaml:"on_id"`
	Type     string  `json:"type,omitempty" yaml:"type,omitempty"`
	LagDays  float64 `json:"lag_days,omitempty" yaml:"lag_days,omitempty"`
	External bool    `json:"external,omitempty" yaml:"external,omitempty"`
}

// UnmarshalJSON accepts either a bare predecessor id or the full object form.
func (d *dependencyDoc) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &d.OnID)
	}
	type alias dependencyDoc
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*d = dependencyDoc(a)
	return nil
}

func (d *dependencyDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&d.OnID)
	}
	type alias dependencyDoc
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*d = dependencyDoc(a)
	return nil
}

type workItemDoc struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Estimate    estimateDoc     `json:"estimate" yaml:"estimate"`
	Status      string          `json:"status,omitempty" yaml:"status,omitempty"`
	DependsOn   []dependencyDoc `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	MilestoneID string          `json:"milestone_id,omitempty" yaml:"milestone_id,omitempty"`
	AssigneeID  string          `json:"assignee_id,omitempty" yaml:"assignee_id,omitempty"`
	CompletedAt docDate         `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

type milestoneDoc struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name,omitempty" yaml:"name,omitempty"`
	TargetDate docDate `json:"target_date,omitempty" yaml:"target_date,omitempty"`
}

type effectDoc struct {
	Type                  string  `json:"type" yaml:"type"`
	Value                 float64 `json:"value,omitempty" yaml:"value,omitempty"`
	RampupDays            float64 `json:"rampup_days,omitempty" yaml:"rampup_days,omitempty"`
	DurationDays          float64 `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
	KnowledgeTransferDays float64 `json:"knowledge_transfer_days,omitempty" yaml:"knowledge_transfer_days,omitempty"`
}

type boundaryDoc struct {
	Kind      string  `json:"kind" yaml:"kind"`
	Date      docDate `json:"date,omitempty" yaml:"date,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Event     string  `json:"event,omitempty" yaml:"event,omitempty"`
}

type decisionDoc struct {
	ID            string       `json:"id" yaml:"id"`
	Type          string       `json:"type" yaml:"type"`
	Subtype       string       `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	Status        string       `json:"status,omitempty" yaml:"status,omitempty"`
	TargetItemIDs []string     `json:"target_item_ids,omitempty" yaml:"target_item_ids,omitempty"`
	TargetRiskID  string       `json:"target_risk_id,omitempty" yaml:"target_risk_id,omitempty"`
	Effect        *effectDoc   `json:"effect,omitempty" yaml:"effect,omitempty"`
	Boundary      *boundaryDoc `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	ApprovedAt    docDate      `json:"approved_at,omitempty" yaml:"approved_at,omitempty"`
}

type impactDoc struct {
	Type  string  `json:"type" yaml:"type"`
	Value float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

type riskDoc struct {
	ID              string       `json:"id" yaml:"id"`
	Name            string       `json:"name,omitempty" yaml:"name,omitempty"`
	Probability     float64      `json:"probability" yaml:"probability"`
	Impact          impactDoc    `json:"impact" yaml:"impact"`
	Status          string       `json:"status,omitempty" yaml:"status,omitempty"`
	Severity        string       `json:"severity,omitempty" yaml:"severity,omitempty"`
	AffectedItemIDs []string     `json:"affected_item_ids,omitempty" yaml:"affected_item_ids,omitempty"`
	Boundary        *boundaryDoc `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	NextReview      docDate      `json:"next_review,omitempty" yaml:"next_review,omitempty"`
}

type scenarioDoc struct {
	Kind               string  `json:"kind" yaml:"kind"`
	WorkItemID         string  `json:"work_item_id,omitempty" yaml:"work_item_id,omitempty"`
	DelayDays          float64 `json:"delay_days,omitempty" yaml:"delay_days,omitempty"`
	ScopeDeltaDays     float64 `json:"scope_delta_days,omitempty" yaml:"scope_delta_days,omitempty"`
	CapacityMultiplier float64 `json:"capacity_multiplier,omitempty" yaml:"capacity_multiplier,omitempty"`
}

type eventDoc struct {
	ID         string  `json:"id,omitempty" yaml:"id,omitempty"`
	Kind       string  `json:"kind" yaml:"kind"`
	OccurredAt docDate `json:"occurred_at,omitempty" yaml:"occurred_at,omitempty"`
	DecisionID string  `json:"decision_id,omitempty" yaml:"decision_id,omitempty"`
	WorkItemID string  `json:"work_item_id,omitempty" yaml:"work_item_id,omitempty"`
	RiskID     string  `json:"risk_id,omitempty" yaml:"risk_id,omitempty"`
}
