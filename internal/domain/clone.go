package domain

import "time"

// Clone returns a deep copy of the portfolio. Scenario comparison mutates
// only the clone; the baseline must stay untouched. Nil slices stay nil so a
// clone compares deep-equal to its source.
func (p *Portfolio) Clone() *Portfolio {
	out := &Portfolio{
		ReferenceDate: p.ReferenceDate,
		Items:         append([]WorkItem(nil), p.Items...),
		Milestones:    append([]Milestone(nil), p.Milestones...),
		Decisions:     append([]Decision(nil), p.Decisions...),
		Risks:         append([]Risk(nil), p.Risks...),
	}
	for i := range out.Items {
		out.Items[i] = p.Items[i].Clone()
	}
	for i := range out.Milestones {
		out.Milestones[i] = p.Milestones[i].Clone()
	}
	for i := range out.Decisions {
		out.Decisions[i] = p.Decisions[i].Clone()
	}
	for i := range out.Risks {
		out.Risks[i] = p.Risks[i].Clone()
	}
	return out
}

// Clone returns a deep copy of the work item.
func (w WorkItem) Clone() WorkItem {
	out := w
	out.DependsOn = append([]Dependency(nil), w.DependsOn...)
	out.CompletedAt = cloneTime(w.CompletedAt)
	return out
}

// Clone returns a deep copy of the milestone.
func (m Milestone) Clone() Milestone {
	out := m
	out.TargetDate = cloneTime(m.TargetDate)
	return out
}

// Clone returns a deep copy of the decision.
func (d Decision) Clone() Decision {
	out := d
	out.TargetItemIDs = append([]string(nil), d.TargetItemIDs...)
	out.Boundary = d.Boundary.clone()
	out.ApprovedAt = cloneTime(d.ApprovedAt)
	return out
}

// Clone returns a deep copy of the risk.
func (r Risk) Clone() Risk {
	out := r
	out.AffectedItemIDs = append([]string(nil), r.AffectedItemIDs...)
	out.Boundary = r.Boundary.clone()
	out.NextReview = cloneTime(r.NextReview)
	return out
}

func (b *AcceptanceBoundary) clone() *AcceptanceBoundary {
	if b == nil {
		return nil
	}
	out := *b
	out.Date = cloneTime(b.Date)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
