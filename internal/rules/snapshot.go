package rules

import (
	"time"

	"riskcast/internal/domain"
)

// Snapshot is an immutable view of entity state used as the read input to
// rule evaluation. Rules only read it; the engine derives each next version
// by copy-on-write, so entity pointers may be shared across versions but no
// pointee is ever mutated in place.
type Snapshot struct {
	Version int

	items     map[string]*domain.WorkItem
	decisions map[string]*domain.Decision
	risks     map[string]*domain.Risk

	// Insertion order, kept so reconstructed portfolios are deterministic.
	itemOrder     []string
	decisionOrder []string
	riskOrder     []string

	referenceDate time.Time
	milestones    []domain.Milestone
}

// NewSnapshot deep-copies a portfolio into version zero.
func NewSnapshot(p *domain.Portfolio) *Snapshot {
	s := &Snapshot{
		items:         make(map[string]*domain.WorkItem, len(p.Items)),
		decisions:     make(map[string]*domain.Decision, len(p.Decisions)),
		risks:         make(map[string]*domain.Risk, len(p.Risks)),
		referenceDate: p.ReferenceDate,
		milestones:    make([]domain.Milestone, len(p.Milestones)),
	}
	for i := range p.Items {
		c := p.Items[i].Clone()
		s.items[c.ID] = &c
		s.itemOrder = append(s.itemOrder, c.ID)
	}
	for i := range p.Decisions {
		c := p.Decisions[i].Clone()
		s.decisions[c.ID] = &c
		s.decisionOrder = append(s.decisionOrder, c.ID)
	}
	for i := range p.Risks {
		c := p.Risks[i].Clone()
		s.risks[c.ID] = &c
		s.riskOrder = append(s.riskOrder, c.ID)
	}
	for i := range p.Milestones {
		s.milestones[i] = p.Milestones[i].Clone()
	}
	return s
}

// Item returns the work item with the given id, or nil.
func (s *Snapshot) Item(id string) *domain.WorkItem { return s.items[id] }

// Decision returns the decision with the given id, or nil.
func (s *Snapshot) Decision(id string) *domain.Decision { return s.decisions[id] }

// Risk returns the risk with the given id, or nil.
func (s *Snapshot) Risk(id string) *domain.Risk { return s.risks[id] }

// Dependents returns the ids of all items transitively downstream of the
// given item, walking the declared dependencies in insertion order so the
// result is deterministic.
func (s *Snapshot) Dependents(itemID string) []string {
	// Reverse adjacency: predecessor id -> dependent ids.
	downstream := make(map[string][]string)
	for _, id := range s.itemOrder {
		for _, dep := range s.items[id].DependsOn {
			downstream[dep.OnID] = append(downstream[dep.OnID], id)
		}
	}

	seen := map[string]bool{itemID: true}
	var out []string
	queue := []string{itemID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range downstream[id] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			queue = append(queue, dep)
		}
	}
	return out
}

// Portfolio reassembles the snapshot into a forecast input, in insertion
// order, with every entity deep-copied.
func (s *Snapshot) Portfolio() *domain.Portfolio {
	p := &domain.Portfolio{
		ReferenceDate: s.referenceDate,
		Items:         make([]domain.WorkItem, 0, len(s.itemOrder)),
		Milestones:    make([]domain.Milestone, 0, len(s.milestones)),
		Decisions:     make([]domain.Decision, 0, len(s.decisionOrder)),
		Risks:         make([]domain.Risk, 0, len(s.riskOrder)),
	}
	for _, id := range s.itemOrder {
		p.Items = append(p.Items, s.items[id].Clone())
	}
	for i := range s.milestones {
		p.Milestones = append(p.Milestones, s.milestones[i].Clone())
	}
	for _, id := range s.decisionOrder {
		p.Decisions = append(p.Decisions, s.decisions[id].Clone())
	}
	for _, id := range s.riskOrder {
		p.Risks = append(p.Risks, s.risks[id].Clone())
	}
	return p
}

// clone copies the snapshot shell: maps and order slices are fresh, entity
// pointers are shared until a command replaces them.
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		Version:       s.Version,
		items:         make(map[string]*domain.WorkItem, len(s.items)),
		decisions:     make(map[string]*domain.Decision, len(s.decisions)),
		risks:         make(map[string]*domain.Risk, len(s.risks)),
		itemOrder:     append([]string(nil), s.itemOrder...),
		decisionOrder: append([]string(nil), s.decisionOrder...),
		riskOrder:     append([]string(nil), s.riskOrder...),
		referenceDate: s.referenceDate,
		milestones:    s.milestones,
	}
	for id, it := range s.items {
		next.items[id] = it
	}
	for id, d := range s.decisions {
		next.decisions[id] = d
	}
	for id, r := range s.risks {
		next.risks[id] = r
	}
	return next
}
