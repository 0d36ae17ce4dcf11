package rules

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"riskcast/internal/domain"
)

// Rule is one pure evaluation: given an event and the current snapshot it
// returns the commands it wants applied. Rules never observe each other's
// output within the same event and never mutate the snapshot, so the
// registry is order-independent.
type Rule struct {
	Name     string
	Kinds    []EventKind
	Evaluate func(ev Event, s *Snapshot) []Command
}

func (r *Rule) matches(k EventKind) bool {
	for _, kind := range r.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Outcome reports how one event was processed: the commands applied in one
// atomic transition, or a no-op with a reason.
type Outcome struct {
	Event   Event     `json:"event"`
	Applied []Command `json:"applied,omitempty"`
	NoOp    bool      `json:"no_op,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Version int       `json:"version"`

	// Resulting state of every entity the transition touched.
	Risks     []domain.Risk     `json:"risks,omitempty"`
	Decisions []domain.Decision `json:"decisions,omitempty"`
	Items     []domain.WorkItem `json:"items,omitempty"`
}

// Record is the durable journal row for one processed event.
type Record struct {
	Event   Event     `json:"event"`
	Applied []Command `json:"applied,omitempty"`
	NoOp    bool      `json:"no_op,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Version int       `json:"version"`
}

// Journal persists processed events. Implementations must tolerate duplicate
// appends of the same event id.
type Journal interface {
	Append(rec Record) error
}

// Engine evaluates rules against the current snapshot and applies the
// resulting commands atomically. A single writer lock serializes events:
// each event observes exactly the snapshot produced by the previous one,
// which is what makes a transition one event wide.
type Engine struct {
	mu      sync.RWMutex
	snap    *Snapshot
	rules   []Rule
	journal Journal

	// now and newID are swappable in tests.
	now   func() time.Time
	newID func() string
}

// NewEngine builds an engine over version zero of the portfolio with the
// default rule registry. journal may be nil.
func NewEngine(p *domain.Portfolio, journal Journal) *Engine {
	return &Engine{
		snap:    NewSnapshot(p),
		rules:   DefaultRules(),
		journal: journal,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Snapshot returns the current state version. Snapshots are immutable; the
// caller may hold it across subsequent Process calls.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// Process runs one event through every matching rule and applies all
// resulting commands as a single transition. Events that reference unknown
// ids or transitions the entity's lifecycle does not admit come back as
// no-op outcomes with a reason rather than errors; facts can legitimately
// arrive for already-superseded state.
func (e *Engine) Process(ev Event) (*Outcome, error) {
	return e.process(ev, true)
}

// Replay reprocesses journal records in order without re-journaling them.
// Replayed against the same base portfolio, it rebuilds the same state.
func (e *Engine) Replay(records []Record) error {
	for _, rec := range records {
		if rec.NoOp {
			continue
		}
		if _, err := e.process(rec.Event, false); err != nil {
			return fmt.Errorf("replay event %s: %w", rec.Event.ID, err)
		}
	}
	return nil
}

func (e *Engine) process(ev Event, journal bool) (*Outcome, error) {
	if !knownKind(ev.Kind) {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.ID == "" {
		ev.ID = e.newID()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if reason := admissibility(ev, e.snap); reason != "" {
		log.Debug().
			Str("event_id", ev.ID).
			Str("kind", string(ev.Kind)).
			Str("reason", reason).
			Msg("Event is a no-op")
		out := &Outcome{Event: ev, NoOp: true, Reason: reason, Version: e.snap.Version}
		if journal && e.journal != nil {
			if err := e.journal.Append(Record{Event: ev, NoOp: true, Reason: reason, Version: e.snap.Version}); err != nil {
				return nil, fmt.Errorf("journal append: %w", err)
			}
		}
		return out, nil
	}

	var commands []Command
	for i := range e.rules {
		r := &e.rules[i]
		if !r.matches(ev.Kind) {
			continue
		}
		for _, c := range r.Evaluate(ev, e.snap) {
			c.ID = e.newID()
			c.RuleName = r.Name
			c.IssuedAt = e.now()
			if c.Priority == "" {
				c.Priority = PriorityNormal
			}
			commands = append(commands, c)
		}
	}

	if len(commands) == 0 {
		out := &Outcome{
			Event:   ev,
			NoOp:    true,
			Reason:  fmt.Sprintf("no rule produced a command for %s", ev.Kind),
			Version: e.snap.Version,
		}
		if journal && e.journal != nil {
			if err := e.journal.Append(Record{Event: ev, NoOp: true, Reason: out.Reason, Version: out.Version}); err != nil {
				return nil, fmt.Errorf("journal append: %w", err)
			}
		}
		return out, nil
	}

	// All commands of one event apply to one clone, swapped in as a whole.
	next := e.snap.clone()
	for _, c := range commands {
		if err := applyCommand(next, ev, c); err != nil {
			return nil, err
		}
	}
	next.Version = e.snap.Version + 1
	e.snap = next

	out := &Outcome{Event: ev, Applied: commands, Version: next.Version}
	collectTouched(out, next, commands)

	log.Info().
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Int("commands", len(commands)).
		Int("version", next.Version).
		Msg("Event applied")

	if journal && e.journal != nil {
		if err := e.journal.Append(Record{Event: ev, Applied: commands, Version: next.Version}); err != nil {
			return nil, fmt.Errorf("journal append: %w", err)
		}
	}
	return out, nil
}

func knownKind(k EventKind) bool {
	switch k {
	case EventDecisionApproved, EventDecisionSuperseded,
		EventItemBlocked, EventItemUnblocked, EventItemStarted,
		EventRiskMaterialised, EventRiskClosed, EventAcceptanceExpired,
		EventSignalScan:
		return true
	}
	return false
}

// admissibility returns a non-empty reason when the event cannot apply to
// the current snapshot: missing entity, or a lifecycle that does not admit
// the implied transition.
func admissibility(ev Event, s *Snapshot) string {
	switch ev.Kind {
	case EventDecisionApproved:
		d := s.Decision(ev.DecisionID)
		if d == nil {
			return fmt.Sprintf("decision %q not found", ev.DecisionID)
		}
		if d.Status == domain.DecisionApproved {
			return fmt.Sprintf("decision %q is already approved", ev.DecisionID)
		}
		if !domain.DecisionTransitionAllowed(d.Status, domain.DecisionApproved) {
			return fmt.Sprintf("decision %q in status %s does not admit approval", ev.DecisionID, d.Status)
		}
	case EventDecisionSuperseded:
		d := s.Decision(ev.DecisionID)
		if d == nil {
			return fmt.Sprintf("decision %q not found", ev.DecisionID)
		}
		switch d.Status {
		case domain.DecisionProposed, domain.DecisionApproved, domain.DecisionImplemented:
		default:
			return fmt.Sprintf("decision %q in terminal status %s cannot be superseded", ev.DecisionID, d.Status)
		}
	case EventItemBlocked:
		it := s.Item(ev.WorkItemID)
		if it == nil {
			return fmt.Sprintf("work item %q not found", ev.WorkItemID)
		}
		if it.Completed() {
			return fmt.Sprintf("work item %q is already completed", ev.WorkItemID)
		}
	case EventItemUnblocked:
		it := s.Item(ev.WorkItemID)
		if it == nil {
			return fmt.Sprintf("work item %q not found", ev.WorkItemID)
		}
		if it.Status != domain.StatusBlocked {
			return fmt.Sprintf("work item %q is not blocked", ev.WorkItemID)
		}
	case EventItemStarted:
		it := s.Item(ev.WorkItemID)
		if it == nil {
			return fmt.Sprintf("work item %q not found", ev.WorkItemID)
		}
		if it.Status != domain.StatusNotStarted {
			return fmt.Sprintf("work item %q has already started", ev.WorkItemID)
		}
	case EventRiskMaterialised:
		r := s.Risk(ev.RiskID)
		if r == nil {
			return fmt.Sprintf("risk %q not found", ev.RiskID)
		}
		if r.Status == domain.RiskMaterialised {
			return fmt.Sprintf("risk %q is already materialised", ev.RiskID)
		}
		if !domain.RiskTransitionAllowed(r.Status, domain.RiskMaterialised) {
			return fmt.Sprintf("risk %q in status %s does not admit materialisation", ev.RiskID, r.Status)
		}
	case EventRiskClosed:
		r := s.Risk(ev.RiskID)
		if r == nil {
			return fmt.Sprintf("risk %q not found", ev.RiskID)
		}
		if r.Status == domain.RiskClosed {
			return fmt.Sprintf("risk %q is already closed", ev.RiskID)
		}
		if !domain.RiskTransitionAllowed(r.Status, domain.RiskClosed) {
			return fmt.Sprintf("risk %q in status %s does not admit closing", ev.RiskID, r.Status)
		}
	case EventAcceptanceExpired:
		r := s.Risk(ev.RiskID)
		if r == nil {
			return fmt.Sprintf("risk %q not found", ev.RiskID)
		}
		if r.Status != domain.RiskAccepted {
			return fmt.Sprintf("risk %q is not accepted", ev.RiskID)
		}
	}
	return ""
}

func applyCommand(s *Snapshot, ev Event, c Command) error {
	switch c.Kind {
	case CommandSetRiskStatus:
		r := s.risks[c.TargetID]
		if r == nil {
			return fmt.Errorf("set_risk_status: unknown risk %q", c.TargetID)
		}
		updated := r.Clone()
		updated.Status = c.RiskStatus
		if c.Boundary != nil {
			b := *c.Boundary
			if b.Date != nil {
				d := *b.Date
				b.Date = &d
			}
			updated.Boundary = &b
		}
		if c.RiskStatus != domain.RiskAccepted {
			updated.NextReview = nil
		}
		s.risks[c.TargetID] = &updated

	case CommandScheduleReview:
		r := s.risks[c.TargetID]
		if r == nil {
			return fmt.Errorf("schedule_review: unknown risk %q", c.TargetID)
		}
		updated := r.Clone()
		if c.ReviewAt != nil {
			t := *c.ReviewAt
			updated.NextReview = &t
		} else {
			updated.NextReview = nil
		}
		s.risks[c.TargetID] = &updated

	case CommandUpsertRisk:
		if c.Risk == nil {
			return fmt.Errorf("upsert_risk: missing risk payload")
		}
		updated := c.Risk.Clone()
		if _, exists := s.risks[updated.ID]; !exists {
			s.riskOrder = append(s.riskOrder, updated.ID)
		}
		s.risks[updated.ID] = &updated

	case CommandSetDecisionStatus:
		d := s.decisions[c.TargetID]
		if d == nil {
			return fmt.Errorf("set_decision_status: unknown decision %q", c.TargetID)
		}
		updated := d.Clone()
		updated.Status = c.DecisionStatus
		if c.DecisionStatus == domain.DecisionApproved {
			t := ev.OccurredAt
			updated.ApprovedAt = &t
		}
		s.decisions[c.TargetID] = &updated

	case CommandSetItemStatus:
		it := s.items[c.TargetID]
		if it == nil {
			return fmt.Errorf("set_item_status: unknown work item %q", c.TargetID)
		}
		updated := it.Clone()
		updated.Status = c.ItemStatus
		s.items[c.TargetID] = &updated

	case CommandRecomputeForecast:
		// Signal only; consumers read it from the applied command list.

	default:
		return fmt.Errorf("unhandled command kind %q", c.Kind)
	}
	return nil
}

// collectTouched copies the post-transition state of every entity the
// commands addressed into the outcome, deduplicated, in command order.
func collectTouched(out *Outcome, s *Snapshot, commands []Command) {
	seenRisk := make(map[string]bool)
	seenDecision := make(map[string]bool)
	seenItem := make(map[string]bool)
	for _, c := range commands {
		switch c.Kind {
		case CommandSetRiskStatus, CommandUpsertRisk, CommandScheduleReview:
			if r := s.Risk(c.TargetID); r != nil && !seenRisk[c.TargetID] {
				seenRisk[c.TargetID] = true
				out.Risks = append(out.Risks, r.Clone())
			}
		case CommandSetDecisionStatus:
			if d := s.Decision(c.TargetID); d != nil && !seenDecision[c.TargetID] {
				seenDecision[c.TargetID] = true
				out.Decisions = append(out.Decisions, d.Clone())
			}
		case CommandSetItemStatus:
			if it := s.Item(c.TargetID); it != nil && !seenItem[c.TargetID] {
				seenItem[c.TargetID] = true
				out.Items = append(out.Items, it.Clone())
			}
		}
	}
}
