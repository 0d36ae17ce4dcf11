package domain

import (
	"fmt"
	"strings"
)

// ValidationError pinpoints a single invalid entity in the input snapshot.
// Validation never silently corrects input.
type ValidationError struct {
	EntityKind string
	EntityID   string
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.EntityKind, e.EntityID, e.Message)
}

// InvalidEstimateError reports a three-point estimate that violates
// min <= likely <= max with all values > 0.
type InvalidEstimateError struct {
	WorkItemID string
	Estimate   Estimate
}

func (e *InvalidEstimateError) Error() string {
	return fmt.Sprintf("invalid estimate for work item %q: min=%g likely=%g max=%g (want 0 < min <= likely <= max)",
		e.WorkItemID, e.Estimate.Min, e.Estimate.Likely, e.Estimate.Max)
}

// CircularDependencyError reports a dependency cycle among non-completed
// work items. Cycle lists the item ids in traversal order, with the entry
// point repeated at the end.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
}

// SimulationLimitExceededError reports a trial count above the configured
// ceiling. Callers may retry with reduced parameters; the engine never
// degrades silently.
type SimulationLimitExceededError struct {
	Requested  int
	MaxAllowed int
}

func (e *SimulationLimitExceededError) Error() string {
	return fmt.Sprintf("simulation count %d exceeds the configured ceiling of %d", e.Requested, e.MaxAllowed)
}
