package visuals

import (
	"fmt"
	"math"
	"strings"

	"riskcast/internal/domain"
	"riskcast/internal/simulation"
)

// GenerateDependencyFlowchart creates a Mermaid flowchart of the dependency
// graph: one node per work item styled by status, grouped into milestone
// subgraphs, with edge decorations for finish-to-finish, blocking, lag, and
// external dependencies.
func GenerateDependencyFlowchart(p *domain.Portfolio) string {
	if len(p.Items) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("flowchart TD\n")

	byMilestone := make(map[string][]*domain.WorkItem)
	for i := range p.Items {
		it := &p.Items[i]
		byMilestone[it.MilestoneID] = append(byMilestone[it.MilestoneID], it)
	}

	for i := range p.Milestones {
		m := &p.Milestones[i]
		members := byMilestone[m.ID]
		if len(members) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", m.ID, nodeLabel(m.Name, m.ID)))
		for _, it := range members {
			sb.WriteString("        " + nodeLine(it) + "\n")
		}
		sb.WriteString("    end\n")
	}
	for _, it := range byMilestone[""] {
		sb.WriteString("    " + nodeLine(it) + "\n")
	}

	for i := range p.Items {
		it := &p.Items[i]
		for _, dep := range it.DependsOn {
			sb.WriteString("    " + edgeLine(dep, it.ID) + "\n")
		}
	}

	sb.WriteString("    classDef notstarted fill:#f4f4f4,stroke:#999,color:#333\n")
	sb.WriteString("    classDef inprogress fill:#d8ecff,stroke:#3182bd,color:#333\n")
	sb.WriteString("    classDef blocked fill:#ffd9d9,stroke:#cc3333,color:#333\n")
	sb.WriteString("    classDef completed fill:#ddf2dd,stroke:#339933,color:#333\n")
	sb.WriteString("```")
	return sb.String()
}

func nodeLine(it *domain.WorkItem) string {
	return fmt.Sprintf("%s[\"%s\"]:::%s", it.ID, nodeLabel(it.Name, it.ID), statusClass(it.Status))
}

func nodeLabel(name, id string) string {
	if name == "" {
		name = id
	}
	// Double quotes would terminate the Mermaid label early.
	return strings.ReplaceAll(name, "\"", "'")
}

func statusClass(s domain.ItemStatus) string {
	switch s {
	case domain.StatusInProgress:
		return "inprogress"
	case domain.StatusBlocked:
		return "blocked"
	case domain.StatusCompleted:
		return "completed"
	}
	return "notstarted"
}

func edgeLine(dep domain.Dependency, toID string) string {
	var parts []string
	arrow := "-->"
	switch dep.Type {
	case domain.FinishToFinish:
		arrow = "-.->"
		parts = append(parts, "ff")
	case domain.Blocking:
		arrow = "==>"
		parts = append(parts, "blocks")
	}
	if dep.LagDays > 0 {
		parts = append(parts, fmt.Sprintf("+%gd", dep.LagDays))
	}
	if dep.External {
		parts = append(parts, "ext")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s %s %s", dep.OnID, arrow, toID)
	}
	return fmt.Sprintf("%s %s|%s| %s", dep.OnID, arrow, strings.Join(parts, " "), toID)
}

// GenerateForecastChart creates a Mermaid bar chart of finish-day percentiles
// for one forecast entity (a milestone or a work item).
func GenerateForecastChart(name string, pct simulation.Percentiles) string {
	if pct.P99 == 0 {
		return ""
	}

	labels := []string{
		"\"10% (Aggressive)\"",
		"\"50% (Coin toss)\"",
		"\"80% (Commit)\"",
		"\"90% (Conservative)\"",
		"\"99% (Worst case)\"",
	}
	values := []string{
		fmt.Sprintf("%.1f", pct.P10),
		fmt.Sprintf("%.1f", pct.P50),
		fmt.Sprintf("%.1f", pct.P80),
		fmt.Sprintf("%.1f", pct.P90),
		fmt.Sprintf("%.1f", pct.P99),
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Forecast CDF: %s\"\n", nodeLabel(name, "forecast")))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Days from reference date\" 0 --> %d\n", int(math.Ceil(pct.P99*1.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// FocusChart charts the finish percentiles of a result's headline entity:
// the named milestone when one is given, otherwise whatever finishes last.
func FocusChart(res *simulation.Result, milestoneID string) string {
	kind, id, _, _ := res.Focus(milestoneID)
	switch kind {
	case "milestone":
		ms := res.Milestone(id)
		return GenerateForecastChart(nodeLabel(ms.Name, ms.ID), ms.FinishDays)
	case "work_item":
		it := res.Item(id)
		return GenerateForecastChart(nodeLabel(it.Name, it.ID), it.FinishDays)
	}
	return ""
}

// GenerateConvergenceChart creates a Mermaid line chart of the focus P80
// across doubling trial budgets. A flat tail means the forecast converged.
func GenerateConvergenceChart(checkpoints []simulation.ConvergenceCheckpoint) string {
	if len(checkpoints) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxY := 0.0
	for _, c := range checkpoints {
		labels = append(labels, fmt.Sprintf("\"%d\"", c.Trials))
		values = append(values, fmt.Sprintf("%.2f", c.P80Days))
		if c.P80Days > maxY {
			maxY = c.P80Days
		}
	}
	if maxY == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"P80 Convergence by Trial Budget\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"P80 (Days)\" 0 --> %d\n", int(math.Ceil(maxY*1.1))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}
