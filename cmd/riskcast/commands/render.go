package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"riskcast/internal/forecast"
	"riskcast/internal/simulation"
)

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func nameOrID(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func renderForecast(out *forecast.Outcome) {
	res := out.Result

	if len(res.Milestones) > 0 {
		t := newTable("Milestones")
		t.AppendHeader(table.Row{"Milestone", "P50", "P80", "P90", "On time", "Exp. delay"})
		for _, ms := range res.Milestones {
			t.AppendRow(table.Row{
				nameOrID(ms.Name, ms.ID),
				ms.PercentileDates.P50,
				ms.PercentileDates.P80,
				ms.PercentileDates.P90,
				fmt.Sprintf("%.0f%%", ms.ProbabilityOnTime*100),
				fmt.Sprintf("%.1fd", ms.ExpectedDelayDays),
			})
		}
		t.Render()
	}

	if len(res.Items) > 0 {
		t := newTable("Work Items")
		t.AppendHeader(table.Row{"Item", "P50", "P80", "P90", "P99"})
		for _, it := range res.Items {
			t.AppendRow(table.Row{
				nameOrID(it.Name, it.ID),
				it.PercentileDates.P50,
				it.PercentileDates.P80,
				it.PercentileDates.P90,
				it.PercentileDates.P99,
			})
		}
		t.Render()
	}

	if len(out.Breakdown) > 0 {
		t := newTable("Delay Contribution at P80")
		t.AppendHeader(table.Row{"Cause", "Days"})
		for _, c := range out.Breakdown {
			t.AppendRow(table.Row{c.Cause, fmt.Sprintf("%.1f", c.Days)})
		}
		t.Render()
	}

	fmt.Printf("\nConfidence: %s\n%s\n", out.Confidence, out.Summary)
	fmt.Printf("(%d trials, seed %d, %d ms)\n",
		res.Meta.NumSimulations, res.Meta.SeedUsed, res.Meta.ExecutionTimeMS)
}

func renderConvergence(conv *simulation.ConvergenceResult) {
	t := newTable("Convergence")
	t.AppendHeader(table.Row{"Trials", "P80 (days)", "Drift (days)"})
	for _, cp := range conv.Checkpoints {
		t.AppendRow(table.Row{cp.Trials, fmt.Sprintf("%.2f", cp.P80Days), fmt.Sprintf("%.2f", cp.DriftDays)})
	}
	t.Render()
	fmt.Println(conv.Message)
}

func renderComparison(cmp *forecast.Comparison) {
	base := cmp.Baseline.Result
	scen := cmp.Scenario.Result

	t := newTable("Baseline vs Scenario (P80)")
	t.AppendHeader(table.Row{"Entity", "Baseline", "Scenario", "Shift"})
	for _, bms := range base.Milestones {
		if sms := scen.Milestone(bms.ID); sms != nil {
			t.AppendRow(table.Row{
				nameOrID(bms.Name, bms.ID),
				bms.PercentileDates.P80,
				sms.PercentileDates.P80,
				fmt.Sprintf("%+.1fd", sms.FinishDays.P80-bms.FinishDays.P80),
			})
		}
	}
	for _, bit := range base.Items {
		if sit := scen.Item(bit.ID); sit != nil {
			t.AppendRow(table.Row{
				nameOrID(bit.Name, bit.ID),
				bit.PercentileDates.P80,
				sit.PercentileDates.P80,
				fmt.Sprintf("%+.1fd", sit.FinishDays.P80-bit.FinishDays.P80),
			})
		}
	}
	t.Render()

	fmt.Printf("\n%s (%+.1f days at P80)\n", cmp.ImpactDescription, cmp.ImpactDays)
}
