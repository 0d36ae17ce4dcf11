package visuals

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"riskcast/internal/domain"
	"riskcast/internal/forecast"
	"riskcast/internal/simulation"
)

func chartPortfolio() *domain.Portfolio {
	return &domain.Portfolio{
		ReferenceDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Milestones: []domain.Milestone{
			{ID: "launch", Name: "Launch"},
		},
		Items: []domain.WorkItem{
			{ID: "api", Name: "API contract", Status: domain.StatusInProgress, MilestoneID: "launch"},
			{ID: "backend", Name: "Backend", MilestoneID: "launch", DependsOn: []domain.Dependency{
				{OnID: "api", Type: domain.FinishToStart, LagDays: 2},
			}},
			{ID: "client", Name: "Client \"beta\"", Status: domain.StatusBlocked, DependsOn: []domain.Dependency{
				{OnID: "backend", Type: domain.FinishToFinish},
				{OnID: "vendor", Type: domain.Blocking, External: true},
			}},
			{ID: "vendor", Name: "Vendor handoff", Status: domain.StatusCompleted},
		},
	}
}

func TestGenerateDependencyFlowchart(t *testing.T) {
	chart := GenerateDependencyFlowchart(chartPortfolio())

	if !strings.HasPrefix(chart, "```mermaid\nflowchart TD\n") {
		t.Fatalf("Chart does not open a mermaid flowchart:\n%s", chart)
	}
	if !strings.HasSuffix(chart, "```") {
		t.Errorf("Chart fence is not closed")
	}
	for _, want := range []string{
		`subgraph launch["Launch"]`,
		`api["API contract"]:::inprogress`,
		`backend["Backend"]:::notstarted`,
		`client["Client 'beta'"]:::blocked`,
		`vendor["Vendor handoff"]:::completed`,
		`api -->|+2d| backend`,
		`backend -.->|ff| client`,
		`vendor ==>|blocks ext| client`,
		"classDef blocked",
	} {
		if !strings.Contains(chart, want) {
			t.Errorf("Chart is missing %q:\n%s", want, chart)
		}
	}
	if strings.Contains(chart, `client["Client "beta""]`) {
		t.Errorf("Quotes in names must be rewritten, got:\n%s", chart)
	}
}

func TestGenerateDependencyFlowchart_Empty(t *testing.T) {
	if chart := GenerateDependencyFlowchart(&domain.Portfolio{}); chart != "" {
		t.Errorf("Empty portfolio should yield no chart, got:\n%s", chart)
	}
}

func TestGenerateForecastChart(t *testing.T) {
	chart := GenerateForecastChart("Launch", simulation.Percentiles{
		P10: 4, P50: 7, P80: 9, P90: 11, P99: 14,
	})

	for _, want := range []string{
		"xychart-beta",
		`title "Forecast CDF: Launch"`,
		`"10% (Aggressive)"`,
		`"99% (Worst case)"`,
		`y-axis "Days from reference date" 0 --> 16`,
		"bar [4.0, 7.0, 9.0, 11.0, 14.0]",
	} {
		if !strings.Contains(chart, want) {
			t.Errorf("Chart is missing %q:\n%s", want, chart)
		}
	}
}

func TestGenerateForecastChart_NoData(t *testing.T) {
	if chart := GenerateForecastChart("x", simulation.Percentiles{}); chart != "" {
		t.Errorf("Zero percentiles should yield no chart, got:\n%s", chart)
	}
}

func TestGenerateConvergenceChart(t *testing.T) {
	chart := GenerateConvergenceChart([]simulation.ConvergenceCheckpoint{
		{Trials: 100, P80Days: 9.4},
		{Trials: 200, P80Days: 9.1, DriftDays: 0.3},
		{Trials: 400, P80Days: 9.2, DriftDays: 0.1},
	})

	for _, want := range []string{
		"xychart-beta",
		`x-axis ["100", "200", "400"]`,
		"line [9.40, 9.10, 9.20]",
	} {
		if !strings.Contains(chart, want) {
			t.Errorf("Chart is missing %q:\n%s", want, chart)
		}
	}
	if GenerateConvergenceChart(nil) != "" {
		t.Errorf("No checkpoints should yield no chart")
	}
}

func reportOutcome() *forecast.Outcome {
	return &forecast.Outcome{
		Result: &simulation.Result{
			ReferenceDate: "2026-03-02",
			Milestones: []simulation.MilestoneForecast{{
				ID:   "launch",
				Name: "Launch",
				PercentileDates: simulation.PercentileDates{
					P50: "2026-03-09", P80: "2026-03-11", P90: "2026-03-12", P99: "2026-03-16",
				},
				FinishDays:        simulation.Percentiles{P10: 4, P50: 7, P80: 9, P90: 10, P99: 14},
				ProbabilityOnTime: 0.62,
				ExpectedDelayDays: 1.3,
			}},
			Items: []simulation.ItemForecast{{
				ID:   "api",
				Name: "API contract",
				PercentileDates: simulation.PercentileDates{
					P50: "2026-03-05", P80: "2026-03-06", P90: "2026-03-07", P99: "2026-03-09",
				},
				FinishDays: simulation.Percentiles{P10: 2, P50: 3, P80: 4, P90: 5, P99: 7},
			}},
			Meta: simulation.RunMeta{NumSimulations: 5000, SeedUsed: 42, Workers: 4},
		},
		Breakdown:  []forecast.Contribution{{Cause: "base estimates", Days: 7.0}, {Cause: "risk: Vendor slip", Days: 2.0}},
		Confidence: forecast.ConfidenceMedium,
		Summary:    "Launch lands by 2026-03-11 at P80.",
	}
}

func TestBuildHTMLReport(t *testing.T) {
	html, err := BuildHTMLReport(reportOutcome())
	if err != nil {
		t.Fatalf("BuildHTMLReport failed: %v", err)
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		"Schedule Forecast",
		"MEDIUM confidence",
		"Launch lands by 2026-03-11 at P80.",
		"2026-03-11",
		"risk: Vendor slip",
		`id="forecast-data"`,
		`getElementById("forecast-data")`,
	} {
		if !bytes.Contains(html, []byte(want)) {
			t.Errorf("Report is missing %q", want)
		}
	}
	// The inline script must be the minified form, not the source constant.
	if bytes.Contains(html, []byte("var data = JSON.parse")) {
		t.Errorf("Chart script was embedded unminified")
	}
}

func TestBuildHTMLReport_NoResult(t *testing.T) {
	if _, err := BuildHTMLReport(&forecast.Outcome{}); err == nil {
		t.Errorf("Expected an error for an outcome without a result")
	}
}

func TestWriteHTMLReport(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteHTMLReport(reportOutcome(), dir, false)
	if err != nil {
		t.Fatalf("WriteHTMLReport failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("Report written to %s, want directory %s", path, dir)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "forecast-") || !strings.HasSuffix(base, ".html") {
		t.Errorf("Unexpected report file name %s", base)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading report back failed: %v", err)
	}
	if !bytes.Contains(raw, []byte("<!DOCTYPE html>")) {
		t.Errorf("Written report is not the rendered document")
	}
}
