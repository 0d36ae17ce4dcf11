package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"riskcast/internal/forecast"
	"riskcast/internal/visuals"
)

// forecastOptions fills defaults and ceilings from configuration. A requested
// trial count above the ceiling is not clamped; the run fails fast with a
// structured limit error.
func (s *Server) forecastOptions(numSims int, seed *int64, itemIDs []string, milestoneID string, withConvergence bool) forecast.Options {
	if numSims == 0 {
		numSims = s.cfg.DefaultSimulations
	}
	return forecast.Options{
		NumSimulations:    numSims,
		Seed:              seed,
		Workers:           s.cfg.Workers,
		MaxTrials:         s.cfg.MaxSimulations,
		FilterItemIDs:     itemIDs,
		FilterMilestoneID: milestoneID,
		WithConvergence:   withConvergence,
	}
}

// forecastPayload decorates an outcome with the optional chart and report
// path. The embedded outcome flattens into the same JSON the library returns.
type forecastPayload struct {
	*forecast.Outcome
	Chart      string `json:"chart,omitempty"`
	ReportPath string `json:"report_path,omitempty"`
}

func (s *Server) handleRunForecast(ctx context.Context, req *sdk.CallToolRequest, in runForecastParams) (*sdk.CallToolResult, any, error) {
	engine, _, err := s.current()
	if err != nil {
		return errorResult(err)
	}
	p := engine.Snapshot().Portfolio()

	out, err := forecast.Run(ctx, p, s.forecastOptions(in.NumSimulations, in.RandomSeed, in.FilterWorkItemIDs, in.FilterMilestoneID, in.WithConvergence))
	if err != nil {
		return errorResult(err)
	}
	log.Info().
		Int("trials", out.Result.Meta.NumSimulations).
		Int64("seed", out.Result.Meta.SeedUsed).
		Int64("elapsed_ms", out.Result.Meta.ExecutionTimeMS).
		Msg("Forecast complete")

	payload := forecastPayload{Outcome: out}
	if s.cfg.EnableMermaidCharts {
		payload.Chart = visuals.FocusChart(out.Result, in.FilterMilestoneID)
	}
	if in.SaveReport {
		path, err := visuals.WriteHTMLReport(out, s.cfg.ReportDir, false)
		if err != nil {
			return errorResult(err)
		}
		payload.ReportPath = path
	}
	return textResult(payload)
}

func (s *Server) handleCompareScenario(ctx context.Context, req *sdk.CallToolRequest, in compareScenarioParams) (*sdk.CallToolResult, any, error) {
	engine, _, err := s.current()
	if err != nil {
		return errorResult(err)
	}
	p := engine.Snapshot().Portfolio()

	delta := forecast.ScenarioDelta{
		Kind:               forecast.ScenarioKind(in.Kind),
		ItemID:             in.WorkItemID,
		DelayDays:          in.DelayDays,
		ScopeDeltaDays:     in.ScopeDeltaDays,
		CapacityMultiplier: in.CapacityMultiplier,
	}
	cmp, err := forecast.Compare(ctx, p, delta, s.forecastOptions(in.NumSimulations, in.RandomSeed, nil, in.FilterMilestoneID, false))
	if err != nil {
		return errorResult(err)
	}
	log.Info().
		Str("kind", in.Kind).
		Str("work_item", in.WorkItemID).
		Float64("impact_days", cmp.ImpactDays).
		Msg("Scenario compared")
	return textResult(cmp)
}

func (s *Server) handlePreviewMitigation(ctx context.Context, req *sdk.CallToolRequest, in previewMitigationParams) (*sdk.CallToolResult, any, error) {
	engine, _, err := s.current()
	if err != nil {
		return errorResult(err)
	}
	p := engine.Snapshot().Portfolio()

	m := forecast.Mitigation{
		RiskID:               in.RiskID,
		ProbabilityReduction: in.ProbabilityReduction,
		ImpactReduction:      in.ImpactReduction,
		CostDays:             in.CostDays,
	}
	report, err := forecast.PreviewMitigation(ctx, p, m, s.cfg.MitigationThresholds(), s.forecastOptions(in.NumSimulations, in.RandomSeed, nil, "", false))
	if err != nil {
		return errorResult(err)
	}
	log.Info().
		Str("risk", in.RiskID).
		Float64("improvement_days", report.ImprovementDays).
		Str("recommendation", report.Recommendation).
		Msg("Mitigation previewed")
	return textResult(report)
}
