package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool parameter structs. Input schemas are inferred from these except where
// an explicit schema below adds enums the inference cannot express.

type loadPortfolioParams struct {
	Path string `json:"path" jsonschema:"path of the portfolio document (JSON or YAML)"`
}

type runForecastParams struct {
	NumSimulations    int      `json:"num_simulations,omitempty" jsonschema:"trial count; defaults to DEFAULT_SIMULATIONS, capped at MAX_SIMULATIONS"`
	RandomSeed        *int64   `json:"random_seed,omitempty" jsonschema:"seed for reproducible runs; omit for a random seed"`
	FilterWorkItemIDs []string `json:"filter_work_item_ids,omitempty" jsonschema:"restrict the report to these work items"`
	FilterMilestoneID string   `json:"filter_milestone_id,omitempty" jsonschema:"restrict the report to one milestone"`
	WithConvergence   bool     `json:"with_convergence,omitempty" jsonschema:"additionally probe P80 stability across doubling trial budgets"`
	SaveReport        bool     `json:"save_report,omitempty" jsonschema:"write a self-contained HTML report under REPORT_DIR and return its path"`
}

type compareScenarioParams struct {
	Kind               string  `json:"kind"`
	WorkItemID         string  `json:"work_item_id,omitempty"`
	DelayDays          float64 `json:"delay_days,omitempty"`
	ScopeDeltaDays     float64 `json:"scope_delta_days,omitempty"`
	CapacityMultiplier float64 `json:"capacity_multiplier,omitempty"`
	NumSimulations     int     `json:"num_simulations,omitempty"`
	RandomSeed         *int64  `json:"random_seed,omitempty"`
	FilterMilestoneID  string  `json:"filter_milestone_id,omitempty"`
}

type previewMitigationParams struct {
	RiskID               string  `json:"risk_id" jsonschema:"id of the risk to weaken"`
	ProbabilityReduction float64 `json:"probability_reduction,omitempty" jsonschema:"subtracted from the risk probability, clamped to [0,1]"`
	ImpactReduction      float64 `json:"impact_reduction,omitempty" jsonschema:"moves the impact toward its neutral value"`
	CostDays             float64 `json:"cost_days,omitempty" jsonschema:"effort cost of the mitigation, offsets the improvement"`
	NumSimulations       int     `json:"num_simulations,omitempty"`
	RandomSeed           *int64  `json:"random_seed,omitempty"`
}

type processEventParams struct {
	Kind       string `json:"kind"`
	DecisionID string `json:"decision_id,omitempty"`
	WorkItemID string `json:"work_item_id,omitempty"`
	RiskID     string `json:"risk_id,omitempty"`
	OccurredAt string `json:"occurred_at,omitempty"`
}

type emptyParams struct{}

func (s *Server) register(srv *sdk.Server) {
	sdk.AddTool(srv, &sdk.Tool{
		Name: "load_portfolio",
		Description: "Load and validate a portfolio document (work items with three-point estimates and dependencies, " +
			"milestones, decisions, risks). Replaces any previously loaded portfolio and replays the persisted event " +
			"journal on top of it. MUST be called before any other tool.",
	}, s.handleLoadPortfolio)

	sdk.AddTool(srv, &sdk.Tool{
		Name: "run_forecast",
		Description: "Run a Monte Carlo schedule forecast over the loaded portfolio. Returns percentile finish dates " +
			"(P10/P50/P80/P90/P99) per work item and milestone, on-time probability against milestone targets, a delay " +
			"contribution breakdown by cause, a confidence label and a one-paragraph summary. Identical seeds produce " +
			"identical results regardless of worker count.",
	}, s.handleRunForecast)

	sdk.AddTool(srv, &sdk.Tool{
		Name: "compare_scenario",
		Description: "Compare the baseline forecast against one hypothetical intervention. Both runs share the same " +
			"random draws, so the reported impact isolates the intervention from sampling noise. The loaded portfolio " +
			"is never modified.",
		InputSchema: compareScenarioSchema(),
	}, s.handleCompareScenario)

	sdk.AddTool(srv, &sdk.Tool{
		Name: "preview_mitigation",
		Description: "Preview the schedule effect of weakening one risk before committing to the mitigation. Returns " +
			"the P80 improvement in days and an approve/evaluate/reject recommendation that weighs the improvement " +
			"against the stated cost.",
	}, s.handlePreviewMitigation)

	sdk.AddTool(srv, &sdk.Tool{
		Name: "process_event",
		Description: "Feed one decision or risk fact through the rule engine. The event is applied as a single atomic " +
			"transition; the response lists the commands applied and the resulting entity states. Events referencing " +
			"unknown ids or inadmissible transitions come back as explicit no-ops with a reason, never as errors. " +
			"A signal_scan event detects emergent risk signals (blocked clusters, per-assignee overload) instead of " +
			"reporting a single fact.",
		InputSchema: processEventSchema(),
	}, s.handleProcessEvent)

	sdk.AddTool(srv, &sdk.Tool{
		Name: "inspect_graph",
		Description: "Inspect the dependency graph of the loaded portfolio: topological order, root and leaf items, " +
			"edge constraints with lags, and the longest dependency chain. Fails with the offending cycle if the " +
			"graph is not a DAG.",
	}, s.handleInspectGraph)

	sdk.AddTool(srv, &sdk.Tool{
		Name: "portfolio_summary",
		Description: "Summarize the current portfolio state: item counts by status, risk counts by lifecycle status, " +
			"decision counts, milestones with targets, snapshot version and journal length. Cheap; run it to orient " +
			"before forecasting.",
	}, s.handlePortfolioSummary)
}

func compareScenarioSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"kind": {
				Type:        "string",
				Enum:        []any{"dependency_delay", "scope_delta", "capacity_multiplier"},
				Description: "Which hypothetical delta to apply.",
			},
			"work_item_id": {
				Type:        "string",
				Description: "Target item. Required for dependency_delay and scope_delta; optional for capacity_multiplier (omit for portfolio-wide).",
			},
			"delay_days":          {Type: "number", Description: "Days to push the item's earliest start out (dependency_delay)."},
			"scope_delta_days":    {Type: "number", Description: "Days added to the item's min/likely/max estimate (scope_delta)."},
			"capacity_multiplier": {Type: "number", Description: "Velocity multiplier > 0; values above 1 speed work up (capacity_multiplier)."},
			"num_simulations":     {Type: "integer", Description: "Trial count for both runs."},
			"random_seed":         {Type: "integer", Description: "Seed for reproducible comparison."},
			"filter_milestone_id": {Type: "string", Description: "Focus the impact on one milestone."},
		},
		Required: []string{"kind"},
	}
}

func processEventSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"kind": {
				Type: "string",
				Enum: []any{
					"decision_approved", "decision_superseded",
					"work_item_blocked", "work_item_unblocked", "work_item_started",
					"risk_materialised", "risk_closed", "acceptance_expired",
					"signal_scan",
				},
				Description: "The fact being reported.",
			},
			"decision_id":  {Type: "string", Description: "Decision the event concerns (decision_* kinds)."},
			"work_item_id": {Type: "string", Description: "Work item the event concerns (work_item_* kinds)."},
			"risk_id":      {Type: "string", Description: "Risk the event concerns (risk_* and acceptance_expired kinds)."},
			"occurred_at":  {Type: "string", Description: "RFC3339 timestamp; defaults to now."},
		},
		Required: []string{"kind"},
	}
}
