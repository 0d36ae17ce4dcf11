package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"riskcast/internal/forecast"
	"riskcast/internal/loader"
	"riskcast/internal/visuals"
)

var (
	fcSimulations int
	fcSeed        int64
	fcMilestone   string
	fcItems       []string
	fcConvergence bool
	fcChart       bool
	fcHTML        bool
	fcOpen        bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast <portfolio-file>",
	Short: "Run a Monte Carlo schedule forecast over a portfolio document",
	Long: `Forecast reads a portfolio document (JSON or YAML), validates it, runs the
simulation and prints percentile finish dates per milestone and work item,
the delay contribution breakdown and a confidence label.`,
	Args: cobra.ExactArgs(1),
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().IntVarP(&fcSimulations, "simulations", "n", 0, "trial count (default: DEFAULT_SIMULATIONS)")
	forecastCmd.Flags().Int64Var(&fcSeed, "seed", 0, "random seed for reproducible runs")
	forecastCmd.Flags().StringVarP(&fcMilestone, "milestone", "m", "", "restrict the forecast to one milestone")
	forecastCmd.Flags().StringSliceVar(&fcItems, "item", nil, "restrict the report to these work items (repeatable)")
	forecastCmd.Flags().BoolVar(&fcConvergence, "convergence", false, "probe P80 stability across doubling trial budgets")
	forecastCmd.Flags().BoolVar(&fcChart, "chart", false, "print a mermaid percentile chart for the headline entity")
	forecastCmd.Flags().BoolVar(&fcHTML, "html", false, "write a self-contained HTML report under REPORT_DIR")
	forecastCmd.Flags().BoolVar(&fcOpen, "open", false, "open the HTML report in the default browser (implies --html)")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	p, err := loader.LoadPortfolio(args[0])
	if err != nil {
		return err
	}

	opts := forecast.Options{
		NumSimulations:    fcSimulations,
		Workers:           cfg.Workers,
		MaxTrials:         cfg.MaxSimulations,
		FilterItemIDs:     fcItems,
		FilterMilestoneID: fcMilestone,
		WithConvergence:   fcConvergence,
	}
	if opts.NumSimulations == 0 {
		opts.NumSimulations = cfg.DefaultSimulations
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed = &fcSeed
	}

	out, err := forecast.Run(cmd.Context(), p, opts)
	if err != nil {
		return err
	}

	renderForecast(out)

	if fcChart || cfg.EnableMermaidCharts {
		if chart := visuals.FocusChart(out.Result, fcMilestone); chart != "" {
			fmt.Println()
			fmt.Println(chart)
		}
	}
	if fcConvergence && out.Convergence != nil {
		renderConvergence(out.Convergence)
	}

	if fcHTML || fcOpen {
		path, err := visuals.WriteHTMLReport(out, cfg.ReportDir, fcOpen)
		if err != nil {
			return err
		}
		fmt.Printf("\nReport written to %s\n", path)
	}
	return nil
}
