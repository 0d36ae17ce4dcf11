package commands

import (
	"riskcast/internal/config"
	"riskcast/internal/logging"
	"riskcast/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "riskcast",
	Short: "Riskcast is a dependency-aware Monte Carlo schedule forecaster",
	Long: `Riskcast forecasts schedule outcomes for a portfolio of work items with
three-point estimates, typed dependencies, decisions and risks, and keeps the
risk register consistent through a deterministic decision-risk rule engine.

Run without a subcommand it serves the forecaster as MCP tools over stdio.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("Riskcast starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info().Msg("MCP server starting stdio loop")
		server := mcp.NewServer(cfg)
		return server.Run(cmd.Context(), Version)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
