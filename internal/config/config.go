package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"riskcast/internal/forecast"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath   string
	LogDir     string
	JournalDir string
	ReportDir  string

	MaxSimulations     int
	DefaultSimulations int
	// Workers is the simulation worker count; 0 means one per CPU.
	Workers int

	MitigationApproveDays  float64
	MitigationEvaluateDays float64

	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve data paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	journalDir := filepath.Join(dataPath, "journal")

	// Ensure directories exist
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}
	if err := os.MkdirAll(journalDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", journalDir).Msg("Failed to create journal directory")
	}

	cfg := &AppConfig{
		DataPath:               dataPath,
		LogDir:                 logDir,
		JournalDir:             journalDir,
		ReportDir:              getEnv("REPORT_DIR", filepath.Join(dataPath, "reports")),
		MaxSimulations:         getEnvInt("MAX_SIMULATIONS", 50000),
		DefaultSimulations:     getEnvInt("DEFAULT_SIMULATIONS", 5000),
		Workers:                getEnvInt("WORKER_COUNT", 0),
		MitigationApproveDays:  getEnvFloat("MITIGATION_APPROVE_DAYS", 3),
		MitigationEvaluateDays: getEnvFloat("MITIGATION_EVALUATE_DAYS", 1),
		EnableMermaidCharts:    getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	if cfg.MaxSimulations < 1 {
		log.Warn().Int("max_simulations", cfg.MaxSimulations).Msg("MAX_SIMULATIONS must be positive, using 50000")
		cfg.MaxSimulations = 50000
	}
	if cfg.DefaultSimulations < 1 {
		log.Warn().Int("default_simulations", cfg.DefaultSimulations).Msg("DEFAULT_SIMULATIONS must be positive, using 5000")
		cfg.DefaultSimulations = 5000
	}
	if cfg.DefaultSimulations > cfg.MaxSimulations {
		log.Warn().
			Int("default_simulations", cfg.DefaultSimulations).
			Int("max_simulations", cfg.MaxSimulations).
			Msg("DEFAULT_SIMULATIONS exceeds MAX_SIMULATIONS, clamping")
		cfg.DefaultSimulations = cfg.MaxSimulations
	}

	return cfg, nil
}

// MitigationThresholds returns the configured decision thresholds for
// mitigation previews.
func (c *AppConfig) MitigationThresholds() forecast.Thresholds {
	return forecast.Thresholds{
		ApproveDays:  c.MitigationApproveDays,
		EvaluateDays: c.MitigationEvaluateDays,
	}
}

// JournalPath returns the path of the event journal file.
func (c *AppConfig) JournalPath() string {
	return filepath.Join(c.JournalDir, "events.jsonl")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric environment value")
	}
	return fallback
}
