package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxSimulations != 50000 {
		t.Errorf("MaxSimulations = %d, want 50000", cfg.MaxSimulations)
	}
	if cfg.DefaultSimulations != 5000 {
		t.Errorf("DefaultSimulations = %d, want 5000", cfg.DefaultSimulations)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Workers)
	}
	if cfg.MitigationApproveDays != 3 || cfg.MitigationEvaluateDays != 1 {
		t.Errorf("Thresholds = %v/%v, want 3/1", cfg.MitigationApproveDays, cfg.MitigationEvaluateDays)
	}
	if cfg.EnableMermaidCharts {
		t.Errorf("EnableMermaidCharts should default to false")
	}
	if cfg.LogDir != filepath.Join(dir, "logs") {
		t.Errorf("LogDir = %s", cfg.LogDir)
	}
	if cfg.ReportDir != filepath.Join(dir, "reports") {
		t.Errorf("ReportDir = %s", cfg.ReportDir)
	}
	if filepath.Base(cfg.JournalPath()) != "events.jsonl" {
		t.Errorf("JournalPath = %s", cfg.JournalPath())
	}
	for _, d := range []string{cfg.LogDir, cfg.JournalDir} {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("Directory %s was not created: %v", d, err)
		}
	}
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("MAX_SIMULATIONS", "10000")
	t.Setenv("DEFAULT_SIMULATIONS", "2000")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("MITIGATION_APPROVE_DAYS", "5.5")
	t.Setenv("MITIGATION_EVALUATE_DAYS", "0.5")
	t.Setenv("ENABLE_MERMAID_CHARTS", "true")
	t.Setenv("REPORT_DIR", filepath.Join(dir, "out"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxSimulations != 10000 || cfg.DefaultSimulations != 2000 {
		t.Errorf("Simulation bounds = %d/%d, want 10000/2000", cfg.MaxSimulations, cfg.DefaultSimulations)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	th := cfg.MitigationThresholds()
	if th.ApproveDays != 5.5 || th.EvaluateDays != 0.5 {
		t.Errorf("Thresholds = %+v", th)
	}
	if !cfg.EnableMermaidCharts {
		t.Errorf("EnableMermaidCharts should be true")
	}
	if cfg.ReportDir != filepath.Join(dir, "out") {
		t.Errorf("ReportDir = %s", cfg.ReportDir)
	}
}

func TestLoad_ClampsDefaultToMax(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("MAX_SIMULATIONS", "1000")
	t.Setenv("DEFAULT_SIMULATIONS", "5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultSimulations != 1000 {
		t.Errorf("DefaultSimulations = %d, want clamped to 1000", cfg.DefaultSimulations)
	}
}

func TestLoad_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("MAX_SIMULATIONS", "lots")
	t.Setenv("MITIGATION_APPROVE_DAYS", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxSimulations != 50000 {
		t.Errorf("MaxSimulations = %d, want fallback 50000", cfg.MaxSimulations)
	}
	if cfg.MitigationApproveDays != 3 {
		t.Errorf("MitigationApproveDays = %v, want fallback 3", cfg.MitigationApproveDays)
	}
}

// godotenv keeps double quotes inside single-quoted values intact; the .env
// files this server ships with rely on that.
func TestGodotenvQuoting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(`TEST_VAR='value with "double quotes"'`), 0o644); err != nil {
		t.Fatal(err)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("Error reading env: %v", err)
	}

	expected := `value with "double quotes"`
	if env["TEST_VAR"] != expected {
		t.Errorf("Expected %s, got %s", expected, env["TEST_VAR"])
	}
}
