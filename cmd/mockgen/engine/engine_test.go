package engine

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"riskcast/internal/domain"
	"riskcast/internal/graph"
	"riskcast/internal/loader"
)

func testConfig(scenario, shape string) GeneratorConfig {
	return GeneratorConfig{
		Scenario:      scenario,
		Shape:         shape,
		Distribution:  "weibull",
		Count:         80,
		Seed:          7,
		ReferenceDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerateProducesValidPortfolios(t *testing.T) {
	for _, scenario := range []string{"steady", "risky", "gridlock"} {
		for _, shape := range []string{"chain", "layers", "web"} {
			p, _ := Generate(testConfig(scenario, shape))
			if len(p.Items) != 80 {
				t.Fatalf("%s/%s: got %d items, want 80", scenario, shape, len(p.Items))
			}
			if err := domain.ValidatePortfolio(p); err != nil {
				t.Fatalf("%s/%s: invalid portfolio: %v", scenario, shape, err)
			}
			if _, err := graph.Build(p); err != nil {
				t.Fatalf("%s/%s: graph rejected portfolio: %v", scenario, shape, err)
			}
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, _ := Generate(testConfig("risky", "web"))
	b, _ := Generate(testConfig("risky", "web"))
	ja, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	jb, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ja) != string(jb) {
		t.Fatal("same seed produced different portfolios")
	}
}

func TestGenerateGridlock(t *testing.T) {
	p, events := Generate(testConfig("gridlock", "layers"))

	blocked := 0
	for i := range p.Items {
		if p.Items[i].Status == domain.StatusBlocked {
			blocked++
		}
	}
	if blocked == 0 {
		t.Fatal("gridlock scenario produced no blocked items")
	}
	if len(events) == 0 {
		t.Fatal("expected a companion event batch")
	}
}

func TestGenerateScenarioRiskLoad(t *testing.T) {
	steady, _ := Generate(testConfig("steady", "layers"))
	risky, _ := Generate(testConfig("risky", "layers"))
	if len(risky.Risks) <= len(steady.Risks) {
		t.Fatalf("risky should carry more risks than steady: %d vs %d",
			len(risky.Risks), len(steady.Risks))
	}
}

func TestSaveRoundTripsThroughLoader(t *testing.T) {
	dir := t.TempDir()
	p, events := Generate(testConfig("steady", "chain"))
	if err := Save(dir, "GEN_0", p, events); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := loader.LoadPortfolio(filepath.Join(dir, "GEN_0_portfolio.json"))
	if err != nil {
		t.Fatalf("load portfolio: %v", err)
	}
	if len(loaded.Items) != len(p.Items) {
		t.Fatalf("round trip lost items: wrote %d, read %d", len(p.Items), len(loaded.Items))
	}
	if !loaded.ReferenceDate.Equal(p.ReferenceDate) {
		t.Fatalf("reference date changed: wrote %s, read %s", p.ReferenceDate, loaded.ReferenceDate)
	}

	evs, err := loader.LoadEvents(filepath.Join(dir, "GEN_0_events.json"))
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(evs) != len(events) {
		t.Fatalf("round trip lost events: wrote %d, read %d", len(events), len(evs))
	}
}
