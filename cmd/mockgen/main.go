package main

import (
	"flag"
	"fmt"
	"os"
	"riskcast/cmd/mockgen/engine"
	"time"
)

func main() {
	scenario := flag.String("scenario", "steady", "Scenario to generate: steady, risky, gridlock")
	shape := flag.String("shape", "layers", "Dependency shape: chain, layers, web")
	distribution := flag.String("distribution", "uniform", "Distribution for likely durations: uniform, weibull")
	outDir := flag.String("out", "./.cache", "Output directory for mock files")
	count := flag.Int("count", 40, "Number of work items to generate")
	seed := flag.Int64("seed", 1, "Random seed; the same seed reproduces the same files")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:      *scenario,
		Shape:         *shape,
		Distribution:  *distribution,
		Count:         *count,
		Seed:          *seed,
		ReferenceDate: time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Shape: %s, Distribution: %s, Count: %d) to %s...\n", cfg.Scenario, cfg.Shape, cfg.Distribution, cfg.Count, *outDir)

	portfolio, events := engine.Generate(cfg)

	if err := engine.Save(*outDir, "RISKTEST_0", portfolio, events); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
