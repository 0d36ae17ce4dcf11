package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"riskcast/internal/graph"
	"riskcast/internal/loader"
	"riskcast/internal/visuals"
)

var grTopo bool

var graphCmd = &cobra.Command{
	Use:   "graph <portfolio-file>",
	Short: "Print the dependency graph as a mermaid flowchart",
	Long: `Graph validates the portfolio's dependency structure (failing with the
offending cycle if it is not a DAG) and prints a mermaid flowchart with
status-styled nodes and labelled edges.`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&grTopo, "topo", false, "also print the topological execution order")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	p, err := loader.LoadPortfolio(args[0])
	if err != nil {
		return err
	}

	g, err := graph.Build(p)
	if err != nil {
		return err
	}

	fmt.Println(visuals.GenerateDependencyFlowchart(p))

	if grTopo {
		order := make([]string, 0, len(g.Order))
		for _, i := range g.Order {
			order = append(order, g.Nodes[i].Item.ID)
		}
		fmt.Printf("\nExecution order: %s\n", strings.Join(order, " -> "))
	}
	return nil
}
