package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"riskcast/internal/eventlog"
	"riskcast/internal/loader"
	"riskcast/internal/rules"
)

var evJournal string

var eventsCmd = &cobra.Command{
	Use:   "events <portfolio-file> <events-file>",
	Short: "Feed decision and risk facts through the rule engine",
	Long: `Events replays the persisted journal over the portfolio, then processes each
event from the file as one atomic transition and appends it to the journal.
Events referencing unknown ids or inadmissible transitions are reported as
no-ops with a reason, never as failures.`,
	Args: cobra.ExactArgs(2),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&evJournal, "journal", "", "journal file (default: <DATA_PATH>/journal/events.jsonl)")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	p, err := loader.LoadPortfolio(args[0])
	if err != nil {
		return err
	}
	events, err := loader.LoadEvents(args[1])
	if err != nil {
		return err
	}

	journalPath := evJournal
	if journalPath == "" {
		journalPath = cfg.JournalPath()
	}
	store, err := eventlog.Open(journalPath)
	if err != nil {
		return err
	}
	engine := rules.NewEngine(p, store)
	if err := engine.Replay(store.Records()); err != nil {
		return err
	}

	t := newTable("Events")
	t.AppendHeader(table.Row{"Event", "Target", "Result", "Commands", "Version"})
	for _, ev := range events {
		outcome, err := engine.Process(ev)
		if err != nil {
			return err
		}
		result := "applied"
		if outcome.NoOp {
			result = "no-op: " + outcome.Reason
		}
		t.AppendRow(table.Row{
			string(ev.Kind),
			eventTarget(ev),
			result,
			len(outcome.Applied),
			outcome.Version,
		})
	}
	t.Render()

	fmt.Printf("\nSnapshot at version %d, journal %s holds %d records\n",
		engine.Snapshot().Version, journalPath, store.Count())
	return nil
}

func eventTarget(ev rules.Event) string {
	switch {
	case ev.DecisionID != "":
		return ev.DecisionID
	case ev.WorkItemID != "":
		return ev.WorkItemID
	case ev.RiskID != "":
		return ev.RiskID
	}
	return "-"
}
