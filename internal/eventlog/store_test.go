package eventlog

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"riskcast/internal/domain"
	"riskcast/internal/rules"
)

func testRecord(id string, version int, noop bool) rules.Record {
	return rules.Record{
		Event: rules.Event{
			ID:         id,
			Kind:       rules.EventItemBlocked,
			WorkItemID: "b",
			OccurredAt: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC).Add(time.Duration(version) * time.Minute),
		},
		NoOp:    noop,
		Version: version,
	}
}

func TestStore_AppendDeduplicatesByEventID(t *testing.T) {
	s := NewStore("")
	if err := s.Append(testRecord("ev-1", 1, false)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(testRecord("ev-1", 1, false)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := s.Count(); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
}

func TestStore_PersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	s := NewStore(path)
	for _, rec := range []rules.Record{
		testRecord("ev-1", 1, false),
		testRecord("ev-2", 2, false),
		testRecord("ev-3", 2, true),
	} {
		if err := s.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := reloaded.Count(); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
	if got := reloaded.LatestVersion(); got != 2 {
		t.Fatalf("LatestVersion = %d, want 2", got)
	}
	if !reflect.DeepEqual(reloaded.Records(), s.Records()) {
		t.Fatal("reloaded records differ from the originals")
	}
}

func TestStore_LoadSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	seed := NewStore(path)
	if err := seed.Append(testRecord("ev-1", 1, false)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open journal for corruption: %v", err)
	}
	if _, err := f.WriteString("{not json\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()
	if err := seed.Append(testRecord("ev-2", 2, false)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := reloaded.Count(); got != 2 {
		t.Fatalf("Count = %d, want 2 after skipping the bad line", got)
	}
}

func TestStore_SaveCompacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	// Write the same record line twice, as a crashed writer might.
	seed := NewStore(path)
	if err := seed.Append(testRecord("ev-1", 1, false)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if err := os.WriteFile(path, append(raw, raw...), 0o644); err != nil {
		t.Fatalf("duplicate journal lines: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.Count(); got != 1 {
		t.Fatalf("Count = %d, want 1 after dedup", got)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	compacted, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read compacted journal: %v", err)
	}
	if !reflect.DeepEqual(compacted, raw) {
		t.Fatalf("compacted file = %q, want the single original line", compacted)
	}
}

func TestStore_ReplaysThroughEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	occurred := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	portfolio := func() *domain.Portfolio {
		return &domain.Portfolio{
			ReferenceDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Items: []domain.WorkItem{
				{ID: "a", Status: domain.StatusInProgress,
					Estimate: domain.Estimate{Min: 1, Likely: 2, Max: 3}},
				{ID: "b", Status: domain.StatusNotStarted,
					Estimate:  domain.Estimate{Min: 2, Likely: 3, Max: 5},
					DependsOn: []domain.Dependency{{OnID: "a", Type: domain.FinishToStart}}},
			},
			Decisions: []domain.Decision{
				{ID: "d-delay", Type: domain.DecisionDelay, Status: domain.DecisionProposed,
					TargetItemIDs: []string{"a"},
					Effect:        domain.Effect{Type: domain.EffectDelayDays, Value: 5}},
			},
		}
	}

	store := NewStore(path)
	live := rules.NewEngine(portfolio(), store)
	for _, ev := range []rules.Event{
		{Kind: rules.EventItemBlocked, WorkItemID: "b", OccurredAt: occurred},
		{Kind: rules.EventDecisionApproved, DecisionID: "d-delay", OccurredAt: occurred.Add(time.Hour)},
	} {
		out, err := live.Process(ev)
		if err != nil {
			t.Fatalf("Process(%s): %v", ev.Kind, err)
		}
		if out.NoOp {
			t.Fatalf("Process(%s): unexpected no-op: %s", ev.Kind, out.Reason)
		}
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rebuilt := rules.NewEngine(portfolio(), nil)
	if err := rebuilt.Replay(reloaded.Records()); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if got, want := rebuilt.Snapshot().Version, live.Snapshot().Version; got != want {
		t.Fatalf("replayed version = %d, want %d", got, want)
	}
	if !reflect.DeepEqual(rebuilt.Snapshot().Portfolio(), live.Snapshot().Portfolio()) {
		t.Fatal("replayed portfolio differs from the live one")
	}
}
