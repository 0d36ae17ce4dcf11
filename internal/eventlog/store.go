// Package eventlog persists the rule engine's journal as a JSONL file: one
// record per processed event, appended in version order. Replaying the
// journal against the same base portfolio rebuilds the same snapshot.
package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"riskcast/internal/rules"
)

// Records can carry whole risk payloads inside their commands.
const maxRecordBytes = 1 << 20

var _ rules.Journal = (*Store)(nil)

// Store is a thread-safe, append-only journal of processed events. With an
// empty path it is memory-only, which is what tests and one-shot runs use.
type Store struct {
	mu   sync.RWMutex
	path string
	recs []rules.Record
	seen map[string]bool
}

// NewStore creates an empty journal backed by the given file path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		seen: make(map[string]bool),
	}
}

// Open creates a journal and loads whatever the file already holds.
func Open(path string) (*Store, error) {
	s := NewStore(path)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Append journals one record. Records whose event id was already journaled
// are dropped, so re-processing after a crash cannot duplicate history.
func (s *Store) Append(rec rules.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := recordIdentity(rec)
	if s.seen[id] {
		return nil
	}
	s.seen[id] = true
	s.recs = append(s.recs, rec)

	if s.path == "" {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if err := json.NewEncoder(f).Encode(rec); err != nil {
		f.Close()
		return fmt.Errorf("append journal record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}

// Load merges records from the backing file into the store, skipping lines
// that fail to decode and records already present. Loaded records are sorted
// by version so replay applies them in the order they were committed.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var recs []rules.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec rules.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("Skipping invalid journal line")
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Version != recs[j].Version {
			return recs[i].Version < recs[j].Version
		}
		return recs[i].Event.OccurredAt.Before(recs[j].Event.OccurredAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, rec := range recs {
		id := recordIdentity(rec)
		if s.seen[id] {
			continue
		}
		s.seen[id] = true
		s.recs = append(s.recs, rec)
		added++
	}
	log.Info().Str("path", s.path).Int("count", added).Msg("Loaded journal records")
	return nil
}

// Save rewrites the backing file from memory via a temp file and an atomic
// rename. Appends keep the file current; Save exists to compact a journal
// whose file accumulated duplicates or bad lines.
func (s *Store) Save() error {
	s.mu.RLock()
	recs := make([]rules.Record, len(s.recs))
	copy(recs, s.recs)
	s.mu.RUnlock()

	if s.path == "" || len(recs) == 0 {
		return nil
	}

	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp journal: %w", err)
	}
	writer := bufio.NewWriter(f)
	encoder := json.NewEncoder(writer)
	for _, rec := range recs {
		if err := encoder.Encode(rec); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("encode journal record: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush journal: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close journal: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename journal: %w", err)
	}

	log.Info().Str("path", s.path).Int("count", len(recs)).Msg("Journal compacted")
	return nil
}

// Records returns a copy of the journal in commit order.
func (s *Store) Records() []rules.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rules.Record, len(s.recs))
	copy(out, s.recs)
	return out
}

// Count returns the number of journaled records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

// LatestVersion returns the highest snapshot version the journal has seen.
func (s *Store) LatestVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := 0
	for _, rec := range s.recs {
		if rec.Version > v {
			v = rec.Version
		}
	}
	return v
}

// recordIdentity keys deduplication. Event ids are engine-assigned UUIDs;
// the composite fallback only matters for hand-written journal files.
func recordIdentity(rec rules.Record) string {
	if rec.Event.ID != "" {
		return rec.Event.ID
	}
	return fmt.Sprintf("%s|%d|%d", rec.Event.Kind, rec.Event.OccurredAt.UnixMicro(), rec.Version)
}
