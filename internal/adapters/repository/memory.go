package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/pkg/metrics"
)

// MemoryStore keeps rows in a slice guarded by a RWMutex.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []model.SessionRecord
}

// NewMemoryStore returns a store preloaded with recs.
func NewMemoryStore(recs ...model.SessionRecord) *MemoryStore {
	s := &MemoryStore{}
	s.rows = append(s.rows, recs...)
	return s
}

// FetchAll returns a copy of every row ordered by date then id.
func (s *MemoryStore) FetchAll(_ context.Context) ([]model.SessionRecord, error) {
	s.mu.RLock()
	out := make([]model.SessionRecord, len(s.rows))
	copy(out, s.rows)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	metrics.RecordRecordsIngested(len(out))
	return out, nil
}

// CountSessions counts the player's rows dated within [from, to].
func (s *MemoryStore) CountSessions(_ context.Context, player string, from, to civil.Date) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rows {
		if inRange(r, player, from, to) {
			n++
		}
	}
	return n, nil
}

// UpdateNotes overwrites notes on the player's rows within [from, to] and
// returns how many changed.
func (s *MemoryStore) UpdateNotes(_ context.Context, player string, from, to civil.Date, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.rows {
		if inRange(s.rows[i], player, from, to) {
			s.rows[i].Notes = text
			n++
		}
	}
	return n, nil
}

// InsertPlaceholder stores a single placeholder row.
func (s *MemoryStore) InsertPlaceholder(ctx context.Context, rec model.SessionRecord) error {
	return s.Insert(ctx, []model.SessionRecord{rec})
}

// Insert appends rows as given.
func (s *MemoryStore) Insert(_ context.Context, recs []model.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, recs...)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// inRange matches the player name exactly, like the SQL store, and the date inclusively.
func inRange(r model.SessionRecord, player string, from, to civil.Date) bool {
	return r.PlayerName == strings.TrimSpace(player) && !r.Date.Before(from) && !r.Date.After(to)
}
