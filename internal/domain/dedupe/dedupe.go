// Package dedupe drops session rows that a paginated read delivers twice.
//
// OFFSET pagination over a table that is being written to can shift a row
// across a page boundary, so the same row id can arrive on two pages.
package dedupe

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/almog/internal/domain/model"
)

// Deduper records seen row identities.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool
	// Reset forgets every recorded id.
	Reset()
	Size() int64
}

// inMemoryDeduper keeps ids in a map. In bounded mode the oldest id is
// evicted once maxSize is reached.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion ring, bounded mode only
	next    int
	maxSize int // 0 or negative = unbounded
}

// NewInMemoryDeduper creates a deduper. Unbounded unless WithMaxSize is given.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.order = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 {
		if len(d.order) < d.maxSize {
			d.order = append(d.order, id)
		} else {
			delete(d.seen, d.order[d.next])
			d.order[d.next] = id
			d.next = (d.next + 1) % d.maxSize
		}
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]struct{})
	d.order = d.order[:0]
	d.next = 0
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// Identity returns the dedupe key of r: its id, or a content fingerprint
// when the source has no id column.
func Identity(r model.SessionRecord) string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return "row:" + strings.Join([]string{
		strings.ToLower(r.PlayerName),
		r.Team,
		r.MatchID,
		r.Date.String(),
		f(r.TotalDistance),
		f(r.HighSpeedDistance),
		f(r.SprintDistance),
		f(r.AccelerationEfforts),
		f(r.DecelerationEfforts),
		f(r.MaxVelocity),
		r.TotalDuration.String(),
	}, "|")
}

// Records returns records without repeats, keeping the first occurrence,
// and the number of dropped rows.
func Records(ctx context.Context, d Deduper, records []model.SessionRecord) ([]model.SessionRecord, int) {
	out := records[:0:0]
	dropped := 0
	for _, r := range records {
		if d.SeenAndRecord(ctx, Identity(r)) {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}
