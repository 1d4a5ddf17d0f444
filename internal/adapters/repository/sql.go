package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
	"github.com/sony/gobreaker"

	"github.com/okian/almog/internal/domain/dedupe"
	"github.com/okian/almog/internal/domain/ingest"
	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/pkg/logger"
	"github.com/okian/almog/pkg/metrics"
)

// Dialect selects placeholder style and column types.
type Dialect string

// Supported dialects. They double as database/sql driver names.
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var columns = []string{
	"id", "player_name", "team", "match_id", "session_date",
	"total_distance", "high_speed_distance", "sprint_distance",
	"acceleration_efforts", "deceleration_efforts", "max_velocity",
	"total_duration", "target_distance_km", "target_intensity_pct", "notes",
}

// SQLStore reads and writes sessions through database/sql. Every call runs
// through a circuit breaker so a dead database fails fast with ErrUnavailable.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect

	table            string
	pageSize         int
	breakerTimeout   time.Duration
	breakerThreshold int
	newDeduper       func() dedupe.Deduper

	breaker *gobreaker.CircuitBreaker
}

// Open connects to dsn with the driver matching dialect and pings it.
func Open(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*SQLStore, error) {
	if dialect != Postgres && dialect != SQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrUnavailable, dialect, err)
	}
	return NewSQLStore(db, dialect, opts...)
}

// NewSQLStore wraps an existing connection pool.
func NewSQLStore(db *sql.DB, dialect Dialect, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		db:               db,
		dialect:          dialect,
		table:            defaultTable,
		pageSize:         defaultPageSize,
		breakerTimeout:   defaultBreakerTimeout,
		breakerThreshold: defaultBreakerThreshold,
		newDeduper:       func() dedupe.Deduper { return dedupe.NewInMemoryDeduper() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if !tableName.MatchString(s.table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, s.table)
	}

	threshold := uint32(s.breakerThreshold)
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sessions-" + s.table,
		MaxRequests: 1,
		Timeout:     s.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			logger.Named("repository").Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	return s, nil
}

// EnsureSchema creates the sessions table when it does not exist. It is a
// bootstrap for local sqlite files and tests, not a migration tool.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	dateType, numType := "DATE", "DOUBLE PRECISION"
	if s.dialect == SQLite {
		dateType, numType = "TEXT", "REAL"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	player_name TEXT NOT NULL,
	team TEXT NOT NULL DEFAULT '',
	match_id TEXT NOT NULL DEFAULT '',
	session_date %[2]s NOT NULL,
	total_distance %[3]s NOT NULL DEFAULT 0,
	high_speed_distance %[3]s NOT NULL DEFAULT 0,
	sprint_distance %[3]s NOT NULL DEFAULT 0,
	acceleration_efforts %[3]s NOT NULL DEFAULT 0,
	deceleration_efforts %[3]s NOT NULL DEFAULT 0,
	max_velocity %[3]s NOT NULL DEFAULT 0,
	total_duration TEXT NOT NULL DEFAULT '00:00:00',
	target_distance_km %[3]s NOT NULL DEFAULT 0,
	target_intensity_pct %[3]s NOT NULL DEFAULT 0,
	notes TEXT
)`, s.table, dateType, numType)
	_, err := s.exec(ctx, "ensure_schema", ddl)
	return err
}

// FetchAll pages through the table ordered by date then id until a short
// page arrives. Rows repeated across pages are dropped; rows without a
// player or a date are logged and skipped.
func (s *SQLStore) FetchAll(ctx context.Context) ([]model.SessionRecord, error) {
	start := time.Now()
	log := logger.Named("repository")
	query := s.rebind(fmt.Sprintf("SELECT %s FROM %s ORDER BY session_date, id LIMIT ? OFFSET ?",
		strings.Join(columns, ", "), s.table))

	seen := s.newDeduper()
	out := make([]model.SessionRecord, 0)
	var rejected, duplicates int

	for offset := 0; ; offset += s.pageSize {
		page, err := s.fetchPage(ctx, query, offset)
		if err != nil {
			metrics.RecordStoreError("fetch_all")
			return nil, err
		}
		metrics.RecordStorePage()

		recs, errs := ingest.Records(page)
		for _, e := range errs {
			log.Warn(ctx, "skipping session row", logger.Int("offset", offset), logger.Error(e))
		}
		rejected += len(errs)

		recs, dropped := dedupe.Records(ctx, seen, recs)
		duplicates += dropped
		out = append(out, recs...)

		if len(page) < s.pageSize {
			break
		}
	}

	metrics.RecordStoreDuplicateRows(duplicates)
	metrics.RecordRecordsIngested(len(out))
	metrics.RecordStoreLatency("fetch_all", float64(time.Since(start).Microseconds())/1000)
	log.Debug(ctx, "sessions fetched",
		logger.Int("records", len(out)),
		logger.Int("duplicates", duplicates),
		logger.Int("rejected", rejected))
	return out, nil
}

func (s *SQLStore) fetchPage(ctx context.Context, query string, offset int) ([]ingest.Row, error) {
	v, err := s.breaker.Execute(func() (interface{}, error) {
		rows, err := s.db.QueryContext(ctx, query, s.pageSize, offset)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanRows(rows)
	})
	if err != nil {
		return nil, s.wrap("fetch_all", err)
	}
	return v.([]ingest.Row), nil
}

// scanRows reads each row into a column-name map for ingest.
func scanRows(rows *sql.Rows) ([]ingest.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []ingest.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(ingest.Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountSessions counts the player's rows dated within [from, to].
func (s *SQLStore) CountSessions(ctx context.Context, player string, from, to civil.Date) (int, error) {
	query := s.rebind(fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE player_name = ? AND session_date BETWEEN ? AND ?", s.table))
	start := time.Now()
	v, err := s.breaker.Execute(func() (interface{}, error) {
		var n int
		err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(player), from.String(), to.String()).Scan(&n)
		return n, err
	})
	metrics.RecordStoreLatency("count", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError("count")
		return 0, s.wrap("count", err)
	}
	return v.(int), nil
}

// UpdateNotes overwrites notes on the player's rows within [from, to] and
// returns the affected row count.
func (s *SQLStore) UpdateNotes(ctx context.Context, player string, from, to civil.Date, text string) (int, error) {
	query := s.rebind(fmt.Sprintf(
		"UPDATE %s SET notes = ? WHERE player_name = ? AND session_date BETWEEN ? AND ?", s.table))
	res, err := s.exec(ctx, "update_notes", query, text, strings.TrimSpace(player), from.String(), to.String())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update_notes: rows affected: %w", err)
	}
	return int(n), nil
}

// InsertPlaceholder writes a single placeholder row.
func (s *SQLStore) InsertPlaceholder(ctx context.Context, rec model.SessionRecord) error {
	return s.Insert(ctx, []model.SessionRecord{rec})
}

// Insert writes recs in one transaction.
func (s *SQLStore) Insert(ctx context.Context, recs []model.SessionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	query := s.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(columns, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")))

	start := time.Now()
	_, err := s.breaker.Execute(func() (interface{}, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		defer stmt.Close()
		for _, r := range recs {
			if _, err := stmt.ExecContext(ctx, values(r)...); err != nil {
				_ = tx.Rollback()
				return nil, err
			}
		}
		return nil, tx.Commit()
	})
	metrics.RecordStoreLatency("insert", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError("insert")
		return s.wrap("insert", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError(op)
		return nil, s.wrap(op, err)
	}
	return v.(sql.Result), nil
}

// wrap marks breaker rejections as ErrUnavailable.
func (s *SQLStore) wrap(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func values(r model.SessionRecord) []any {
	var notes any
	if r.Notes != "" {
		notes = r.Notes
	}
	return []any{
		r.ID, r.PlayerName, r.Team, r.MatchID, r.Date.String(),
		r.TotalDistance, r.HighSpeedDistance, r.SprintDistance,
		r.AccelerationEfforts, r.DecelerationEfforts, r.MaxVelocity,
		model.FormatClock(r.TotalDuration), r.TargetDistanceKm, r.TargetIntensityPct, notes,
	}
}
