// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/almog/internal/adapters/repository"
	"github.com/okian/almog/internal/domain/aggregate"
	"github.com/okian/almog/internal/domain/ingest"
	"github.com/okian/almog/internal/domain/notes"
	"github.com/okian/almog/internal/domain/tier"
	"github.com/okian/almog/internal/domain/week"
	"github.com/okian/almog/internal/pipeline"
	"github.com/okian/almog/pkg/logger"
	"github.com/okian/almog/pkg/metrics"
)

// Store drivers accepted by WithStoreDriver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Service fetches sessions, runs the pipeline per request and writes notes.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	attacher *notes.Attacher

	// Store configuration
	driver           string
	dsn              string
	table            string
	pageSize         int
	breakerTimeout   time.Duration
	breakerThreshold int

	// Pipeline defaults
	excluded        []string
	notesPolicy     aggregate.NotesPolicy
	distancePolicy  tier.Policy
	intensityPolicy tier.Policy

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a ready store; Start will not open one.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreDriver selects the store Start opens.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.driver = driver
		}
		s.dsn = dsn
	}
}

// WithSessionsTable sets the SQL table name.
func WithSessionsTable(table string) Option {
	return func(s *Service) {
		if table != "" {
			s.table = table
		}
	}
}

// WithPageSize sets the bulk read page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithBreaker configures the SQL store circuit breaker.
func WithBreaker(timeout time.Duration, threshold int) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.breakerTimeout = timeout
		}
		if threshold > 0 {
			s.breakerThreshold = threshold
		}
	}
}

// WithExcludedPlayers sets names dropped from every run.
func WithExcludedPlayers(names []string) Option {
	return func(s *Service) {
		s.excluded = append([]string(nil), names...)
	}
}

// WithNotesPolicy sets the default notes policy.
func WithNotesPolicy(p aggregate.NotesPolicy) Option {
	return func(s *Service) {
		if p.Valid() {
			s.notesPolicy = p
		}
	}
}

// WithTierPolicies sets the default distance and intensity tier policies.
// Unknown names keep the current policy.
func WithTierPolicies(distance, intensity string) Option {
	return func(s *Service) {
		if p, err := tier.Lookup(distance); err == nil {
			s.distancePolicy = p
		}
		if p, err := tier.Lookup(intensity); err == nil {
			s.intensityPolicy = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		driver:          DriverMemory,
		table:           "sessions",
		pageSize:        1000,
		notesPolicy:     aggregate.FirstNonEmpty,
		distancePolicy:  tier.Strict20100,
		intensityPolicy: tier.Graded8597,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}
	s.attacher = notes.NewAttacher(s.store)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "squad service started",
		logger.String("driver", s.driver),
		logger.Int("excluded", len(s.excluded)),
		logger.String("distance_policy", s.distancePolicy.Name()),
		logger.String("intensity_policy", s.intensityPolicy.Name()),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.driver {
	case DriverMemory:
		return repository.NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		store, err := repository.Open(ctx, repository.Dialect(s.driver), s.dsn,
			repository.WithTable(s.table),
			repository.WithPageSize(s.pageSize),
			repository.WithBreaker(s.breakerTimeout, s.breakerThreshold),
		)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", s.driver, err)
		}
		if s.driver == DriverSQLite {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("prepare sqlite store: %w", err)
			}
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: %q", repository.ErrUnknownDriver, s.driver)
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "squad service stopped")
}

// Run fetches the full record set and runs the pipeline. Service-level
// exclusions and policies apply unless f overrides the policies.
func (s *Service) Run(ctx context.Context, f pipeline.Filters) (pipeline.Result, error) {
	store, err := s.readyStore()
	if err != nil {
		return pipeline.Result{}, err
	}

	start := time.Now()
	records, err := store.FetchAll(ctx)
	if err != nil {
		s.logger.Error(ctx, "fetching sessions failed", logger.Error(err))
		return pipeline.Result{}, fmt.Errorf("fetch sessions: %w", err)
	}

	f = s.withDefaults(f)
	res := pipeline.Run(records, f)

	metrics.RecordPipelineRun(string(f.Grouping), float64(time.Since(start).Microseconds())/1000)
	metrics.RecordRecordsExcluded(res.Excluded)
	metrics.RecordAggregatesProduced(len(res.Aggregates))
	if res.NoData {
		metrics.RecordEmptyDataset()
	}
	s.logger.Debug(ctx, "pipeline run",
		logger.Int("records", res.Ingested),
		logger.Int("excluded", res.Excluded),
		logger.Int("aggregates", len(res.Aggregates)),
		logger.Bool("no_data", res.NoData),
	)
	return res, nil
}

// Weeks lists every week with data, ordered by start date.
func (s *Service) Weeks(ctx context.Context) ([]week.Key, error) {
	res, err := s.Run(ctx, pipeline.Filters{})
	if err != nil {
		return nil, err
	}
	return res.Weeks, nil
}

// AttachNote writes a note for (player, week) through the attacher.
func (s *Service) AttachNote(ctx context.Context, mode notes.Mode, player string, k week.Key, text string) (notes.Result, error) {
	if _, err := s.readyStore(); err != nil {
		return notes.Result{}, err
	}
	s.mu.RLock()
	a := s.attacher
	s.mu.RUnlock()
	return a.Do(ctx, mode, player, k, text)
}

// Ingest validates rows and appends the accepted ones to the store.
// Rejected rows are returned alongside the accepted count.
func (s *Service) Ingest(ctx context.Context, rows []ingest.Row) (int, []error, error) {
	store, err := s.readyStore()
	if err != nil {
		return 0, nil, err
	}
	recs, rejected := ingest.Records(rows)
	for i := range recs {
		if recs[i].ID == "" {
			recs[i].ID = uuid.NewString()
		}
	}
	if len(recs) > 0 {
		if err := store.Insert(ctx, recs); err != nil {
			s.logger.Error(ctx, "ingest failed", logger.Int("rows", len(recs)), logger.Error(err))
			return 0, rejected, fmt.Errorf("insert sessions: %w", err)
		}
	}
	s.logger.Info(ctx, "sessions ingested",
		logger.Int("accepted", len(recs)),
		logger.Int("rejected", len(rejected)),
	)
	return len(recs), rejected, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"driver":           s.driver,
		"excluded_players": len(s.excluded),
		"notes_policy":     string(s.notesPolicy),
		"distance_policy":  s.distancePolicy.Name(),
		"intensity_policy": s.intensityPolicy.Name(),
	}
	if s.started {
		stats["uptime_seconds"] = int(time.Since(s.startedAt).Seconds())
	}
	if totals, err := metrics.Totals(); err == nil {
		stats["metrics"] = totals
	}
	return stats
}

func (s *Service) readyStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) withDefaults(f pipeline.Filters) pipeline.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make([]string, 0, len(s.excluded)+len(f.ExcludedPlayers))
	excluded = append(excluded, s.excluded...)
	f.ExcludedPlayers = append(excluded, f.ExcludedPlayers...)
	if !f.Grouping.Valid() {
		f.Grouping = aggregate.PlayerWeek
	}
	if !f.NotesPolicy.Valid() {
		f.NotesPolicy = s.notesPolicy
	}
	if f.DistancePolicy == nil {
		f.DistancePolicy = s.distancePolicy
	}
	if f.IntensityPolicy == nil {
		f.IntensityPolicy = s.intensityPolicy
	}
	return f
}
