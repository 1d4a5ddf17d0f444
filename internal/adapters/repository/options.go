package repository

import (
	"time"

	"github.com/okian/almog/internal/domain/dedupe"
)

const (
	defaultTable            = "sessions"
	defaultPageSize         = 1000
	defaultBreakerTimeout   = 30 * time.Second
	defaultBreakerThreshold = 5
)

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithTable sets the sessions table name.
func WithTable(name string) Option {
	return func(s *SQLStore) {
		if name != "" {
			s.table = name
		}
	}
}

// WithPageSize sets the LIMIT used per page by FetchAll.
func WithPageSize(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithBreaker configures the circuit breaker: it opens after threshold
// consecutive failures and probes again after timeout.
func WithBreaker(timeout time.Duration, threshold int) Option {
	return func(s *SQLStore) {
		if timeout > 0 {
			s.breakerTimeout = timeout
		}
		if threshold > 0 {
			s.breakerThreshold = threshold
		}
	}
}

// WithDeduper overrides how FetchAll builds its per-call deduper.
func WithDeduper(fn func() dedupe.Deduper) Option {
	return func(s *SQLStore) {
		if fn != nil {
			s.newDeduper = fn
		}
	}
}
