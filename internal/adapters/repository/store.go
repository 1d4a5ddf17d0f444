// Package repository provides session stores: a SQL store for postgres and
// sqlite, and an in-memory store for tests and local runs.
package repository

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/okian/almog/internal/domain/model"
)

// Reader is the bulk read side. FetchAll returns the complete record set,
// sorted by date ascending, with duplicate rows removed.
type Reader interface {
	FetchAll(ctx context.Context) ([]model.SessionRecord, error)
}

// Writer is the note write side. Date ranges are inclusive.
type Writer interface {
	CountSessions(ctx context.Context, player string, from, to civil.Date) (int, error)
	UpdateNotes(ctx context.Context, player string, from, to civil.Date, text string) (int, error)
	InsertPlaceholder(ctx context.Context, rec model.SessionRecord) error
}

// Loader bulk-inserts records; used by the seeder.
type Loader interface {
	Insert(ctx context.Context, recs []model.SessionRecord) error
}

// Store combines every capability a backend provides.
type Store interface {
	Reader
	Writer
	Loader
	Close() error
}
