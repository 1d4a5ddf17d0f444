// Package notes attaches coach annotations to (player, week) cells. It is
// the only code path that writes to the session store.
package notes

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/internal/domain/week"
	"github.com/okian/almog/pkg/logger"
	"github.com/okian/almog/pkg/metrics"
)

// Write kinds, used as metric labels.
const (
	KindUpdate      = "update"
	KindPlaceholder = "placeholder"
)

// Store is the persistence the attacher needs. Date ranges are inclusive.
type Store interface {
	CountSessions(ctx context.Context, player string, from, to civil.Date) (int, error)
	UpdateNotes(ctx context.Context, player string, from, to civil.Date, text string) (int, error)
	InsertPlaceholder(ctx context.Context, rec model.SessionRecord) error
}

// Result describes what a write did.
type Result struct {
	Kind        string               `json:"kind"`
	Updated     int                  `json:"updated"`
	Placeholder *model.SessionRecord `json:"placeholder,omitempty"`
}

// Option configures an Attacher.
type Option func(*Attacher)

// WithIDGenerator overrides how placeholder ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(a *Attacher) {
		if fn != nil {
			a.newID = fn
		}
	}
}

// Attacher writes notes through a Store. Failures are returned to the
// caller without retry; concurrent edits are last-write-wins.
type Attacher struct {
	store Store
	newID func() string
}

// NewAttacher constructs an Attacher over store.
func NewAttacher(store Store, opts ...Option) *Attacher {
	a := &Attacher{store: store, newID: uuid.NewString}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AttachNote sets text on every session of player inside k.
func (a *Attacher) AttachNote(ctx context.Context, player string, k week.Key, text string) (Result, error) {
	player, err := validate(player, k)
	if err != nil {
		return Result{}, err
	}
	n, err := a.count(ctx, KindUpdate, player, k)
	if err != nil {
		return Result{}, err
	}
	if n == 0 {
		return Result{}, fmt.Errorf("%w: %s, %s", ErrNoSessions, player, k)
	}
	return a.update(ctx, player, k, text)
}

// AttachNoteToMissingWeek inserts one zero-valued placeholder session dated
// to the week's Sunday so the cell shows up in later aggregations.
func (a *Attacher) AttachNoteToMissingWeek(ctx context.Context, player string, k week.Key, text string) (Result, error) {
	player, err := validate(player, k)
	if err != nil {
		return Result{}, err
	}
	n, err := a.count(ctx, KindPlaceholder, player, k)
	if err != nil {
		return Result{}, err
	}
	if n > 0 {
		return Result{}, fmt.Errorf("%w: %s, %s", ErrWeekHasSessions, player, k)
	}
	return a.insert(ctx, player, k, text)
}

// Attach updates the week when it has sessions and inserts a placeholder otherwise.
func (a *Attacher) Attach(ctx context.Context, player string, k week.Key, text string) (Result, error) {
	player, err := validate(player, k)
	if err != nil {
		return Result{}, err
	}
	n, err := a.count(ctx, KindUpdate, player, k)
	if err != nil {
		return Result{}, err
	}
	if n > 0 {
		return a.update(ctx, player, k, text)
	}
	return a.insert(ctx, player, k, text)
}

// Mode selects which attachment path a request takes.
type Mode string

// Supported modes.
const (
	ModeAuto        Mode = "auto"
	ModeUpdate      Mode = "update"
	ModeMissingWeek Mode = "missing_week"
)

// Do dispatches on mode; the empty mode means ModeAuto.
func (a *Attacher) Do(ctx context.Context, mode Mode, player string, k week.Key, text string) (Result, error) {
	switch mode {
	case ModeAuto, "":
		return a.Attach(ctx, player, k, text)
	case ModeUpdate:
		return a.AttachNote(ctx, player, k, text)
	case ModeMissingWeek:
		return a.AttachNoteToMissingWeek(ctx, player, k, text)
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// Placeholder builds the zero-valued record used for a week without sessions.
func Placeholder(id, player string, k week.Key, text string) model.SessionRecord {
	return model.SessionRecord{
		ID:         id,
		PlayerName: player,
		Date:       k.Start,
		Notes:      text,
	}
}

func (a *Attacher) count(ctx context.Context, kind, player string, k week.Key) (int, error) {
	n, err := a.store.CountSessions(ctx, player, k.Start, k.End)
	if err != nil {
		metrics.RecordNoteError(kind)
		return 0, fmt.Errorf("%w: count %s, %s: %w", ErrWriteFailed, player, k, err)
	}
	return n, nil
}

func (a *Attacher) update(ctx context.Context, player string, k week.Key, text string) (Result, error) {
	updated, err := a.store.UpdateNotes(ctx, player, k.Start, k.End, strings.TrimSpace(text))
	if err != nil {
		metrics.RecordNoteError(KindUpdate)
		logger.Named("notes").Error(ctx, "note update failed",
			logger.String("player", player), logger.String("week", k.Label()), logger.Error(err))
		return Result{}, fmt.Errorf("%w: update %s, %s: %w", ErrWriteFailed, player, k, err)
	}
	metrics.RecordNoteWrite(KindUpdate)
	logger.Named("notes").Info(ctx, "note updated",
		logger.String("player", player), logger.String("week", k.Label()), logger.Int("rows", updated))
	return Result{Kind: KindUpdate, Updated: updated}, nil
}

func (a *Attacher) insert(ctx context.Context, player string, k week.Key, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyPlaceholder
	}
	rec := Placeholder(a.newID(), player, k, text)
	if err := a.store.InsertPlaceholder(ctx, rec); err != nil {
		metrics.RecordNoteError(KindPlaceholder)
		logger.Named("notes").Error(ctx, "placeholder insert failed",
			logger.String("player", player), logger.String("week", k.Label()), logger.Error(err))
		return Result{}, fmt.Errorf("%w: insert %s, %s: %w", ErrWriteFailed, player, k, err)
	}
	metrics.RecordNoteWrite(KindPlaceholder)
	logger.Named("notes").Info(ctx, "placeholder inserted",
		logger.String("player", player), logger.String("week", k.Label()), logger.String("id", rec.ID))
	return Result{Kind: KindPlaceholder, Placeholder: &rec}, nil
}

func validate(player string, k week.Key) (string, error) {
	player = strings.TrimSpace(player)
	if player == "" || k.IsZero() {
		return "", ErrInvalidTarget
	}
	return player, nil
}
