package notes

import "errors"

// Sentinel errors for note attachment.
var (
	ErrNoSessions       = errors.New("no sessions in week")
	ErrWeekHasSessions  = errors.New("week already has sessions")
	ErrInvalidTarget    = errors.New("note target needs a player and a week")
	ErrEmptyPlaceholder = errors.New("placeholder note text is empty")
	ErrWriteFailed      = errors.New("note write failed")
	ErrUnknownMode      = errors.New("unknown note mode")
)
