package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrUnavailable   = errors.New("session store unavailable")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrInvalidTable  = errors.New("invalid sessions table name")
)
