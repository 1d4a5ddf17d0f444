package seed

import "errors"

// Sentinel errors for seeding.
var (
	ErrUpload   = errors.New("session upload failed")
	ErrRejected = errors.New("service rejected generated rows")
)
