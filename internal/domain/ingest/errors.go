package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrMissingPlayer = errors.New("row has no player name")
	ErrMissingDate   = errors.New("row has no usable date")
)
