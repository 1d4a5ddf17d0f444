package week

import (
	"errors"
	"fmt"
)

// Sentinel kinds for week key errors.
var (
	ErrInvalidKey = errors.New("invalid week key")
	ErrOutOfRange = fmt.Errorf("%w: week outside years 1-9999", ErrInvalidKey)
)
