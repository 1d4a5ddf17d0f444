package tier

import "errors"

// ErrUnknownPolicy is returned by Lookup for an unregistered policy name.
var ErrUnknownPolicy = errors.New("unknown tier policy")
