package types

import "errors"

// ErrInvalidRequest marks caller errors such as negative weights or limits.
var ErrInvalidRequest = errors.New("invalid request")
