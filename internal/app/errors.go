package service

import "github.com/okian/studyrank/internal/domain/types"

// ErrInvalidRequest marks caller errors such as negative weights or limits.
var ErrInvalidRequest = types.ErrInvalidRequest
