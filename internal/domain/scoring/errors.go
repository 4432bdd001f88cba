package scoring

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNoData         = errors.New("metric not in snapshot")
	ErrInvalidValue   = errors.New("raw value outside log domain")
	ErrNegativeWeight = errors.New("group weight must be a non-negative number")
	ErrUnknownKind    = errors.New("unknown entity kind")
)

// NoDataError is returned when a metric id is not part of the snapshot's metric set.
// This is a configuration error, not a data gap.
type NoDataError struct {
	MetricID int64
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("metric %d: %v", e.MetricID, ErrNoData)
}

// Is lets errors.Is(err, ErrNoData) match.
func (e *NoDataError) Is(target error) bool { return target == ErrNoData }
