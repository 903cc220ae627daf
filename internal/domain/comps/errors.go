package comps

import "errors"

var (
	ErrEmptyPartition       = errors.New("no historical records for role")
	ErrSchemaDrift          = errors.New("feature column missing from every historical record")
	ErrInvalidNeighbors     = errors.New("neighbor count must be positive")
	ErrInvalidRollingWeight = errors.New("rolling weight must be within [0, 1]")
)
