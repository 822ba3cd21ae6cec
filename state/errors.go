package state

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation marks structural corruption. It is never recovered
// locally; the offending operation is aborted and the error surfaces to the driver.
var ErrInvariantViolation = errors.New("invariant violation")

var (
	ErrLastNode          = fmt.Errorf("%w: cannot delete the last remaining node", ErrInvariantViolation)
	ErrDimensionMismatch = fmt.Errorf("%w: distance table dimension mismatch", ErrInvariantViolation)
	ErrMissingLink       = fmt.Errorf("%w: next hop has no live link", ErrInvariantViolation)
	ErrAsymmetric        = fmt.Errorf("%w: matrix is not symmetric", ErrInvariantViolation)
	ErrIncidence         = fmt.Errorf("%w: incident link set out of sync", ErrInvariantViolation)
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrLinkNotFound  = errors.New("link not found")
	ErrSelfLink      = errors.New("link endpoints must differ")
	ErrDuplicateLink = errors.New("link already exists")
)
