package calculator

import "errors"

// Calculation errors are raised immediately at the point of bad input.
// They indicate misconfiguration, not expected runtime conditions, and
// callers should not retry them.
var (
	ErrInvalidTaxMode           = errors.New("invalid tax mode")
	ErrUnknownSplitType         = errors.New("unknown split type")
	ErrInvalidTierConfiguration = errors.New("invalid tier configuration")
	ErrInvalidCommissionRate    = errors.New("invalid commission rate")
)
