package models

import "errors"

// Domain error sentinels shared by the cache and valuation layers.
var (
	// ErrNoData signals that no cache entry exists and the upstream could
	// not supply one. Callers should surface "no data available, try again
	// later" rather than a raw upstream error.
	ErrNoData = errors.New("no data available")

	// ErrValidation signals a malformed symbol, period, or holding value.
	ErrValidation = errors.New("validation failed")
)
