package horizon

import "errors"

// Typed errors separating upstream taxonomy classes. Not-found and
// bad-request surface immediately; transport failures are retried and wrapped
// in ErrUpstream once retries are exhausted.
var (
	ErrAccountNotFound = errors.New("account not found on network")
	ErrNotFound        = errors.New("resource not found on network")
	ErrBadRequest      = errors.New("bad request to horizon")
	ErrUpstream        = errors.New("horizon unavailable")
)
