package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: a uniqueness guard rejected the write (e.g. second pending request)
//   - ErrInvalidState: a conditional update found the record in another state
//   - ErrUnavailable: the store could not be reached
//
// Anything else a store returns is treated as an availability failure by callers.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
