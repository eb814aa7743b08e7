package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, transports, and sessions
// return these (optionally wrapped) and the cargo service translates them into
// coded domain errors:
// - ErrNotFound: record or snapshot does not exist in the backing store
// - ErrConflict: identifier already taken
// - ErrClosed: session or connection already shut down
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation failures (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrClosed      = errors.New("closed")
	ErrUnavailable = errors.New("unavailable")
)
