package store

import "errors"

// ErrConflict is returned when a concurrent writer stored the same context id
// for the subject first.
var ErrConflict = errors.New("conflict")
