package master

import "errors"

var (
	// ErrNotFound is returned by Registry.Lookup for an unknown long address.
	ErrNotFound = errors.New("allocation not found")
	ErrClosed   = errors.New("registry closed")
)
