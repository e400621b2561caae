package pkg

import (
	"errors"
)

// Error taxonomy of the coordination layer. Errors returned by the store,
// entries, nodes and the manager wrap one of these sentinels, so callers match
// them with errors.Is.
var (
	// ErrConnectivity means the store backend could not be reached
	ErrConnectivity = errors.New("store unreachable")
	// ErrNotFound means a key was absent where presence was assumed
	ErrNotFound = errors.New("key not found")
	// ErrMalformed means a stored value could not be parsed as the expected kind
	ErrMalformed = errors.New("malformed value")
	// ErrProcessLiveness means an OS process lookup was inconclusive
	ErrProcessLiveness = errors.New("process liveness unknown")
	// ErrUsage means the command line was invoked incorrectly
	ErrUsage = errors.New("usage error")

	// ErrUnknownField means an entry field is not declared by its schema
	ErrUnknownField = errors.New("unknown entry field")
	// ErrKindMismatch means a value does not match the field's declared kind
	ErrKindMismatch = errors.New("value does not match field kind")

	// ErrStop can be returned by a node loop body to end the loop cleanly
	ErrStop = errors.New("stop loop")
	// ErrTimeout means a bounded wait expired before its condition held
	ErrTimeout = errors.New("wait timed out")
)

// IsConnectivity reports whether err stems from an unreachable store
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// IsNotFound reports whether err stems from an absent key
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMalformed reports whether err stems from an unparsable stored value
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
