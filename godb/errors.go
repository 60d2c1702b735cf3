package godb

import "fmt"

// GoDBErrorCode identifies the kind of failure a core operation raised. The
// core never recovers from these internally; they propagate to the caller.
type GoDBErrorCode int

const (
	TypeMismatchError GoDBErrorCode = iota
	AmbiguousNameError
	ParseError
	IncompatibleTypesError
	MalformedDataError

	// PageOutOfBoundsError is raised when a page number is negative or >=
	// the file's page count.
	PageOutOfBoundsError
	// WrongTableError is raised when a page ID's table ID does not match
	// the file servicing the request.
	WrongTableError
	// SchemaMismatchError is raised when a tuple's descriptor does not
	// match the descriptor of the page or file it is applied against.
	SchemaMismatchError
	// PageFullError is raised when an insert finds no empty slot.
	PageFullError
	// NotOnThisPageError is raised when a record ID's page does not match
	// the page it was looked up on.
	NotOnThisPageError
	// SlotAlreadyEmptyError is raised when deleting an already-empty slot.
	SlotAlreadyEmptyError
	// SlotEmptyError is raised when reading an unoccupied slot.
	SlotEmptyError
	// NoCleanVictimError is raised when every resident page is dirty and
	// none can be evicted under NO-STEAL.
	NoCleanVictimError
	// DeadlockError is raised when granting a lock would close a cycle in
	// the wait-for graph.
	DeadlockError
	// IoFailureError wraps an underlying disk I/O failure.
	IoFailureError
)

// GoDBError is the concrete error type raised by the core. Code identifies
// the kind of failure for callers that want to switch on it (e.g. retry on
// DeadlockError); Msg carries human-readable detail.
type GoDBError struct {
	Code GoDBErrorCode
	Msg  string
}

func (e GoDBError) Error() string {
	return e.Msg
}

func newGoDBError(code GoDBErrorCode, format string, args ...any) GoDBError {
	return GoDBError{code, fmt.Sprintf(format, args...)}
}
