package delta

import "errors"

var (
	// ErrLengthMismatch is returned when an edit spans more of the document than exists.
	ErrLengthMismatch = errors.New("delta: edit length does not match document")

	// ErrNotDocument is returned when a document is expected but the delta retains or deletes.
	ErrNotDocument = errors.New("delta: not a document")

	// ErrInvalidOp is returned when a wire op is not exactly one of insert, retain or delete.
	ErrInvalidOp = errors.New("delta: invalid op")
)
