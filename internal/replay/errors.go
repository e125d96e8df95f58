package replay

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedEvent marks structurally invalid input. It aborts the batch.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnrecognizedOperation marks an op outside create/update when strict ops are enabled.
	ErrUnrecognizedOperation = errors.New("unrecognized operation")
)

// MalformedEventError names the event that stopped a reconstruction.
type MalformedEventError struct {
	Source string
	Seq    int
	Field  string
	Err    error
}

func (e *MalformedEventError) Error() string {
	src := e.Source
	if src == "" {
		src = fmt.Sprintf("event #%d", e.Seq)
	}
	return fmt.Sprintf("%s: %s: %v", src, e.Field, e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}
