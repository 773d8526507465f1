package audit

import (
	"errors"
	"fmt"
)

// ErrBufferFull reports that the recorder's async buffer was full and a
// record was dropped.
var ErrBufferFull = errors.New("audit buffer full")

// StorageError wraps a failure in an audit storage backend.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a StorageError for the given backend and
// operation.
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}
