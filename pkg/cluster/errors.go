package cluster

import (
	"errors"
	"fmt"
)

// ErrClusterNotFound reports that no cluster with the requested name exists.
var ErrClusterNotFound = errors.New("cluster not found")

// ErrInvalidName reports a cluster name that is not a valid DNS label.
var ErrInvalidName = errors.New("invalid cluster name")

// OperationError wraps a failed cluster operation with its context.
type OperationError struct {
	Op      string
	Cluster string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Cluster == "" {
		return fmt.Sprintf("cluster %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cluster %s %q: %v", e.Op, e.Cluster, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
