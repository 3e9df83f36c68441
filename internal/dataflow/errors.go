package dataflow

import (
	"errors"
	"fmt"
)

// GraphError reports a misuse of the graph construction API or a broken
// runtime invariant.
//
// Graph errors are programming errors. The runtime raises them with panic
// rather than returning them, in the same way an out-of-range slice index
// would. Callers that build graphs from untrusted input should validate
// that input first (see the compiler package).
type GraphError struct {
	// Code identifies the error category.
	Code GraphErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the arena index of the affected node, or -1.
	Node int
}

// GraphErrorCode categorizes graph errors.
type GraphErrorCode string

const (
	// ErrCodeForeignPort indicates a port from another graph (or a zero port).
	ErrCodeForeignPort GraphErrorCode = "FOREIGN_PORT"

	// ErrCodeGraphSealed indicates construction after Run has started.
	ErrCodeGraphSealed GraphErrorCode = "GRAPH_SEALED"

	// ErrCodeBadPort indicates a port index the target node does not have.
	ErrCodeBadPort GraphErrorCode = "BAD_PORT"

	// ErrCodeTypeMismatch indicates a queued value of the wrong type.
	ErrCodeTypeMismatch GraphErrorCode = "TYPE_MISMATCH"
)

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Node >= 0 {
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsGraphError returns true if err is (or wraps) a *GraphError.
func IsGraphError(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge)
}

func newGraphError(code GraphErrorCode, node int, format string, args ...any) *GraphError {
	return &GraphError{
		Code:    code,
		Node:    node,
		Message: fmt.Sprintf(format, args...),
	}
}
