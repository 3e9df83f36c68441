package compiler

import (
	"errors"
	"fmt"
)

// CompileError reports why a program could not be turned into a plan.
type CompileError struct {
	// Code is the validation code of the first problem (E2xx).
	Code string

	// Relation is the relation the problem was found in, if any.
	Relation string

	// Message is a human-readable description.
	Message string

	// Problems holds every validation error when compilation was rejected
	// by Validate.
	Problems []ValidationError
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Relation != "" {
		msg = fmt.Sprintf("%s (relation=%s)", msg, e.Relation)
	}
	if n := len(e.Problems); n > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, n-1)
	}
	return msg
}

// IsCompileError returns true if err is (or wraps) a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// ValidationErrors returns the validation problems carried by err, or nil.
func ValidationErrors(err error) []ValidationError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Problems
	}
	return nil
}

func newValidationFailure(errs []ValidationError) *CompileError {
	first := errs[0]
	return &CompileError{
		Code:     first.Code,
		Relation: first.Relation,
		Message:  first.Field + ": " + first.Message,
		Problems: errs,
	}
}
