package executor

import "fmt"

// Code classifies executor failures. The queue retries temporary codes and
// fails permanently on the rest.
type Code string

const (
	CodeTableNotFound       Code = "table_not_found"
	CodeColumnNotFound      Code = "column_not_found"
	CodeColumnExists        Code = "column_exists"
	CodeTypeConversion      Code = "type_conversion"
	CodeConstraintViolation Code = "constraint_violation"
	CodeLockTimeout         Code = "lock_timeout"
	CodeConnection          Code = "connection"
)

// Error is a typed executor failure.
type Error struct {
	Code   Code
	Op     string
	Table  string
	Column string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("executor: %s %s.%s: %s", e.Op, e.Table, e.Column, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether the failure is worth retrying. Lock contention
// and connection loss resolve on their own; everything else reflects a
// state that a retry cannot change.
func (e *Error) Temporary() bool {
	switch e.Code {
	case CodeLockTimeout, CodeConnection:
		return true
	}
	return false
}
