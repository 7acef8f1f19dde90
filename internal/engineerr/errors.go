// Package engineerr defines the stable error taxonomy shared by every
// engine component. Names, not codes or messages, are the contract: callers
// should branch on Kind (via errors.As), never on Error()'s text.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the engine's stable error categories.
type Kind string

const (
	KindValidation          Kind = "ValidationError"
	KindConstraint          Kind = "ConstraintError"
	KindSchemaMismatch      Kind = "SchemaMismatchError"
	KindSchemaLoad          Kind = "SchemaLoadError"
	KindFunctionResolution  Kind = "FunctionResolutionError"
	KindCollectionNotFound  Kind = "CollectionNotFoundError"
	KindCollectionExists    Kind = "CollectionAlreadyExistsError"
	KindDatabase            Kind = "DatabaseError"
)

// code is informative only (spec.md §6: "Names — not code or message — are
// the stable contract"); it is surfaced for telemetry and log readability.
var code = map[Kind]int{
	KindValidation:         1000,
	KindConstraint:         1001,
	KindSchemaMismatch:     1002,
	KindSchemaLoad:         1003,
	KindFunctionResolution: 1004,
	KindCollectionNotFound: 1005,
	KindCollectionExists:   1006,
	KindDatabase:           1007,
}

// Error is the concrete error type raised at every engine boundary.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, engineerr.Validation("")) match on Kind alone,
// ignoring Message/Cause — useful in tests that only care about the kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func new_(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code[kind], Message: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code[kind], Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Validation(format string, args ...any) *Error { return new_(KindValidation, format, args...) }
func Constraint(format string, args ...any) *Error { return new_(KindConstraint, format, args...) }
func SchemaMismatch(format string, args ...any) *Error {
	return new_(KindSchemaMismatch, format, args...)
}
func SchemaLoad(cause error, format string, args ...any) *Error {
	return wrap(KindSchemaLoad, cause, format, args...)
}
func FunctionResolution(format string, args ...any) *Error {
	return new_(KindFunctionResolution, format, args...)
}
func CollectionNotFound(format string, args ...any) *Error {
	return new_(KindCollectionNotFound, format, args...)
}
func CollectionExists(format string, args ...any) *Error {
	return new_(KindCollectionExists, format, args...)
}
func Database(cause error, format string, args ...any) *Error {
	return wrap(KindDatabase, cause, format, args...)
}

// As reports the Kind of err if it (or something it wraps) is an *Error.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
