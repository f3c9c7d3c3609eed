package sync

import (
    "errors"
    "fmt"
)

// Error codes surfaced to API clients in {success:false, error, code} bodies.
const (
    CodeValidation        = "VALIDATION_ERROR"
    CodeNotFound          = "NOT_FOUND"
    CodeInvalidEntityType = "INVALID_ENTITY_TYPE"
    CodeNotAConflict      = "NOT_A_CONFLICT"
    CodeMissingData       = "MISSING_DATA"
    CodeInvalidStrategy   = "INVALID_STRATEGY"
    CodeStore             = "STORE_ERROR"
)

// Error is a typed failure with a stable code. A detected conflict is not an
// Error; it is a first-class result (see Detection) so callers can branch
// without error-based control flow.
type Error struct {
    Code    string
    Message string
    Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// ErrCode returns the sync error code carried by err, or CodeStore for
// anything untyped.
func ErrCode(err error) string {
    var se *Error
    if errors.As(err, &se) {
        return se.Code
    }
    return CodeStore
}

func IsCode(err error, code string) bool {
    return ErrCode(err) == code
}

func validationErr(format string, args ...interface{}) *Error {
    return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) *Error {
    return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidEntityTypeErr(entityType string) *Error {
    return &Error{Code: CodeInvalidEntityType, Message: fmt.Sprintf("invalid entity type: %s", entityType)}
}

func storeErr(op string, err error) *Error {
    return &Error{Code: CodeStore, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}
