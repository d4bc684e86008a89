package property

import (
	"errors"
	"fmt"

	"github.com/evcraddock/house-broker/internal/db"
)

var (
	// ErrInvalidPage is returned by searches when page or page size is below 1
	// or the requested rows lie beyond the addressable range.
	ErrInvalidPage = errors.New("page and page size must be positive and within range")

	// ErrNotFound is returned by the service when a property does not exist.
	ErrNotFound = errors.New("property not found")

	// ErrAmountOutOfRange is returned when a price does not fit the stored minor-unit column.
	ErrAmountOutOfRange = errors.New("amount out of range")

	// ErrForbidden is returned by the service when a broker touches a listing it does not own.
	ErrForbidden = errors.New("property belongs to another broker")
)

// ConnectionError means no database connection could be obtained.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: acquiring connection: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ConstraintError means the database rejected a write on a referential,
// uniqueness or check rule.
type ConstraintError struct {
	Op  string
	ID  int64
	Err error
}

func (e *ConstraintError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s property %d: constraint violation: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s property: constraint violation: %v", e.Op, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// DecodeError means a stored scalar could not be mapped back to its value type.
type DecodeError struct {
	Field string
	Value string
	ID    int64
}

func (e *DecodeError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("property %d: cannot decode %s %q", e.ID, e.Field, e.Value)
	}
	return fmt.Sprintf("cannot decode %s %q", e.Field, e.Value)
}

// ValidationError lists field problems found in caller input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// wrapWrite classifies a failed write statement.
func wrapWrite(op string, id int64, step string, err error) error {
	if db.IsConstraintViolation(err) {
		return &ConstraintError{Op: op, ID: id, Err: err}
	}
	if id != 0 {
		return fmt.Errorf("%s property %d: %s: %w", op, id, step, err)
	}
	return fmt.Errorf("%s property: %s: %w", op, step, err)
}
