package database

import "errors"

var (
	// ErrNotFound возвращается, когда позиция с таким номером отсутствует.
	ErrNotFound = errors.New("item not found")

	// ErrConflict identifier collision on insert. Unreachable while
	// identifiers come from the durable counter, but mapped anyway.
	ErrConflict = errors.New("identifier already exists")
)

// ValidationError описывает некорректное поле входных данных.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
