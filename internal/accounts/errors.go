package accounts

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// DuplicateError reports a registration conflict on Field ("username" or "email").
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

// IsDuplicate reports whether err is a registration conflict.
func IsDuplicate(err error) bool {
	var dup *DuplicateError
	return errors.As(err, &dup)
}
