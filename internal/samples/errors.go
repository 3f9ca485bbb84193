package samples

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("analysis not found")
	ErrOwnerNotFound = errors.New("owner account does not exist")
	ErrForbidden     = errors.New("analysis belongs to another account")
	ErrInvalidUpload = errors.New("invalid upload")
	ErrImageMissing  = errors.New("stored image unavailable")

	ErrNoFile          = fmt.Errorf("%w: no file selected", ErrInvalidUpload)
	ErrUnsupportedType = fmt.Errorf("%w: unsupported file type", ErrInvalidUpload)
)

// StorageError reports a failed persistence step. Nothing from the failed
// operation is retained.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
