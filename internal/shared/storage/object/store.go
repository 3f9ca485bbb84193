package object

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned for storage keys that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore defines the contract for saving, reading and removing uploaded images.
//
// Keys are relative, slash-separated paths of the form
// <owner>/<YYYYMMDD-HHMMSS>-<nonce>-<name>, so persisted records stay valid
// when the store root or bucket moves.
type ObjectStore interface {
	Save(ctx context.Context, owner string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
