package samples

import "context"

// Repo persists analysis records. It does not check who is asking;
// callers enforce ownership.
type Repo interface {
	// Create stores rec and returns its id. An unknown owner fails with a
	// *StorageError wrapping ErrOwnerNotFound.
	Create(ctx context.Context, rec Record) (int64, error)
	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID int64) ([]Record, error)
	GetByID(ctx context.Context, id int64) (Record, error)
}

// OwnerChecker reports whether an account exists.
type OwnerChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
