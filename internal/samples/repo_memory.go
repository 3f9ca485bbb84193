package samples

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps records in process. Owners are checked through an
// OwnerChecker the way a foreign key would be.
type MemoryRepo struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]Record
	owners  OwnerChecker
	now     func() time.Time
}

func NewMemoryRepo(owners OwnerChecker) *MemoryRepo {
	return &MemoryRepo{
		records: make(map[int64]Record),
		owners:  owners,
		now:     time.Now,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageErr("create", err)
	}
	if r.owners != nil {
		ok, err := r.owners.Exists(ctx, rec.UserID)
		if err != nil {
			return 0, storageErr("create", err)
		}
		if !ok {
			return 0, &StorageError{Op: "create", Err: ErrOwnerNotFound}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	if rec.Details != nil {
		rec.Details = append([]byte(nil), rec.Details...)
	}
	r.records[rec.ID] = rec
	return rec.ID, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID int64) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if rec.UserID == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}
