package accounts

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]Account
	now      func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{accounts: make(map[int64]Account), now: time.Now}
}

func (r *MemoryRepo) Create(ctx context.Context, username, email, passwordHash string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acct := range r.accounts {
		if acct.Username == username {
			return 0, &DuplicateError{Field: "username"}
		}
		if acct.Email == email {
			return 0, &DuplicateError{Field: "email"}
		}
	}
	r.nextID++
	r.accounts[r.nextID] = Account{
		ID:           r.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	return r.nextID, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	return r.find(ctx, func(a Account) bool { return a.Email == email })
}

func (r *MemoryRepo) GetByUsername(ctx context.Context, username string) (Account, error) {
	return r.find(ctx, func(a Account) bool { return a.Username == username })
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (r *MemoryRepo) find(ctx context.Context, match func(Account) bool) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.accounts {
		if match(acct) {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}
