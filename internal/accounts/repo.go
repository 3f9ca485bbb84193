package accounts

import "context"

type Repo interface {
	Create(ctx context.Context, username, email, passwordHash string) (int64, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
}
