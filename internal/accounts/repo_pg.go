package accounts

import (
	"context"
	"database/sql"
	"errors"

	"copper-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, username, email, passwordHash string) (int64, error) {
	const query = `
INSERT INTO users (username, email, password_hash, created_at)
VALUES ($1, $2, $3, now())
RETURNING id`
	var id int64
	err := r.DB.QueryRowContext(ctx, query, username, email, passwordHash).Scan(&id)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok {
			return 0, &DuplicateError{Field: fieldForConstraint(constraint)}
		}
		return 0, err
	}
	return id, nil
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *PGRepo) GetByUsername(ctx context.Context, username string) (Account, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Account, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *PGRepo) getOne(ctx context.Context, where string, arg any) (Account, error) {
	query := `
SELECT id, username, email, password_hash, created_at
FROM users
WHERE ` + where + `
LIMIT 1`
	var acct Account
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&acct.ID,
		&acct.Username,
		&acct.Email,
		&acct.PasswordHash,
		&acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return acct, nil
}

func fieldForConstraint(constraint string) string {
	switch constraint {
	case "users_username_key":
		return "username"
	default:
		return "email"
	}
}
