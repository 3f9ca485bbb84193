package accounts

import (
	"context"
	"errors"
	"strings"

	"copper-backend/internal/shared/auth"
	"copper-backend/internal/shared/metrics"
	"copper-backend/internal/shared/telemetry"
)

type Service struct {
	Repo Repo
	// HashCost overrides the bcrypt cost; zero means the library default.
	HashCost int
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// RegisterInput is a validated registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an account. Email is compared and stored lower-cased.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	if s == nil || s.Repo == nil {
		return Account{}, errors.New("accounts service not configured")
	}
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return Account{}, errors.New("username, email and password are required")
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return Account{}, auth.ErrPasswordTooLong
	}

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return Account{}, &DuplicateError{Field: "email"}
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}
	if _, err := s.Repo.GetByUsername(ctx, username); err == nil {
		return Account{}, &DuplicateError{Field: "username"}
	} else if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}

	hash, err := auth.HashPasswordCost(in.Password, s.HashCost)
	if err != nil {
		return Account{}, err
	}
	id, err := s.Repo.Create(ctx, username, email, hash)
	if err != nil {
		return Account{}, err
	}
	metrics.IncAccountRegistered()
	telemetry.Info("account.registered", map[string]any{"user_id": id})
	return s.Repo.GetByID(ctx, id)
}

// Authenticate returns the account for email when password matches.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	if s == nil || s.Repo == nil {
		return Account{}, errors.New("accounts service not configured")
	}
	acct, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if !VerifyPassword(acct.PasswordHash, password) {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (Account, error) {
	if s == nil || s.Repo == nil {
		return Account{}, errors.New("accounts service not configured")
	}
	if id <= 0 {
		return Account{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// Exists reports whether an account with id exists.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// VerifyPassword compares a stored bcrypt hash with a candidate password.
func VerifyPassword(storedHash, candidate string) bool {
	return auth.VerifyPassword(storedHash, candidate)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
