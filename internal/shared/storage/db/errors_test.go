package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConstraintHelpers(t *testing.T) {
	fk := fmt.Errorf("insert analysis: %w", &pgconn.PgError{Code: "23503", ConstraintName: "analyses_user_id_fkey"})
	if !IsForeignKeyViolation(fk) {
		t.Fatalf("expected FK violation to be detected through wrapping")
	}
	if _, ok := UniqueViolation(fk); ok {
		t.Fatalf("FK violation is not a unique violation")
	}

	uniq := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	name, ok := UniqueViolation(uniq)
	if !ok || name != "users_email_key" {
		t.Fatalf("expected users_email_key, got %q (ok=%v)", name, ok)
	}

	if IsForeignKeyViolation(errors.New("boom")) {
		t.Fatalf("plain errors are not FK violations")
	}
}
