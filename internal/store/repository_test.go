package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsDuplicateKeyMatchesUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505"}
	if !isDuplicateKey(err) {
		t.Error("expected a 23505 PgError to be treated as a duplicate key")
	}
}

func TestIsDuplicateKeyRejectsOtherCodes(t *testing.T) {
	err := &pgconn.PgError{Code: "42601"}
	if isDuplicateKey(err) {
		t.Error("a syntax-error PgError must not be treated as a duplicate key")
	}
	if isDuplicateKey(errors.New("plain error")) {
		t.Error("a non-PgError must not be treated as a duplicate key")
	}
	if isDuplicateKey(nil) {
		t.Error("nil error must not be treated as a duplicate key")
	}
}
