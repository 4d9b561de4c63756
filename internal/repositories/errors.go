package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrNotOwner indicates an owner-scoped write matched a record owned by someone else.
	ErrNotOwner = errors.New("record owned by another user")
	// ErrReferenceNotFound indicates a write pointed at a record that does not
	// exist. It matches ErrNotFound under errors.Is.
	ErrReferenceNotFound = fmt.Errorf("referenced %w", ErrNotFound)
)

// SQLSTATE codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapWriteError translates constraint violations into repository sentinels.
// A dangling foreign key means the referenced row is gone.
func mapWriteError(op string, err error) error {
	switch sqlState(err) {
	case codeUniqueViolation:
		return ErrConflict
	case codeForeignKeyViolation:
		return ErrReferenceNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	return sqlState(err) == codeUniqueViolation
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
