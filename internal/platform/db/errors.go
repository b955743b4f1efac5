package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/convertline/convertline/internal/shared"
)

// PostgreSQL error codes surfaced as domain errors.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// MapError translates driver errors into shared sentinels. Other errors pass through.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeForeignKeyViolation:
			return &shared.Rejection{Reason: shared.ErrReferentialIntegrity, Detail: constraintDetail(pgErr)}
		case codeUniqueViolation:
			return &shared.Rejection{Reason: shared.ErrDuplicate, Detail: constraintDetail(pgErr)}
		case codeCheckViolation:
			return &shared.Rejection{Reason: shared.ErrInvalidInput, Detail: constraintDetail(pgErr)}
		}
	}
	return err
}

func constraintDetail(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return fmt.Sprintf("%s (%s)", pgErr.ConstraintName, pgErr.TableName)
	}
	return pgErr.Message
}
