package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"chucheritas/internal/domain"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// classify turns a driver error into a domain kind. Anything unrecognised is
// reported as the store being unavailable.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, domain.ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w: referenced record does not exist (%s)", op, domain.ErrValidation, pqErr.Constraint)
		case pqCheckViolation:
			return fmt.Errorf("%s: %w: constraint violation (%s)", op, domain.ErrValidation, pqErr.Constraint)
		}
	}
	return domain.Unavailable(op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// rollback is deferred by every transaction. After a successful commit it is
// a no-op.
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
