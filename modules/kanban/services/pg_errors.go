package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func mapPgError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		recordWriteConflict("lock_timeout")
		return lockTimeout(err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return Internal(err)
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		return positionConflict(err)
	case "40001", "40P01": // serialization_failure, deadlock_detected
		recordWriteConflict("serialization")
		return positionConflict(err)
	case "55P03", "57014": // lock_not_available, query_canceled
		recordWriteConflict("lock_timeout")
		return lockTimeout(err)
	default:
		return Internal(err)
	}
}
