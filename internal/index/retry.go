package index

import (
	"context"
	stderrors "errors"
	"strings"

	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/retry"
)

var dbBackoff = retry.NewBackoff(retry.DatabaseBackoffConfig())

// retryableDBOperation runs operation, retrying transient SQLite failures
func retryableDBOperation(ctx context.Context, operation func() error, operationName string) error {
	err := dbBackoff.RetryWithPredicate(ctx, operation, isRetryableDBError)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	case !isRetryableDBError(err):
		return errors.Wrap(err, errors.ErrCodeIO, operationName+" failed (non-retryable)")
	default:
		return errors.Wrap(err, errors.ErrCodeIO, operationName+" failed after retries").
			WithContext("attempts", dbBackoff.MaxAttempts())
	}
}

func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "disk I/O error")
}
