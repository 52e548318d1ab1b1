// Package repositories implements the data access layer (repository pattern) for outstaff.
// Each repository type encapsulates all database queries for one domain entity, and every
// query is scoped by organization so a record can never leak across tenants.
// Handlers never issue SQL directly.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Errors returned by transactional writes. Services translate them into
// user-facing validation messages.
var (
	ErrOverlap      = errors.New("time entry overlaps an existing entry")
	ErrPeriodLocked = errors.New("date is inside a locked period")
	ErrEntryLocked  = errors.New("entry date is inside a locked period")
	ErrLastAdmin    = errors.New("organization must keep at least one active admin")
	ErrStaleStatus  = errors.New("entry status does not allow this transition")
	ErrDuplicate    = errors.New("record already exists")
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique constraint failure
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// lockCoversQuery is true when an active period lock of the organization covers the date.
const lockCoversQuery = `
	SELECT EXISTS (
		SELECT 1 FROM period_locks
		WHERE org_id = $1
		  AND unlocked_at IS NULL
		  AND start_date <= $2
		  AND end_date >= $2
	)`

// dateIsLocked runs lockCoversQuery on either the pool or an open transaction
func dateIsLocked(ctx context.Context, q sqlx.QueryerContext, orgID int64, day time.Time) (bool, error) {
	var locked bool
	if err := sqlx.GetContext(ctx, q, &locked, lockCoversQuery, orgID, day.Format("2006-01-02")); err != nil {
		return false, fmt.Errorf("failed to check period locks: %w", err)
	}
	return locked, nil
}

// getOne wraps GetContext with the nil, nil convention for missing rows
func getOne[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*T, error) {
	var out T
	err := sqlx.GetContext(ctx, q, &out, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
