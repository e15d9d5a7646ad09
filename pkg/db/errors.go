package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// pgError pulls the SQLSTATE and constraint out of either Postgres driver.
func pgError(err error) (code, constraint string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}

// IsUniqueViolation reports a unique constraint failure on Postgres or SQLite.
// A non-empty constraintName must also match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint, ok := pgError(err); ok {
		return code == pgUniqueViolation && (constraintName == "" || constraint == constraintName)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// ConstraintName returns the violated constraint. SQLite only reports the columns,
// which are returned instead.
func ConstraintName(err error) string {
	if err == nil {
		return ""
	}
	if _, constraint, ok := pgError(err); ok {
		return constraint
	}
	if _, cols, ok := strings.Cut(err.Error(), "UNIQUE constraint failed: "); ok {
		return strings.TrimSpace(cols)
	}
	return ""
}
