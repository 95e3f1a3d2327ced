package sql

import (
	"errors"
	"strings"
)

// sqlStateError is implemented by pq.Error and pgx errors.
type sqlStateError interface {
	SQLState() string
}

// errorCoder is implemented by drivers exposing a string error code.
type errorCoder interface {
	Code() string
}

// pgUniqueViolation is the PostgreSQL SQLSTATE of a unique violation.
const pgUniqueViolation = "23505"

// IsUniqueConstraintError reports whether err resulted from a duplicate
// primary key or unique index value.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if hasCode(err, pgUniqueViolation) {
		return true
	}
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
	)
}

func hasCode(err error, code string) bool {
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == code {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == code {
		return true
	}
	return false
}

// asError returns the first error in err's chain implementing T.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
