package dbutil

import (
	"errors"
	"net"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Finalize rewrites gendry's MySQL-style placeholders into the $n form
// lib/pq expects.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsUnavailable reports whether err looks like the database being
// unreachable rather than a bad statement: network failures and the
// Postgres connection/shutdown exception classes.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code.Class() == "08" || pgErr.Code.Class() == "57"
	}
	return false
}
