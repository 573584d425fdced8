package dbutil

import (
	"errors"
	"net"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT id FROM documents WHERE id=? AND mtime>?", []interface{}{uint64(1), int64(100)})
	require.Equal(t, "SELECT id FROM documents WHERE id=$1 AND mtime>$2", query)
	require.Len(t, args, 2)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(errors.New("boom")))
	require.False(t, IsConflict(nil))
}

func TestIsUnavailable(t *testing.T) {
	require.True(t, IsUnavailable(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	require.True(t, IsUnavailable(&pq.Error{Code: "08006"}))
	require.True(t, IsUnavailable(&pq.Error{Code: "57P01"}))
	require.False(t, IsUnavailable(&pq.Error{Code: "42P01"}))
	require.False(t, IsUnavailable(errors.New("syntax error")))
	require.False(t, IsUnavailable(nil))
}
