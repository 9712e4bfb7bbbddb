package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	require.False(t, IsUniqueViolation(nil, ""))
	require.False(t, IsUniqueViolation(errors.New("connection reset"), ""))

	pg := errors.New(`ERROR: duplicate key value violates unique constraint "quotes_number_key" (SQLSTATE 23505)`)
	require.True(t, IsUniqueViolation(pg, ""))
	require.True(t, IsUniqueViolation(pg, "quotes_number_key"))
	require.False(t, IsUniqueViolation(pg, "invoices_number_key"))

	lite := errors.New("UNIQUE constraint failed: quotes.number")
	require.True(t, IsUniqueViolation(lite, ""))
	require.True(t, IsUniqueViolation(lite, "quotes.number"))
}
