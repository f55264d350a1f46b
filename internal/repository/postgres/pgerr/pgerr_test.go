package pgerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_feeding_sessions_open"})

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "uq_feeding_sessions_open"))
	assert.False(t, IsUniqueViolation(err, "uq_sleep_sessions_open"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(nil))
}

func TestIsInvalidText(t *testing.T) {
	err := fmt.Errorf("get sleep: %w", &pgconn.PgError{Code: "22P02"})

	assert.True(t, IsInvalidText(err))
	assert.False(t, IsInvalidText(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsInvalidText(nil))
}
