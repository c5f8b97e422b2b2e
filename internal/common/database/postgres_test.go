package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPostgresConfig_DSNAndURL(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", User: "booking", Password: "p@ss", DBName: "booking_db"}

	assert.Equal(t, "host=db port=5432 user=booking password=p@ss dbname=booking_db sslmode=disable TimeZone=UTC", cfg.DSN())
	assert.Equal(t, "postgres://booking:p%40ss@db:5432/booking_db?sslmode=disable", cfg.DatabaseURL())
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_bookings_booking_number"}
	wrapped := fmt.Errorf("insert: %w", pgErr)

	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.True(t, IsUniqueViolation(wrapped, "idx_bookings_booking_number"))
	assert.False(t, IsUniqueViolation(wrapped, "other"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}
