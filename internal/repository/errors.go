package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional write matched no row because
	// the stored state differs from the expected one.
	ErrConflict = errors.New("state conflict")
	// ErrDuplicate is returned on a unique key violation.
	ErrDuplicate = errors.New("duplicate record")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// mapNotFound also treats a malformed uuid key as a missing row.
func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return ErrNotFound
	}
	return err
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
