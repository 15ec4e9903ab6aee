package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrLastAdmin is returned when a mutation would leave the store without an admin.
	ErrLastAdmin = errors.New("at least one admin must remain")
	// ErrDuplicate is returned when an insert hits a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
