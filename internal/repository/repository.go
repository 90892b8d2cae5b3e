package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for unique index conflicts.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint
// conflict. Services rely on it to map storage-level invariants (one
// enrollment per student/program, one payment per gateway ref, one slot
// per grid cell) onto typed domain errors.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
