package database

import (
	"database/sql"
	stderrors "errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound           = stderrors.New("record not found")
	ErrDuplicate          = stderrors.New("duplicate record")
	ErrExclusionViolation = stderrors.New("exclusion constraint violated")
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// MapError turns driver errors the repositories care about into sentinels.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrDuplicate
		case pqExclusionViolation:
			return ErrExclusionViolation
		}
	}
	return err
}
