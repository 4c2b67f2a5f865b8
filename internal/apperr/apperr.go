package apperr

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound marks a missing resource or a child that does not belong
	// to the claimed parent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks a structural mutation attempted on a published
	// template, or a value that does not fit the owning question's type.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict marks a uniqueness violation raised by the store.
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks a role/cohort claim that does not match the
	// resource's required scope.
	ErrForbidden = errors.New("forbidden")
)

func NotFound(msg string) error {
	return errors.Join(ErrNotFound, errors.New(strings.TrimSpace(msg)))
}

func InvalidState(msg string) error {
	return errors.Join(ErrInvalidState, errors.New(strings.TrimSpace(msg)))
}

func Conflict(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func Forbidden(msg string) error {
	return errors.Join(ErrForbidden, errors.New(strings.TrimSpace(msg)))
}

// Translate maps store-level failures into the service taxonomy. Errors that
// already carry a sentinel pass through untouched.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrForbidden):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrConflict, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return errors.Join(ErrConflict, err) // unique_violation
		case "23503":
			return errors.Join(ErrNotFound, err) // foreign_key_violation
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") {
		return errors.Join(ErrConflict, err)
	}
	return err
}

// IsConflict reports whether err translates to a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(Translate(err), ErrConflict)
}
