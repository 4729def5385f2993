package services

import (
	"errors"
	"fmt"

	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
)

var (
	// ErrNotFound signals a missing order, user, product, promotion or variant.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest signals input that can never succeed as given.
	ErrBadRequest = errors.New("bad request")
	// ErrIllegalState signals an operation that the entity's current state forbids.
	ErrIllegalState = errors.New("illegal state")
	// ErrConflict signals a concurrent modification reported by the store. It is not retried.
	ErrConflict = errors.New("conflict")

	// ErrInvalidStatus is returned when a requested status does not parse.
	ErrInvalidStatus = fmt.Errorf("%w: invalid order status", ErrBadRequest)
	// ErrIllegalTransition is returned when the transition table forbids the move.
	ErrIllegalTransition = fmt.Errorf("%w: illegal status transition", ErrBadRequest)

	// ErrInvalidCredentials hides whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// mapRepositoryError translates store errors into the service taxonomy.
func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repositories.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repositories.ErrNegativeStock):
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	default:
		return err
	}
}
