package orders

import (
	"errors"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrNoReservation = errors.New("no banking reservation for order")
	ErrConflict      = errors.New("order was modified concurrently")
	ErrValidation    = errors.New("invalid request")
	ErrUnavailable   = errors.New("dependency unavailable")
	ErrDuplicateCode = errors.New("order code already taken")
)

type Kind string

const (
	KindNone              Kind = ""
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindValidation        Kind = "validation"
	KindNoReservation     Kind = "no_reservation"
	KindConflict          Kind = "conflict"
	KindUnavailable       Kind = "unavailable"
)

// KindOf classifies err. Errors that match none of the sentinels are
// reported as unavailable since they come from the store or cache.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNoReservation):
		return KindNoReservation
	case errors.Is(err, domain.ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrValidation), errors.Is(err, domain.ErrReservedActorID):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindUnavailable
	}
}
