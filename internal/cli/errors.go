package cli

import (
	"errors"

	"acadrive/internal/dedup"
	"acadrive/internal/identity"
	"acadrive/internal/service"
)

// ExitCode maps a command error to the process exit status: 2 for requests the
// user can correct, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, dedup.ErrDuplicate),
		errors.Is(err, identity.ErrMissing):
		return 2
	default:
		return 1
	}
}

// Hint returns a follow-up line for errors that have an obvious next step.
func Hint(err error) string {
	switch {
	case errors.Is(err, service.ErrPartialWrite):
		return "the operation was only partly applied; an operator has been notified"
	case errors.Is(err, service.ErrStorage):
		return "the catalog is unreachable right now, please retry"
	case errors.Is(err, service.ErrNotFound):
		return "the resource no longer exists; browse again to refresh"
	default:
		return ""
	}
}
