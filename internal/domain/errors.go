package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Wrap with fmt.Errorf("%w: ...", ErrX) so callers
// can both errors.Is against the kind and read a human message.
var (
	ErrPrecondition = errors.New("precondition not met")
	ErrNotFound     = errors.New("not found")
	ErrInfeasible   = errors.New("infeasible pair")
)

// NewPreconditionError reports an operation attempted against empty state.
func NewPreconditionError(msg string) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, msg)
}

// NewNotFoundError reports a referenced user/opp that does not exist.
func NewNotFoundError(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// NewInfeasibleError reports a pair with availability_ok=0 passed to explain.
func NewInfeasibleError(userID, oppID string) error {
	return fmt.Errorf("%w: %s|%s has availability_ok=0", ErrInfeasible, userID, oppID)
}
