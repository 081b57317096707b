package fleet

import (
	"context"
	"errors"
	"fmt"
)

// NotFoundError reports that a projected row the caller asked about
// doesn't exist in this project (spec §7 NotFound).
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// InvalidTransitionError reports that a status change would violate
// the entity's state machine; the façade rejects the call before
// appending anything further, the same event the core already recorded
// as a coordinator_violation (spec §7 InvalidTransition).
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s -> %s", e.Entity, e.From, e.To)
}

// Cancelled reports the caller's context was cancelled before the
// operation committed (spec §7 Cancelled).
var Cancelled = errors.New("fleet: operation cancelled")

func translateContextErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return Cancelled
	}
	return err
}
