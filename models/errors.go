package models

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfStock is returned by CommitSlot when the package has no
	// available slots left.
	ErrOutOfStock = errors.New("package has no available slots")

	// ErrAlreadyProcessed marks a duplicate payment notification. Callers
	// treat it as a no-op, not a failure.
	ErrAlreadyProcessed = errors.New("payment already processed")

	// ErrNotMatured is returned when completing an investment before its
	// end date.
	ErrNotMatured = errors.New("investment has not reached its end date")

	ErrNoEligibleInvestments = errors.New("no completed investments available for withdrawal")

	// ErrInvestmentClaimed signals that a concurrent withdrawal request
	// linked one of the selected investments first.
	ErrInvestmentClaimed = errors.New("investment already linked to a withdrawal request")

	// ErrSlotsBelowSold rejects a capacity change that would drop
	// total_slots below the number of slots already sold.
	ErrSlotsBelowSold = errors.New("total slots below sold count")
)

// InvalidTransitionError reports an operation that is not legal in the
// entity's current state. The current state is included so the caller can
// react (e.g. distinguish "already approved" from "rejected").
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}
