package fares

import (
	"errors"
	"fmt"
)

var (
	// ErrRouteNotFound is returned when no route exists for the requested id.
	ErrRouteNotFound = errors.New("route not found")
	// ErrUnknownStop is returned when a stop name does not match any stop on the route.
	ErrUnknownStop = errors.New("unknown stop")
	// ErrInvalidSegment is returned when the alighting stop does not come after the boarding stop.
	ErrInvalidSegment = errors.New("invalid segment")
	// ErrInvalidStopSequence marks a stop ledger that breaks its invariants.
	ErrInvalidStopSequence = errors.New("invalid stop sequence")
	// ErrPriceOutOfRange is returned for prices that do not fit in MaxPrice minor units.
	ErrPriceOutOfRange = errors.New("price out of range")
)

// Violation names the ledger invariant a SequenceError reports.
type Violation string

const (
	ViolationOrderGap           Violation = "order_gap"
	ViolationOriginNotZero      Violation = "origin_not_zero"
	ViolationDecreasingDistance Violation = "decreasing_distance"
	ViolationDecreasingPrice    Violation = "decreasing_price"
	ViolationNegativeValue      Violation = "negative_value"
	ViolationEmptyName          Violation = "empty_name"
	ViolationDuplicateName      Violation = "duplicate_name"
	ViolationTooFewStops        Violation = "too_few_stops"
	ViolationTotalsMismatch     Violation = "totals_mismatch"
	ViolationNegativeSegment    Violation = "negative_segment"
)

// SequenceError reports the first invariant a stop ledger violates.
// Index is the zero-based position of the offending stop, or -1 when the
// violation concerns the ledger as a whole.
type SequenceError struct {
	Violation Violation
	Index     int
	Stop      string
	Detail    string
}

func (e *SequenceError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid stop sequence (%s): %s", e.Violation, e.Detail)
	}
	return fmt.Sprintf("invalid stop sequence (%s) at stop %d %q: %s", e.Violation, e.Index+1, e.Stop, e.Detail)
}

func (e *SequenceError) Unwrap() error {
	return ErrInvalidStopSequence
}

func unknownStop(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownStop, name)
}

func invalidSegment(boarding, alighting string) error {
	return fmt.Errorf("%w: %q does not come after %q", ErrInvalidSegment, alighting, boarding)
}
