package enums

import "fmt"

// ReservationState tracks the stock lifecycle of a single intervention line.
// Transitions: unreserved -> reserved -> consumed | returned | released.
// The last three are terminal; a terminal line is never settled or released
// again.
type ReservationState string

const (
	ReservationStateUnreserved ReservationState = "unreserved"
	ReservationStateReserved   ReservationState = "reserved"
	ReservationStateConsumed   ReservationState = "consumed"
	ReservationStateReturned   ReservationState = "returned"
	ReservationStateReleased   ReservationState = "released"
)

var validReservationStates = []ReservationState{
	ReservationStateUnreserved,
	ReservationStateReserved,
	ReservationStateConsumed,
	ReservationStateReturned,
	ReservationStateReleased,
}

// String implements fmt.Stringer.
func (r ReservationState) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationState.
func (r ReservationState) IsValid() bool {
	for _, candidate := range validReservationStates {
		if candidate == r {
			return true
		}
	}
	return false
}

// Terminal reports whether the state accepts no further stock operations.
func (r ReservationState) Terminal() bool {
	switch r {
	case ReservationStateConsumed, ReservationStateReturned, ReservationStateReleased:
		return true
	default:
		return false
	}
}

// ParseReservationState converts raw input into a ReservationState.
func ParseReservationState(value string) (ReservationState, error) {
	for _, candidate := range validReservationStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation state %q", value)
}
