package enums

import "fmt"

// MovementDirection indicates whether a stock movement takes quantity out of
// the warehouse or brings it in.
type MovementDirection string

const (
	MovementDirectionOut MovementDirection = "out"
	MovementDirectionIn  MovementDirection = "in"
)

var validMovementDirections = []MovementDirection{
	MovementDirectionOut,
	MovementDirectionIn,
}

// String implements fmt.Stringer.
func (m MovementDirection) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementDirection.
func (m MovementDirection) IsValid() bool {
	for _, candidate := range validMovementDirections {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementDirection converts raw input into a MovementDirection.
func ParseMovementDirection(value string) (MovementDirection, error) {
	for _, candidate := range validMovementDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement direction %q", value)
}

// MovementStatus is the lifecycle of a ledger entry. Movements are created
// planned and move to done or canceled exactly once; corrections after that
// are new movements, never edits.
type MovementStatus string

const (
	MovementStatusPlanned  MovementStatus = "planned"
	MovementStatusDone     MovementStatus = "done"
	MovementStatusCanceled MovementStatus = "canceled"
)

var validMovementStatuses = []MovementStatus{
	MovementStatusPlanned,
	MovementStatusDone,
	MovementStatusCanceled,
}

// String implements fmt.Stringer.
func (m MovementStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementStatus.
func (m MovementStatus) IsValid() bool {
	for _, candidate := range validMovementStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is final; terminal rows never change.
func (m MovementStatus) Terminal() bool {
	return m == MovementStatusDone || m == MovementStatusCanceled
}

// ParseMovementStatus converts raw input into a MovementStatus.
func ParseMovementStatus(value string) (MovementStatus, error) {
	for _, candidate := range validMovementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement status %q", value)
}
