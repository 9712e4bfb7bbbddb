package enums

import "fmt"

// InterventionStatus is the scheduling lifecycle of a field intervention.
// done and canceled are terminal; entering done settles reserved stock,
// entering canceled releases it.
type InterventionStatus string

const (
	InterventionStatusToSchedule InterventionStatus = "to_schedule"
	InterventionStatusToDo       InterventionStatus = "to_do"
	InterventionStatusInProgress InterventionStatus = "in_progress"
	InterventionStatusDone       InterventionStatus = "done"
	InterventionStatusCanceled   InterventionStatus = "canceled"
)

var validInterventionStatuses = []InterventionStatus{
	InterventionStatusToSchedule,
	InterventionStatusToDo,
	InterventionStatusInProgress,
	InterventionStatusDone,
	InterventionStatusCanceled,
}

// String implements fmt.Stringer.
func (s InterventionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InterventionStatus.
func (s InterventionStatus) IsValid() bool {
	for _, candidate := range validInterventionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the intervention accepts no further transitions.
func (s InterventionStatus) Terminal() bool {
	return s == InterventionStatusDone || s == InterventionStatusCanceled
}

// CanTransitionTo reports whether the status may move to target.
func (s InterventionStatus) CanTransitionTo(target InterventionStatus) bool {
	if s.Terminal() || s == target {
		return false
	}
	switch target {
	case InterventionStatusToSchedule, InterventionStatusToDo, InterventionStatusInProgress:
		return true
	case InterventionStatusDone:
		return s == InterventionStatusInProgress || s == InterventionStatusToDo
	case InterventionStatusCanceled:
		return true
	default:
		return false
	}
}

// ParseInterventionStatus converts raw input into an InterventionStatus.
func ParseInterventionStatus(value string) (InterventionStatus, error) {
	for _, candidate := range validInterventionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intervention status %q", value)
}
