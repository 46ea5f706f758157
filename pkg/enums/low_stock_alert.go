package enums

import "fmt"

// AlertStatus is the staff acknowledgement state of a low-stock alert.
type AlertStatus string

const (
	AlertStatusOpen     AlertStatus = "open"
	AlertStatusReported AlertStatus = "reported"
	AlertStatusChecked  AlertStatus = "checked"
	AlertStatusResolved AlertStatus = "resolved"
)

var validAlertStatuses = []AlertStatus{
	AlertStatusOpen,
	AlertStatusReported,
	AlertStatusChecked,
	AlertStatusResolved,
}

// String implements fmt.Stringer.
func (a AlertStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AlertStatus.
func (a AlertStatus) IsValid() bool {
	for _, candidate := range validAlertStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlertStatus converts raw input into an AlertStatus.
func ParseAlertStatus(value string) (AlertStatus, error) {
	for _, candidate := range validAlertStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert status %q", value)
}

// AlertAction is a staff action applied to a low-stock alert.
type AlertAction string

const (
	AlertActionReport  AlertAction = "report"
	AlertActionCheck   AlertAction = "check"
	AlertActionResolve AlertAction = "resolve"
)

var validAlertActions = []AlertAction{
	AlertActionReport,
	AlertActionCheck,
	AlertActionResolve,
}

// String implements fmt.Stringer.
func (a AlertAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AlertAction.
func (a AlertAction) IsValid() bool {
	for _, candidate := range validAlertActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlertAction converts raw input into an AlertAction.
func ParseAlertAction(value string) (AlertAction, error) {
	for _, candidate := range validAlertActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert action %q", value)
}
