package alerts

import "github.com/angelmondragon/kitchenstock-backend/pkg/enums"

// transitions is the closed set of staff moves. Repeating the action that
// produced the current status is allowed and leaves the status unchanged.
var transitions = map[enums.AlertStatus]map[enums.AlertAction]enums.AlertStatus{
	enums.AlertStatusOpen: {
		enums.AlertActionReport:  enums.AlertStatusReported,
		enums.AlertActionResolve: enums.AlertStatusResolved,
	},
	enums.AlertStatusReported: {
		enums.AlertActionReport:  enums.AlertStatusReported,
		enums.AlertActionCheck:   enums.AlertStatusChecked,
		enums.AlertActionResolve: enums.AlertStatusResolved,
	},
	enums.AlertStatusChecked: {
		enums.AlertActionCheck:   enums.AlertStatusChecked,
		enums.AlertActionResolve: enums.AlertStatusResolved,
	},
	enums.AlertStatusResolved: {
		enums.AlertActionResolve: enums.AlertStatusResolved,
	},
}

// Next returns the status reached by applying action to from.
func Next(from enums.AlertStatus, action enums.AlertAction) (enums.AlertStatus, bool) {
	next, ok := transitions[from][action]
	return next, ok
}
