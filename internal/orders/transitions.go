package orders

import "github.com/angelmondragon/kitchenstock-backend/pkg/enums"

// allowedTransitions lists every kitchen move. rejected -> accepted is the
// kitchen undo; it re-deducts because rejection restocked.
var allowedTransitions = map[enums.KitchenStatus][]enums.KitchenStatus{
	enums.KitchenStatusNew:      {enums.KitchenStatusAccepted, enums.KitchenStatusRejected},
	enums.KitchenStatusAccepted: {enums.KitchenStatusCooking, enums.KitchenStatusRejected},
	enums.KitchenStatusCooking:  {enums.KitchenStatusCompleted, enums.KitchenStatusRejected},
	enums.KitchenStatusRejected: {enums.KitchenStatusAccepted},
}

// CanTransition reports whether an order may move from one kitchen status to
// another.
func CanTransition(from, to enums.KitchenStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
