package enums

import "fmt"

// KitchenStatus tracks an order through the kitchen workflow.
type KitchenStatus string

const (
	KitchenStatusNew       KitchenStatus = "new"
	KitchenStatusAccepted  KitchenStatus = "accepted"
	KitchenStatusCooking   KitchenStatus = "cooking"
	KitchenStatusCompleted KitchenStatus = "completed"
	KitchenStatusRejected  KitchenStatus = "rejected"
)

var validKitchenStatuses = []KitchenStatus{
	KitchenStatusNew,
	KitchenStatusAccepted,
	KitchenStatusCooking,
	KitchenStatusCompleted,
	KitchenStatusRejected,
}

// String implements fmt.Stringer.
func (k KitchenStatus) String() string {
	return string(k)
}

// IsValid reports whether the value is a known KitchenStatus.
func (k KitchenStatus) IsValid() bool {
	for _, candidate := range validKitchenStatuses {
		if candidate == k {
			return true
		}
	}
	return false
}

// OrderStatus returns the order-level status kept in lockstep with k.
func (k KitchenStatus) OrderStatus() OrderStatus {
	switch k {
	case KitchenStatusAccepted, KitchenStatusCooking:
		return OrderStatusInProgress
	case KitchenStatusCompleted:
		return OrderStatusCompleted
	case KitchenStatusRejected:
		return OrderStatusKitchenRejected
	default:
		return OrderStatusAwaitingKitchen
	}
}

// ParseKitchenStatus converts raw input into a KitchenStatus.
func ParseKitchenStatus(value string) (KitchenStatus, error) {
	for _, candidate := range validKitchenStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid kitchen status %q", value)
}

// OrderStatus is the coarse order-level status derived from KitchenStatus.
type OrderStatus string

const (
	OrderStatusAwaitingKitchen OrderStatus = "awaiting_kitchen"
	OrderStatusInProgress      OrderStatus = "in_progress"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusKitchenRejected OrderStatus = "kitchen_rejected"
)

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// RejectReasonCode classifies why the kitchen rejected an order.
type RejectReasonCode string

const (
	RejectReasonOutOfStock     RejectReasonCode = "out_of_stock"
	RejectReasonCustomerCancel RejectReasonCode = "customer_cancel"
	RejectReasonInputMistake   RejectReasonCode = "input_mistake"
	RejectReasonOther          RejectReasonCode = "other"
)

var validRejectReasonCodes = []RejectReasonCode{
	RejectReasonOutOfStock,
	RejectReasonCustomerCancel,
	RejectReasonInputMistake,
	RejectReasonOther,
}

// String implements fmt.Stringer.
func (r RejectReasonCode) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RejectReasonCode.
func (r RejectReasonCode) IsValid() bool {
	for _, candidate := range validRejectReasonCodes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRejectReasonCode converts raw input into a RejectReasonCode.
func ParseRejectReasonCode(value string) (RejectReasonCode, error) {
	for _, candidate := range validRejectReasonCodes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reject reason code %q", value)
}
