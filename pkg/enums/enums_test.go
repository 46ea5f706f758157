package enums

import "testing"

func TestKitchenStatusOrderStatusLockstep(t *testing.T) {
	cases := map[KitchenStatus]OrderStatus{
		KitchenStatusNew:       OrderStatusAwaitingKitchen,
		KitchenStatusAccepted:  OrderStatusInProgress,
		KitchenStatusCooking:   OrderStatusInProgress,
		KitchenStatusCompleted: OrderStatusCompleted,
		KitchenStatusRejected:  OrderStatusKitchenRejected,
	}
	for kitchen, want := range cases {
		if got := kitchen.OrderStatus(); got != want {
			t.Fatalf("%s: expected %s, got %s", kitchen, want, got)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseKitchenStatus("done"); err == nil {
		t.Fatal("expected unknown kitchen status to fail")
	}
	if got, err := ParseBaseUnit("ml"); err != nil || got != BaseUnitMilliliter {
		t.Fatalf("unexpected base unit parse: %v %v", got, err)
	}
	if got, err := ParseIssueRule("long_storage"); err != nil || got != IssueRuleLongStorage {
		t.Fatalf("unexpected issue rule parse: %v %v", got, err)
	}
	if _, err := ParseAlertAction("reopen"); err == nil {
		t.Fatal("expected unknown alert action to fail")
	}
	if !RejectReasonOther.IsValid() || RejectReasonCode("because").IsValid() {
		t.Fatal("reject reason validity mismatch")
	}
	if AlertStatus("snoozed").IsValid() {
		t.Fatal("unexpected alert status accepted")
	}
}
