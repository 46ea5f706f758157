package alerts

import (
	"testing"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

func TestIsLow(t *testing.T) {
	d := decimal.NewFromInt
	cases := []struct {
		name  string
		stock int64
		par   int64
		min   *int64
		want  bool
	}{
		{name: "twenty percent of par", stock: 200, par: 1000, want: false},
		{name: "exactly ten percent", stock: 100, par: 1000, want: false},
		{name: "empty", stock: 0, par: 1000, want: true},
		{name: "falls back to min", stock: 4, par: 0, min: ptr(50), want: true},
		{name: "par wins over min", stock: 40, par: 100, min: ptr(1000), want: false},
		{name: "no threshold", stock: 0, par: 0, want: false},
		{name: "zero min", stock: 0, par: 0, min: ptr(0), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ingredient := models.Ingredient{StockOnHand: d(tc.stock), ParLevel: d(tc.par)}
			if tc.min != nil {
				ingredient.MinStockLevel = decimal.NewNullDecimal(d(*tc.min))
			}
			if got := IsLow(ingredient, DefaultRatio); got != tc.want {
				t.Fatalf("IsLow() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNext(t *testing.T) {
	cases := []struct {
		from   enums.AlertStatus
		action enums.AlertAction
		want   enums.AlertStatus
		ok     bool
	}{
		{enums.AlertStatusOpen, enums.AlertActionReport, enums.AlertStatusReported, true},
		{enums.AlertStatusOpen, enums.AlertActionCheck, "", false},
		{enums.AlertStatusReported, enums.AlertActionCheck, enums.AlertStatusChecked, true},
		{enums.AlertStatusReported, enums.AlertActionReport, enums.AlertStatusReported, true},
		{enums.AlertStatusChecked, enums.AlertActionResolve, enums.AlertStatusResolved, true},
		{enums.AlertStatusChecked, enums.AlertActionReport, "", false},
		{enums.AlertStatusResolved, enums.AlertActionReport, "", false},
		{enums.AlertStatusResolved, enums.AlertActionResolve, enums.AlertStatusResolved, true},
	}
	for _, tc := range cases {
		got, ok := Next(tc.from, tc.action)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Next(%s, %s) = (%s, %v), want (%s, %v)", tc.from, tc.action, got, ok, tc.want, tc.ok)
		}
	}
}

func ptr(v int64) *int64 { return &v }
