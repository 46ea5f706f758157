// Package units converts between an ingredient's display unit and the base
// unit stock is stored in.
package units

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

func normalize(factor decimal.Decimal) decimal.Decimal {
	if factor.Sign() <= 0 {
		return one
	}
	return factor
}

// ToBase converts a display quantity into base units. Non-positive factors
// are treated as 1.
func ToBase(displayQty, factor decimal.Decimal) decimal.Decimal {
	return displayQty.Mul(normalize(factor))
}

// ToDisplay converts a base quantity into display units. Non-positive factors
// are treated as 1.
func ToDisplay(baseQty, factor decimal.Decimal) decimal.Decimal {
	return baseQty.Div(normalize(factor))
}
