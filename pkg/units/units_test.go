package units

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToBase(t *testing.T) {
	assert.True(t, ToBase(decimal.RequireFromString("1.5"), decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(1500)))
	assert.True(t, ToBase(decimal.NewFromInt(3), decimal.Zero).Equal(decimal.NewFromInt(3)))
	assert.True(t, ToBase(decimal.NewFromInt(3), decimal.NewFromInt(-5)).Equal(decimal.NewFromInt(3)))
}

func TestToDisplay(t *testing.T) {
	assert.True(t, ToDisplay(decimal.NewFromInt(200), decimal.NewFromInt(1000)).Equal(decimal.RequireFromString("0.2")))
	assert.True(t, ToDisplay(decimal.NewFromInt(7), decimal.Zero).Equal(decimal.NewFromInt(7)))
}

func TestRoundTrip(t *testing.T) {
	factor := decimal.NewFromInt(12)
	display := decimal.RequireFromString("2.5")
	assert.True(t, ToDisplay(ToBase(display, factor), factor).Equal(display))
}
