package errors

import (
	"fmt"

	"github.com/angelmondragon/kitchenstock-backend/pkg/types"
)

// Insufficient reports stock that cannot cover a deduction. The shortages
// travel as details so callers can show which ingredients ran out.
func Insufficient(shortages []types.Shortage) *Error {
	msg := "insufficient ingredients"
	if len(shortages) == 1 && shortages[0].IngredientName != "" {
		msg = fmt.Sprintf("insufficient %s", shortages[0].IngredientName)
	}
	return New(CodeInsufficientIngredients, msg).WithDetails(shortages)
}

// RecipeMissing reports ordered products with no active recipe.
func RecipeMissing(missing []types.MissingRecipe) *Error {
	return New(CodeRecipeMissing, "products have no active recipe").WithDetails(missing)
}

// Shortages extracts the shortage list from an insufficient-ingredients error
// anywhere in err's chain.
func Shortages(err error) ([]types.Shortage, bool) {
	typed := As(err)
	if typed == nil || typed.code != CodeInsufficientIngredients {
		return nil, false
	}
	shortages, ok := typed.details.([]types.Shortage)
	return shortages, ok
}
