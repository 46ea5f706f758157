package ingredients

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenstock-backend/pkg/errors"
	"github.com/angelmondragon/kitchenstock-backend/pkg/units"
	"github.com/shopspring/decimal"
)

// Service exposes the staff-facing ingredient operations the engine depends on.
type Service interface {
	Create(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error)
	List(ctx context.Context) ([]models.Ingredient, error)
}

// CreateIngredientInput carries staff input. Quantities are in display units.
type CreateIngredientInput struct {
	Name             string
	DisplayUnit      string
	BaseUnit         enums.BaseUnit
	ConversionFactor decimal.Decimal
	InitialStock     decimal.Decimal
	IssueRule        enums.IssueRule
	CycleDays        *int
	ParLevel         *decimal.Decimal
	MinStockLevel    *decimal.Decimal
}

type service struct {
	repo Repository
}

// NewService builds an ingredient service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ingredients repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error) {
	ingredient, err := buildIngredient(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ingredient); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ingredient")
	}
	return ingredient, nil
}

func (s *service) List(ctx context.Context) ([]models.Ingredient, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ingredients")
	}
	return rows, nil
}

// buildIngredient validates input and applies the threshold defaults: par
// level falls back to the opening stock and long storage items get half of par
// as their minimum.
func buildIngredient(input CreateIngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.BaseUnit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base unit must be one of pcs, g, ml")
	}
	displayUnit := strings.TrimSpace(input.DisplayUnit)
	if displayUnit == "" {
		displayUnit = input.BaseUnit.String()
	}
	factor := input.ConversionFactor
	if factor.IsZero() {
		factor = decimal.NewFromInt(1)
	}
	if factor.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversion factor must be positive")
	}
	if input.InitialStock.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial stock cannot be negative")
	}
	rule := input.IssueRule
	if rule == "" {
		rule = enums.IssueRuleDaily
	}
	if !rule.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issue rule must be one of daily, long_storage, cycle")
	}
	if input.CycleDays != nil && *input.CycleDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cycle days must be positive")
	}

	stock := units.ToBase(input.InitialStock, factor)
	par := stock
	if input.ParLevel != nil {
		if input.ParLevel.Sign() < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "par level cannot be negative")
		}
		par = units.ToBase(*input.ParLevel, factor)
	}

	var minStock decimal.NullDecimal
	switch {
	case input.MinStockLevel != nil:
		if input.MinStockLevel.Sign() < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock level cannot be negative")
		}
		minStock = decimal.NewNullDecimal(units.ToBase(*input.MinStockLevel, factor))
	case rule == enums.IssueRuleLongStorage:
		minStock = decimal.NewNullDecimal(par.Div(decimal.NewFromInt(2)))
	}

	return &models.Ingredient{
		Name:             name,
		DisplayUnit:      displayUnit,
		BaseUnit:         input.BaseUnit,
		ConversionFactor: factor,
		StockOnHand:      stock,
		IssueRule:        rule,
		CycleDays:        input.CycleDays,
		ParLevel:         par,
		MinStockLevel:    minStock,
	}, nil
}
