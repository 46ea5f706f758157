package enums

import "fmt"

// BaseUnit is the canonical unit stock is stored and decremented in.
type BaseUnit string

const (
	BaseUnitPieces     BaseUnit = "pcs"
	BaseUnitGrams      BaseUnit = "g"
	BaseUnitMilliliter BaseUnit = "ml"
)

var validBaseUnits = []BaseUnit{
	BaseUnitPieces,
	BaseUnitGrams,
	BaseUnitMilliliter,
}

// String implements fmt.Stringer.
func (b BaseUnit) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BaseUnit.
func (b BaseUnit) IsValid() bool {
	for _, candidate := range validBaseUnits {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBaseUnit converts raw input into a BaseUnit.
func ParseBaseUnit(value string) (BaseUnit, error) {
	for _, candidate := range validBaseUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid base unit %q", value)
}

// IssueRule is an ingredient's replenishment policy.
type IssueRule string

const (
	IssueRuleDaily       IssueRule = "daily"
	IssueRuleLongStorage IssueRule = "long_storage"
	IssueRuleCycle       IssueRule = "cycle"
)

var validIssueRules = []IssueRule{
	IssueRuleDaily,
	IssueRuleLongStorage,
	IssueRuleCycle,
}

// String implements fmt.Stringer.
func (r IssueRule) String() string {
	return string(r)
}

// IsValid reports whether the value is a known IssueRule.
func (r IssueRule) IsValid() bool {
	for _, candidate := range validIssueRules {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseIssueRule converts raw input into an IssueRule.
func ParseIssueRule(value string) (IssueRule, error) {
	for _, candidate := range validIssueRules {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid issue rule %q", value)
}
