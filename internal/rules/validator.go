package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by ValidateRuleSet and ParseValue.
var (
	ErrInvalidElement       = errors.New("invalid rule element")
	ErrBrokenSequence       = errors.New("groups and group operators must alternate")
	ErrInvalidConditionType = errors.New("invalid condition type")
	ErrInvalidOperator      = errors.New("invalid operator")
	ErrInvalidLogicGate     = errors.New("invalid logic gate")
	ErrInvalidMatch         = errors.New("invalid group match")
	ErrInvalidValue         = errors.New("invalid condition value")
	ErrDuplicateID          = errors.New("duplicate id")
)

var validOperators = map[Operator]struct{}{
	OpGreaterThan: {},
	OpLessThan:    {},
	OpEqualTo:     {},
}

var validGates = map[LogicGate]struct{}{
	GateAnd: {},
	GateOr:  {},
}

// ValidateRuleSet performs strict validation of a rule sequence for feature f.
// It is a pure function: it never mutates elements and has no side effects.
//
// An empty sequence is valid. Otherwise the sequence must read
// group (operator group)*, every id must be unique, and each condition must use
// a type accepted by f together with a matching operator, gate and value.
// Conditions without an id are accepted since ToStorage assigns one.
func ValidateRuleSet(f Feature, elements []RuleElement) error {
	if !IsValidFeature(f) {
		return fmt.Errorf("%w: unknown feature %q", ErrInvalidElement, f)
	}

	seen := make(map[string]struct{})
	claim := func(id, what string) error {
		if id == "" {
			return nil
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s %q", ErrDuplicateID, what, id)
		}
		seen[id] = struct{}{}
		return nil
	}

	for i, el := range elements {
		wantGroup := i%2 == 0
		if g, ok := asGroup(el); ok {
			if !wantGroup {
				return fmt.Errorf("%w: element[%d] is a group, want a group operator", ErrBrokenSequence, i)
			}
			if err := claim(g.ID, "group"); err != nil {
				return err
			}
			if err := validateGroup(f, i, g, claim); err != nil {
				return err
			}
			continue
		}
		if o, ok := asOperator(el); ok {
			if wantGroup {
				return fmt.Errorf("%w: element[%d] is a group operator, want a group", ErrBrokenSequence, i)
			}
			if o.ID == "" {
				return fmt.Errorf("%w: element[%d] operator id must not be empty", ErrInvalidElement, i)
			}
			if err := claim(o.ID, "group operator"); err != nil {
				return err
			}
			if _, ok := validGates[o.Operator]; !ok {
				return fmt.Errorf("%w: element[%d] operator %q is not supported", ErrInvalidLogicGate, i, o.Operator)
			}
			continue
		}
		return fmt.Errorf("%w: element[%d] has unsupported type %T", ErrInvalidElement, i, el)
	}

	if len(elements) > 0 && len(elements)%2 == 0 {
		return fmt.Errorf("%w: sequence must end with a group", ErrBrokenSequence)
	}
	return nil
}

func validateGroup(f Feature, i int, g RuleGroup, claim func(id, what string) error) error {
	if g.ID == "" {
		return fmt.Errorf("%w: element[%d] group id must not be empty", ErrInvalidElement, i)
	}
	if g.Match != MatchAll && g.Match != MatchAny {
		return fmt.Errorf("%w: group %q match %q is not supported", ErrInvalidMatch, g.ID, g.Match)
	}

	for j, c := range g.Conditions {
		if err := claim(c.ID, "condition"); err != nil {
			return err
		}
		if c.GroupID != "" && c.GroupID != g.ID {
			return fmt.Errorf("%w: group %q condition[%d] belongs to group %q", ErrInvalidElement, g.ID, j, c.GroupID)
		}
		if err := validateCondition(f, j, c); err != nil {
			return fmt.Errorf("group %q: %w", g.ID, err)
		}
	}
	return nil
}

func validateCondition(f Feature, j int, c Condition) error {
	if !f.Accepts(c.Type) {
		return fmt.Errorf("%w: condition[%d] type %q is not available for %s", ErrInvalidConditionType, j, c.Type, f)
	}

	switch {
	case j == 0 && c.LogicGate != "":
		return fmt.Errorf("%w: condition[%d] is first in its group and must not carry a logic gate", ErrInvalidLogicGate, j)
	case j > 0:
		if _, ok := validGates[c.LogicGate]; !ok {
			return fmt.Errorf("%w: condition[%d] logic gate %q is not supported", ErrInvalidLogicGate, j, c.LogicGate)
		}
	}

	if c.Type.IgnoresOperand() {
		return nil
	}
	if _, ok := validOperators[c.Operator]; !ok {
		return fmt.Errorf("%w: condition[%d] operator %q is not supported", ErrInvalidOperator, j, c.Operator)
	}

	// Disabled rows may hold a half-edited value.
	if !c.Enabled {
		return nil
	}
	return validateValue(j, c)
}

// validateValue narrows the string value with ParseValue. Reference conditions
// may leave Value empty when the product or category reference is set instead.
func validateValue(j int, c Condition) error {
	if KindOf(c.Type) == KindReference && c.Value == "" && (c.ProductID != "" || c.CategoryID != "") {
		return nil
	}
	if _, err := ParseValue(c.Type, c.Value); err != nil {
		return fmt.Errorf("condition[%d]: %w", j, err)
	}
	return nil
}
