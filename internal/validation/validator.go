// Package validation provides request-level validation for rule-set writes.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/TimurManjosov/goloyalty/internal/rules"
)

const (
	// MaxOwnerIDLength is the maximum length for campaign, coupon and product-rule ids
	MaxOwnerIDLength = 64
	// DefaultMaxElements is used when Limits.MaxElements is not set
	DefaultMaxElements = 99
	// DefaultMaxConditionsPerGroup is used when Limits.MaxConditionsPerGroup is not set
	DefaultMaxConditionsPerGroup = 50
)

// ownerIDPattern matches alphanumeric characters, underscores, and hyphens
var ownerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("owner_id", func(fl validator.FieldLevel) bool {
		return ownerIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// Limits bounds the size of a rule set. Zero fields fall back to the defaults.
type Limits struct {
	MaxElements           int
	MaxConditionsPerGroup int
}

func (l Limits) withDefaults() Limits {
	if l.MaxElements <= 0 {
		l.MaxElements = DefaultMaxElements
	}
	if l.MaxConditionsPerGroup <= 0 {
		l.MaxConditionsPerGroup = DefaultMaxConditionsPerGroup
	}
	return l
}

// SaveRequest is the write of one owner's complete rule set.
type SaveRequest struct {
	Kind     string              `json:"kind" validate:"required,oneof=campaign coupon product_rule"`
	OwnerID  string              `json:"ownerId" validate:"required,max=64,owner_id"`
	Elements []rules.RuleElement `json:"elements"`
}

// ValidateSaveRequest checks the owner, the size limits and then the rule
// sequence itself. The structural check only runs when the owner is valid,
// since the owner kind selects the accepted condition types.
func ValidateSaveRequest(req SaveRequest, limits Limits) *ValidationResult {
	result := NewValidationResult()
	limits = limits.withDefaults()

	req.OwnerID = strings.TrimSpace(req.OwnerID)
	if err := validate.Struct(req); err != nil {
		result.Merge(fieldErrors(err))
		return result
	}

	if err := validate.Var(len(req.Elements), fmt.Sprintf("lte=%d", limits.MaxElements)); err != nil {
		result.AddError("elements", fmt.Sprintf("Rule set must not exceed %d elements", limits.MaxElements))
		return result
	}

	for i, el := range req.Elements {
		g, ok := el.(rules.RuleGroup)
		if !ok {
			if p, isPtr := el.(*rules.RuleGroup); isPtr && p != nil {
				g, ok = *p, true
			}
		}
		if !ok {
			continue
		}
		if err := validate.Var(len(g.Conditions), fmt.Sprintf("lte=%d", limits.MaxConditionsPerGroup)); err != nil {
			result.AddError(fmt.Sprintf("elements[%d].conditions", i),
				fmt.Sprintf("Group must not exceed %d conditions", limits.MaxConditionsPerGroup))
		}
	}
	if !result.Valid {
		return result
	}

	if err := rules.ValidateRuleSet(rules.Feature(req.Kind), req.Elements); err != nil {
		result.AddError("elements", err.Error())
	}

	return result
}

// fieldErrors converts validator errors into field messages keyed by json name.
func fieldErrors(err error) *ValidationResult {
	result := NewValidationResult()

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		result.AddError("request", err.Error())
		return result
	}

	for _, fe := range verrs {
		result.AddError(fe.Field(), message(fe))
	}
	return result
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
	case "owner_id":
		return fmt.Sprintf("%s must contain only alphanumeric characters, underscores, and hyphens", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
