package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ValueKind is the typed shape behind a condition's string Value.
type ValueKind string

const (
	KindNone      ValueKind = "none"
	KindAmount    ValueKind = "amount"
	KindCount     ValueKind = "count"
	KindReference ValueKind = "reference"
	KindTag       ValueKind = "tag"
)

var valueKinds = map[ConditionType]ValueKind{
	TypeCartTotal:         KindAmount,
	TypeTotalSpent:        KindAmount,
	TypeProductAmount:     KindAmount,
	TypeCategoryAmount:    KindAmount,
	TypeProductQuantity:   KindCount,
	TypeOrderCount:        KindCount,
	TypeCategoryQuantity:  KindCount,
	TypeLastOrder:         KindCount, // days since the last order
	TypeCustomerGroup:     KindReference,
	TypeProductPurchased:  KindReference,
	TypeCategoryPurchased: KindReference,
	TypeLocation:          KindTag,
	TypeFirstPurchase:     KindNone,
}

// KindOf returns the value kind carried by conditions of type t, or "" for an
// unknown type.
func KindOf(t ConditionType) ValueKind {
	return valueKinds[t]
}

// Value is the narrowed form of Condition.Value. Only the field matching Kind
// is meaningful.
type Value struct {
	Kind      ValueKind
	Amount    decimal.Decimal
	Count     int64
	Reference string
	Tag       string
}

// ParseValue narrows raw to the kind expected by t.
func ParseValue(t ConditionType, raw string) (Value, error) {
	kind, ok := valueKinds[t]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidConditionType, t)
	}

	raw = strings.TrimSpace(raw)
	switch kind {
	case KindNone:
		return Value{Kind: KindNone}, nil
	case KindAmount:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s requires a decimal amount, got %q", ErrInvalidValue, t, raw)
		}
		if d.IsNegative() {
			return Value{}, fmt.Errorf("%w: %s amount must not be negative", ErrInvalidValue, t)
		}
		return Value{Kind: KindAmount, Amount: d}, nil
	case KindCount:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return Value{}, fmt.Errorf("%w: %s requires a non-negative integer, got %q", ErrInvalidValue, t, raw)
		}
		return Value{Kind: KindCount, Count: n}, nil
	case KindReference:
		if raw == "" {
			return Value{}, fmt.Errorf("%w: %s requires a reference id", ErrInvalidValue, t)
		}
		return Value{Kind: KindReference, Reference: raw}, nil
	default:
		if raw == "" {
			return Value{}, fmt.Errorf("%w: %s requires a value", ErrInvalidValue, t)
		}
		return Value{Kind: KindTag, Tag: raw}, nil
	}
}

// String widens v back to the storage encoding.
func (v Value) String() string {
	switch v.Kind {
	case KindAmount:
		return v.Amount.String()
	case KindCount:
		return strconv.FormatInt(v.Count, 10)
	case KindReference:
		return v.Reference
	case KindTag:
		return v.Tag
	default:
		return ""
	}
}

// AmountValue returns an amount Value.
func AmountValue(d decimal.Decimal) Value { return Value{Kind: KindAmount, Amount: d} }

// CountValue returns a count Value.
func CountValue(n int64) Value { return Value{Kind: KindCount, Count: n} }

// ReferenceValue returns a reference Value.
func ReferenceValue(id string) Value { return Value{Kind: KindReference, Reference: id} }
