package rules

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name     string
		typ      ConditionType
		raw      string
		wantKind ValueKind
		wantStr  string
	}{
		{name: "amount integer", typ: TypeCartTotal, raw: "100", wantKind: KindAmount, wantStr: "100"},
		{name: "amount decimal", typ: TypeTotalSpent, raw: " 49.90 ", wantKind: KindAmount, wantStr: "49.9"},
		{name: "count", typ: TypeOrderCount, raw: "3", wantKind: KindCount, wantStr: "3"},
		{name: "days since last order", typ: TypeLastOrder, raw: "30", wantKind: KindCount, wantStr: "30"},
		{name: "customer group reference", typ: TypeCustomerGroup, raw: "grp_42", wantKind: KindReference, wantStr: "grp_42"},
		{name: "location tag", typ: TypeLocation, raw: "DE", wantKind: KindTag, wantStr: "DE"},
		{name: "first purchase ignores value", typ: TypeFirstPurchase, raw: "whatever", wantKind: KindNone, wantStr: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseValue(tt.typ, tt.raw)
			if err != nil {
				t.Fatalf("ParseValue() error = %v", err)
			}
			if v.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", v.Kind, tt.wantKind)
			}
			if v.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", v.String(), tt.wantStr)
			}
		})
	}
}

func TestParseValue_Errors(t *testing.T) {
	tests := []struct {
		name         string
		typ          ConditionType
		raw          string
		wantSentinel error
	}{
		{name: "unknown type", typ: "mood", raw: "1", wantSentinel: ErrInvalidConditionType},
		{name: "amount text", typ: TypeCartTotal, raw: "ten", wantSentinel: ErrInvalidValue},
		{name: "negative amount", typ: TypeProductAmount, raw: "-1", wantSentinel: ErrInvalidValue},
		{name: "empty amount", typ: TypeCategoryAmount, raw: "", wantSentinel: ErrInvalidValue},
		{name: "fractional count", typ: TypeProductQuantity, raw: "1.5", wantSentinel: ErrInvalidValue},
		{name: "negative count", typ: TypeCategoryQuantity, raw: "-2", wantSentinel: ErrInvalidValue},
		{name: "empty reference", typ: TypeProductPurchased, raw: "  ", wantSentinel: ErrInvalidValue},
		{name: "empty tag", typ: TypeLocation, raw: "", wantSentinel: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValue(tt.typ, tt.raw)
			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("error = %v, want %v", err, tt.wantSentinel)
			}
		})
	}
}

func TestValueConstructors(t *testing.T) {
	if got := AmountValue(decimal.RequireFromString("12.50")).String(); got != "12.5" {
		t.Errorf("AmountValue = %q", got)
	}
	if got := CountValue(7).String(); got != "7" {
		t.Errorf("CountValue = %q", got)
	}
	if got := ReferenceValue("cat-1").String(); got != "cat-1" {
		t.Errorf("ReferenceValue = %q", got)
	}
}
