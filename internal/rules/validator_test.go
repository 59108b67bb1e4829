package rules

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Validation - success cases
// ---------------------------------------------------------------------------

func TestValidateRuleSet_Success(t *testing.T) {
	tests := []struct {
		name     string
		feature  Feature
		elements []RuleElement
	}{
		{
			name:     "empty sequence",
			feature:  FeatureCoupon,
			elements: nil,
		},
		{
			name:     "single cart total group",
			feature:  FeatureCampaign,
			elements: []RuleElement{cartTotalGroup()},
		},
		{
			name:    "two groups joined by or",
			feature: FeatureCampaign,
			elements: []RuleElement{
				cartTotalGroup(),
				GroupOperator{ID: "op1", Operator: GateOr},
				RuleGroup{ID: "g2", Match: MatchAny, Conditions: []Condition{
					{ID: "c2", Type: TypeFirstPurchase, Enabled: true},
					{ID: "c3", Type: TypeCustomerGroup, Operator: OpEqualTo, Value: "gold", Enabled: true, LogicGate: GateOr},
				}},
			},
		},
		{
			name:    "product rule with product reference and no value",
			feature: FeatureProductRule,
			elements: []RuleElement{RuleGroup{ID: "g1", Match: MatchAll, Conditions: []Condition{
				{ID: "c1", Type: TypeProductPurchased, Operator: OpEqualTo, ProductID: "sku-1", Enabled: true},
				{ID: "c2", Type: TypeCategoryAmount, Operator: OpGreaterThan, Value: "19.90", CategoryID: "cat-7", Enabled: true, LogicGate: GateAnd},
			}}},
		},
		{
			name:    "disabled condition with half-edited value",
			feature: FeatureCoupon,
			elements: []RuleElement{RuleGroup{ID: "g1", Match: MatchAll, Conditions: []Condition{
				{ID: "c1", Type: TypeProductQuantity, Operator: OpEqualTo, Value: "", Enabled: false},
			}}},
		},
		{
			name:    "conditions without ids yet",
			feature: FeatureCampaign,
			elements: []RuleElement{RuleGroup{ID: "g1", Match: MatchAll, Conditions: []Condition{
				{Type: TypeOrderCount, Operator: OpLessThan, Value: "4", Enabled: true},
				{Type: TypeTotalSpent, Operator: OpGreaterThan, Value: "250", Enabled: true, LogicGate: GateAnd},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateRuleSet(tt.feature, tt.elements); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Validation - failure cases (table-driven)
// ---------------------------------------------------------------------------

func TestValidateRuleSet_Failures(t *testing.T) {
	base := func(mods ...func(*RuleGroup)) []RuleElement {
		g := RuleGroup{
			ID:    "g1",
			Match: MatchAll,
			Conditions: []Condition{
				{ID: "c1", Type: TypeCartTotal, Operator: OpGreaterThan, Value: "100", Enabled: true},
				{ID: "c2", Type: TypeOrderCount, Operator: OpEqualTo, Value: "3", Enabled: true, LogicGate: GateAnd},
			},
		}
		for _, m := range mods {
			m(&g)
		}
		return []RuleElement{g}
	}

	tests := []struct {
		name         string
		feature      Feature
		elements     []RuleElement
		wantSentinel error
	}{
		{
			name:         "unknown feature",
			feature:      "loyalty",
			elements:     base(),
			wantSentinel: ErrInvalidElement,
		},
		{
			name:         "empty group id",
			elements:     base(func(g *RuleGroup) { g.ID = "" }),
			wantSentinel: ErrInvalidElement,
		},
		{
			name:         "bad match",
			elements:     base(func(g *RuleGroup) { g.Match = "most" }),
			wantSentinel: ErrInvalidMatch,
		},
		{
			name:         "type not in feature set",
			elements:     base(func(g *RuleGroup) { g.Conditions[0].Type = TypeCategoryAmount }),
			wantSentinel: ErrInvalidConditionType,
		},
		{
			name:         "bad operator",
			elements:     base(func(g *RuleGroup) { g.Conditions[0].Operator = "gte" }),
			wantSentinel: ErrInvalidOperator,
		},
		{
			name:         "first condition with gate",
			elements:     base(func(g *RuleGroup) { g.Conditions[0].LogicGate = GateAnd }),
			wantSentinel: ErrInvalidLogicGate,
		},
		{
			name:         "later condition without gate",
			elements:     base(func(g *RuleGroup) { g.Conditions[1].LogicGate = "" }),
			wantSentinel: ErrInvalidLogicGate,
		},
		{
			name:         "later condition with unknown gate",
			elements:     base(func(g *RuleGroup) { g.Conditions[1].LogicGate = "xor" }),
			wantSentinel: ErrInvalidLogicGate,
		},
		{
			name:         "amount not numeric",
			elements:     base(func(g *RuleGroup) { g.Conditions[0].Value = "lots" }),
			wantSentinel: ErrInvalidValue,
		},
		{
			name:         "count not integer",
			elements:     base(func(g *RuleGroup) { g.Conditions[1].Value = "2.5" }),
			wantSentinel: ErrInvalidValue,
		},
		{
			name:         "duplicate condition id",
			elements:     base(func(g *RuleGroup) { g.Conditions[1].ID = "c1" }),
			wantSentinel: ErrDuplicateID,
		},
		{
			name:         "condition id equal to group id",
			elements:     base(func(g *RuleGroup) { g.Conditions[0].ID = "g1" }),
			wantSentinel: ErrDuplicateID,
		},
		{
			name:         "condition claims other group",
			elements:     base(func(g *RuleGroup) { g.Conditions[0].GroupID = "g9" }),
			wantSentinel: ErrInvalidElement,
		},
		{
			name: "starts with operator",
			elements: []RuleElement{
				GroupOperator{ID: "op1", Operator: GateAnd},
				cartTotalGroup(),
			},
			wantSentinel: ErrBrokenSequence,
		},
		{
			name: "two adjacent groups",
			elements: []RuleElement{
				cartTotalGroup(),
				RuleGroup{ID: "g2", Match: MatchAll},
			},
			wantSentinel: ErrBrokenSequence,
		},
		{
			name: "ends with operator",
			elements: []RuleElement{
				cartTotalGroup(),
				GroupOperator{ID: "op1", Operator: GateAnd},
			},
			wantSentinel: ErrBrokenSequence,
		},
		{
			name: "operator with bad gate",
			elements: []RuleElement{
				cartTotalGroup(),
				GroupOperator{ID: "op1", Operator: "nand"},
				RuleGroup{ID: "g2", Match: MatchAll},
			},
			wantSentinel: ErrInvalidLogicGate,
		},
		{
			name: "operator without id",
			elements: []RuleElement{
				cartTotalGroup(),
				GroupOperator{Operator: GateAnd},
				RuleGroup{ID: "g2", Match: MatchAll},
			},
			wantSentinel: ErrInvalidElement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.feature
			if f == "" {
				f = FeatureCampaign
			}
			err := ValidateRuleSet(f, tt.elements)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("error = %v; want sentinel %v", err, tt.wantSentinel)
			}
		})
	}
}

func TestValidateRuleSet_DoesNotMutate(t *testing.T) {
	in := []RuleElement{RuleGroup{ID: "g1", Match: MatchAll, Conditions: []Condition{
		{Type: TypeCartTotal, Operator: OpGreaterThan, Value: "1", Enabled: true},
	}}}
	_ = ValidateRuleSet(FeatureCampaign, in)
	if in[0].(RuleGroup).Conditions[0].ID != "" {
		t.Error("ValidateRuleSet mutated its input")
	}
}

func TestFeatureConditionTypes(t *testing.T) {
	for _, f := range Features() {
		types := FeatureConditionTypes(f)
		if len(types) == 0 {
			t.Errorf("%s has no condition types", f)
		}
		for _, ct := range types {
			if !f.Accepts(ct) {
				t.Errorf("%s does not accept its own type %s", f, ct)
			}
			if KindOf(ct) == "" {
				t.Errorf("%s has no value kind", ct)
			}
		}
	}
	if FeatureConditionTypes("nope") != nil {
		t.Error("unknown feature should have no types")
	}
}
