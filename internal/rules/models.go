package rules

import "encoding/json"

// ConditionType identifies what a condition inspects (cart total, customer group, ...).
// Each Feature accepts its own closed subset, see FeatureConditionTypes.
type ConditionType string

// Supported condition types (string values for clean JSON serialization).
const (
	TypeCartTotal         ConditionType = "cart_total"
	TypeProductQuantity   ConditionType = "product_quantity"
	TypeCustomerGroup     ConditionType = "customer_group"
	TypeFirstPurchase     ConditionType = "first_purchase"
	TypeTotalSpent        ConditionType = "total_spent"
	TypeOrderCount        ConditionType = "order_count"
	TypeLastOrder         ConditionType = "last_order"
	TypeLocation          ConditionType = "location"
	TypeProductPurchased  ConditionType = "product_purchased"
	TypeProductAmount     ConditionType = "product_amount"
	TypeCategoryPurchased ConditionType = "category_purchased"
	TypeCategoryQuantity  ConditionType = "category_quantity"
	TypeCategoryAmount    ConditionType = "category_amount"
)

// Operator is the comparison applied between the inspected quantity and Value.
type Operator string

const (
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpEqualTo     Operator = "equal_to"
)

// LogicGate combines a condition with its predecessor inside a group, and two
// adjacent groups when carried by a GroupOperator.
type LogicGate string

const (
	GateAnd LogicGate = "and"
	GateOr  LogicGate = "or"
)

// Match is the intra-group combination: all members (AND) or any member (OR).
type Match string

const (
	MatchAll Match = "all"
	MatchAny Match = "any"
)

// ElementType is the discriminant of a RuleElement and of a StorageRecord.
type ElementType string

const (
	ElementGroup         ElementType = "group"
	ElementGroupOperator ElementType = "group_operator"
)

// Condition represents a single predicate.
//
// ID may be empty for rows that only exist in an editor; ToStorage assigns one.
// Value is string-encoded on purpose: it carries amounts, counts and identifiers
// alike. Use ParseValue for a typed view.
type Condition struct {
	ID         string        `json:"id,omitempty" yaml:"id,omitempty"`
	GroupID    string        `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	Type       ConditionType `json:"type" yaml:"type"`
	Operator   Operator      `json:"operator" yaml:"operator"`
	Value      string        `json:"value" yaml:"value"`
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	LogicGate  LogicGate     `json:"logicGate,omitempty" yaml:"logicGate,omitempty"`
	ProductID  string        `json:"productId,omitempty" yaml:"productId,omitempty"`
	CategoryID string        `json:"categoryId,omitempty" yaml:"categoryId,omitempty"`
}

// Group is the arena form of a RuleGroup: its conditions are not embedded but
// reference it through Condition.GroupID.
type Group struct {
	ID       string `json:"id" yaml:"id"`
	Operator Match  `json:"operator" yaml:"operator"`
}

// RuleElement is one entry of the ordered top-level rule sequence. It is
// implemented by RuleGroup and GroupOperator only.
type RuleElement interface {
	ElementType() ElementType
	ElementID() string
	isRuleElement()
}

// RuleGroup is a set of conditions combined by Match.
type RuleGroup struct {
	ID         string      `json:"id" yaml:"id"`
	Match      Match       `json:"match" yaml:"match"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// GroupOperator joins the groups on either side of it.
type GroupOperator struct {
	ID       string    `json:"id" yaml:"id"`
	Operator LogicGate `json:"operator" yaml:"operator"`
}

func (RuleGroup) ElementType() ElementType { return ElementGroup }
func (g RuleGroup) ElementID() string      { return g.ID }
func (RuleGroup) isRuleElement()           {}

func (GroupOperator) ElementType() ElementType { return ElementGroupOperator }
func (o GroupOperator) ElementID() string      { return o.ID }
func (GroupOperator) isRuleElement()           {}

// StorageRecord is the flat, JSON-plain form of a RuleElement as written to and
// read from the store. Field names are the storage contract.
type StorageRecord struct {
	ID         string      `json:"id" yaml:"id"`
	Type       ElementType `json:"type" yaml:"type"`
	Match      Match       `json:"match,omitempty" yaml:"match,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Operator   LogicGate   `json:"operator,omitempty" yaml:"operator,omitempty"`
}

type groupRecordShape struct {
	ID         string      `json:"id" yaml:"id"`
	Type       ElementType `json:"type" yaml:"type"`
	Match      Match       `json:"match" yaml:"match"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

type operatorRecordShape struct {
	ID       string      `json:"id" yaml:"id"`
	Type     ElementType `json:"type" yaml:"type"`
	Operator LogicGate   `json:"operator" yaml:"operator"`
}

// shape returns the value encoded for r: groups always carry match and a
// conditions array, operators only id, type and operator.
func (r StorageRecord) shape() any {
	switch r.Type {
	case ElementGroup:
		conds := r.Conditions
		if conds == nil {
			conds = []Condition{}
		}
		return groupRecordShape{ID: r.ID, Type: r.Type, Match: r.Match, Conditions: conds}
	case ElementGroupOperator:
		return operatorRecordShape{ID: r.ID, Type: r.Type, Operator: r.Operator}
	default:
		type plain StorageRecord
		return plain(r)
	}
}

// MarshalJSON implements json.Marshaler.
func (r StorageRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.shape())
}

// MarshalYAML implements yaml.Marshaler.
func (r StorageRecord) MarshalYAML() (any, error) {
	return r.shape(), nil
}

// IDGenerator returns a fresh opaque identifier on every call.
type IDGenerator func() string

// ConditionTemplate holds the default field values of a new condition row.
type ConditionTemplate struct {
	Type       ConditionType
	Operator   Operator
	Value      string
	LogicGate  LogicGate
	ProductID  string
	CategoryID string
}

// ConditionPatch is a partial update; nil fields are left untouched.
type ConditionPatch struct {
	Type       *ConditionType `json:"type,omitempty"`
	Operator   *Operator      `json:"operator,omitempty"`
	Value      *string        `json:"value,omitempty"`
	Enabled    *bool          `json:"enabled,omitempty"`
	LogicGate  *LogicGate     `json:"logicGate,omitempty"`
	ProductID  *string        `json:"productId,omitempty"`
	CategoryID *string        `json:"categoryId,omitempty"`
}
