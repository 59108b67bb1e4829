package rules

// Feature names a consumer of rule sets. Each feature fixes its own closed set
// of condition types.
type Feature string

const (
	FeatureCampaign    Feature = "campaign"
	FeatureCoupon      Feature = "coupon"
	FeatureProductRule Feature = "product_rule"
)

var featureConditionTypes = map[Feature][]ConditionType{
	FeatureCampaign: {
		TypeCartTotal,
		TypeCustomerGroup,
		TypeFirstPurchase,
		TypeTotalSpent,
		TypeOrderCount,
		TypeLastOrder,
		TypeLocation,
	},
	FeatureCoupon: {
		TypeCartTotal,
		TypeProductQuantity,
		TypeCustomerGroup,
		TypeFirstPurchase,
		TypeLocation,
		TypeProductPurchased,
		TypeCategoryPurchased,
	},
	FeatureProductRule: {
		TypeProductPurchased,
		TypeProductAmount,
		TypeProductQuantity,
		TypeCategoryPurchased,
		TypeCategoryQuantity,
		TypeCategoryAmount,
	},
}

// Features returns every known feature.
func Features() []Feature {
	return []Feature{FeatureCampaign, FeatureCoupon, FeatureProductRule}
}

// IsValidFeature reports whether f is a known feature.
func IsValidFeature(f Feature) bool {
	_, ok := featureConditionTypes[f]
	return ok
}

// FeatureConditionTypes returns the condition types accepted by f, or nil for
// an unknown feature. The returned slice is a copy.
func FeatureConditionTypes(f Feature) []ConditionType {
	types, ok := featureConditionTypes[f]
	if !ok {
		return nil
	}
	out := make([]ConditionType, len(types))
	copy(out, types)
	return out
}

// Accepts reports whether f allows conditions of type t.
func (f Feature) Accepts(t ConditionType) bool {
	for _, ct := range featureConditionTypes[f] {
		if ct == t {
			return true
		}
	}
	return false
}

// IgnoresOperand reports whether conditions of type t carry no operator/value.
func (t ConditionType) IgnoresOperand() bool {
	return t == TypeFirstPurchase
}
