package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimurManjosov/goloyalty/internal/client"
	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

func sampleDocument() *Document {
	doc := NewDocument(store.OwnerCoupon, "WELCOME10")
	doc.ETag = `"abc"`
	doc.SetElements([]rules.RuleElement{
		rules.RuleGroup{ID: "g1", Match: rules.MatchAll, Conditions: []rules.Condition{
			{ID: "c1", Type: rules.TypeCartTotal, Operator: rules.OpGreaterThan, Value: "50", Enabled: true},
			{Type: rules.TypeProductPurchased, Operator: rules.OpEqualTo, ProductID: "sku-9", Enabled: true, LogicGate: rules.GateAnd},
		}},
		rules.GroupOperator{ID: "op1", Operator: rules.GateOr},
		rules.RuleGroup{ID: "g2", Match: rules.MatchAny, Conditions: []rules.Condition{}},
	})
	return doc
}

func TestDocument_RoundTrip(t *testing.T) {
	for _, name := range []string{"rules.yaml", "rules.yml", "rules.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := sampleDocument()

			require.NoError(t, SaveDocument(path, want))
			got, err := LoadDocument(path)
			require.NoError(t, err)

			wantElems, err := want.Elements()
			require.NoError(t, err)
			gotElems, err := got.Elements()
			require.NoError(t, err)

			assert.Equal(t, want.Kind, got.Kind)
			assert.Equal(t, want.OwnerID, got.OwnerID)
			assert.Equal(t, want.ETag, got.ETag)
			require.Len(t, gotElems, len(wantElems))

			g := gotElems[0].(rules.RuleGroup)
			assert.Empty(t, g.Conditions[1].ID, "missing ids must stay missing until push")
			assert.Equal(t, "sku-9", g.Conditions[1].ProductID)
		})
	}
}

func TestLoadDocument_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown kind", content: "kind: order\nownerId: x\nelements: []\n"},
		{name: "missing owner", content: "kind: coupon\nelements: []\n"},
		{name: "unknown element type", content: "kind: coupon\nownerId: x\nelements:\n  - id: b\n    type: banner\n"},
		{name: "not yaml", content: "kind: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "doc.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadDocument(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadDocument_EmptyElements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: campaign\nownerId: spring\n"), 0644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.NotNil(t, doc.Records)
	assert.Empty(t, doc.Records)
}

func TestDocumentFromRuleSet(t *testing.T) {
	rs := &client.RuleSet{
		Kind:     store.OwnerCampaign,
		OwnerID:  "spring",
		ETag:     `"1"`,
		Elements: rules.Elements{rules.RuleGroup{ID: "g1", Match: rules.MatchAll}},
	}

	doc := DocumentFromRuleSet(rs)
	assert.Equal(t, store.OwnerCampaign, doc.Kind)
	assert.Equal(t, `"1"`, doc.ETag)
	require.Len(t, doc.Records, 1)
	assert.Equal(t, rules.ElementGroup, doc.Records[0].Type)
}

func TestValidateDocument(t *testing.T) {
	doc := sampleDocument()
	assert.NoError(t, ValidateDocument(doc))

	doc.Kind = store.OwnerCampaign
	assert.ErrorIs(t, ValidateDocument(doc), rules.ErrInvalidConditionType, "product_purchased is not a campaign condition")
}

func TestEditDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, SaveDocument(path, NewDocument(store.OwnerCoupon, "X")))

	n := 0
	newID := func() string { n++; return fmt.Sprintf("n%d", n) }

	_, err := EditDocument(path, func(els []rules.RuleElement) ([]rules.RuleElement, error) {
		out, _ := rules.AddGroup(els, rules.MatchAll, rules.GateAnd, newID)
		out, _ = rules.AddGroup(out, rules.MatchAny, rules.GateOr, newID)
		return out, nil
	})
	require.NoError(t, err)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Records, 3)
	assert.Equal(t, rules.ElementGroupOperator, doc.Records[1].Type)
	assert.Equal(t, rules.GateOr, doc.Records[1].Operator)

	_, err = EditDocument(path, func([]rules.RuleElement) ([]rules.RuleElement, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	doc, err = LoadDocument(path)
	require.NoError(t, err)
	assert.Len(t, doc.Records, 3, "failed edit must not rewrite the file")
}

func TestSaveDocument_EmptyGroupKeepsConditions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	doc := NewDocument(store.OwnerCoupon, "SAVE5")
	doc.SetElements([]rules.RuleElement{rules.RuleGroup{ID: "g1", Match: rules.MatchAll, Conditions: []rules.Condition{}}})
	require.NoError(t, SaveDocument(path, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "conditions: []")

	loaded, err := LoadDocument(path)
	require.NoError(t, err)
	require.Len(t, loaded.Records, 1)
	assert.NotNil(t, loaded.Records[0].Conditions)
	assert.Empty(t, loaded.Records[0].Conditions)
}
