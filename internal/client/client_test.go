package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimurManjosov/goloyalty/internal/client"
	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/store"
	"github.com/TimurManjosov/goloyalty/internal/testutil"
)

const adminKey = "admin-key"

func newClient(t *testing.T) *client.Client {
	t.Helper()
	srv, _ := testutil.NewTestServer(t, adminKey)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return client.NewClient(ts.URL+"/", adminKey)
}

func couponElements() []rules.RuleElement {
	return []rules.RuleElement{
		rules.RuleGroup{ID: "g1", Match: rules.MatchAll, Conditions: []rules.Condition{
			{Type: rules.TypeCartTotal, Operator: rules.OpGreaterThan, Value: "50", Enabled: true},
		}},
	}
}

func TestClient_SaveGetListDelete(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	saved, err := c.SaveRuleSet(ctx, store.OwnerCoupon, "WELCOME10", couponElements(), "")
	require.NoError(t, err)
	require.Len(t, saved.Elements, 1)
	assert.NotEmpty(t, saved.ETag)

	g, ok := saved.Elements[0].(rules.RuleGroup)
	require.True(t, ok, "expected a RuleGroup, got %T", saved.Elements[0])
	assert.Equal(t, "id-1", g.Conditions[0].ID)

	got, err := c.GetRuleSet(ctx, store.OwnerCoupon, "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, saved.ETag, got.ETag)
	assert.Equal(t, saved.Elements, got.Elements)

	list, err := c.ListRuleSets(ctx, store.OwnerCoupon)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "WELCOME10", list[0].OwnerID)

	require.NoError(t, c.DeleteRuleSet(ctx, store.OwnerCoupon, "WELCOME10"))
	require.NoError(t, c.DeleteRuleSet(ctx, store.OwnerCoupon, "WELCOME10"))

	_, err = c.GetRuleSet(ctx, store.OwnerCoupon, "WELCOME10")
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestClient_SaveIfMatchStale(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	first, err := c.SaveRuleSet(ctx, store.OwnerCampaign, "spring", couponElements(), "")
	require.NoError(t, err)

	_, err = c.SaveRuleSet(ctx, store.OwnerCampaign, "spring", nil, first.ETag)
	require.NoError(t, err)

	_, err = c.SaveRuleSet(ctx, store.OwnerCampaign, "spring", couponElements(), first.ETag)
	assert.ErrorIs(t, err, client.ErrStale)
}

func TestClient_ValidationErrorCarriesFields(t *testing.T) {
	c := newClient(t)

	bad := []rules.RuleElement{rules.RuleGroup{ID: "g1", Match: rules.MatchAll, Conditions: []rules.Condition{
		{Type: rules.TypeCategoryAmount, Operator: rules.OpGreaterThan, Value: "5", Enabled: true},
	}}}
	_, err := c.SaveRuleSet(context.Background(), store.OwnerCoupon, "X", bad, "")
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Fields, "elements")
	assert.Contains(t, err.Error(), "API error (status 400)")
}

func TestClient_ValidateRuleSet(t *testing.T) {
	c := newClient(t)

	report, err := c.ValidateRuleSet(context.Background(), store.OwnerCoupon, "X", couponElements())
	require.NoError(t, err)
	assert.True(t, report.Valid)

	report, err = c.ValidateRuleSet(context.Background(), store.OwnerCoupon, "X", []rules.RuleElement{
		rules.GroupOperator{ID: "op", Operator: rules.GateAnd},
	})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.NotEmpty(t, report.Errors["elements"])
}

func TestClient_Unauthorized(t *testing.T) {
	c := newClient(t)
	c.APIKey = "wrong"

	_, err := c.SaveRuleSet(context.Background(), store.OwnerCoupon, "X", nil, "")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestClient_PlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := client.NewClient(ts.URL, "").ListRuleSets(context.Background(), store.OwnerCampaign)
	require.Error(t, err)
	assert.Equal(t, "API error (status 502): upstream down", err.Error())
}
