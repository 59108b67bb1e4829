package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimurManjosov/goloyalty/internal/rules"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

// recordingSink is a test implementation of Sink
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func TestService_LogAndClose(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(sink, zerolog.Nop(), 16)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	svc.Log(Event{Action: ActionSaved, Kind: store.OwnerCoupon, OwnerID: "X"})
	svc.Log(Event{Action: ActionDeleted, Kind: store.OwnerCoupon, OwnerID: "X", Status: StatusFailure})
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	svc.Log(Event{Action: ActionSaved})

	require.Len(t, sink.events, 2)
	assert.Equal(t, fixed, sink.events[0].OccurredAt)
	assert.Equal(t, StatusSuccess, sink.events[0].Status)
	assert.Equal(t, StatusFailure, sink.events[1].Status)
}

func TestService_SinkErrorDoesNotStopWorker(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	svc := NewService(sink, zerolog.Nop(), 4)
	svc.Log(Event{Action: ActionSaved})
	svc.Log(Event{Action: ActionSaved})
	require.NoError(t, svc.Close())
	assert.Empty(t, sink.events)
}

func TestService_Reader(t *testing.T) {
	svc := NewService(NewMemorySink(10), zerolog.Nop(), 4)
	defer svc.Close()
	_, ok := svc.Reader()
	assert.True(t, ok)

	svc2 := NewService(&recordingSink{}, zerolog.Nop(), 4)
	defer svc2.Close()
	_, ok = svc2.Reader()
	assert.False(t, ok)
}

func TestMemorySink_RingAndFilter(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, sink.Write(ctx, Event{Kind: store.OwnerCoupon, OwnerID: id}))
	}
	require.NoError(t, sink.Write(ctx, Event{Kind: store.OwnerCampaign, OwnerID: "d"}))

	all, err := sink.List(ctx, Filter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, e := range all {
		ids = append(ids, string(e.Kind)+"/"+e.OwnerID)
	}
	assert.Equal(t, []string{"campaign/d", "coupon/d", "coupon/c"}, ids)

	coupons, err := sink.List(ctx, Filter{Kind: store.OwnerCoupon, OwnerID: "d"})
	require.NoError(t, err)
	require.Len(t, coupons, 1)

	limited, err := sink.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, store.OwnerCampaign, limited[0].Kind)
}

func TestMemorySink_EmptyListIsNotNil(t *testing.T) {
	events, err := NewMemorySink(2).List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventBuilder(t *testing.T) {
	r := httptest.NewRequest("PUT", "/v1/rulesets/coupon/X", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	r.Header.Set("User-Agent", "loyalty-cli")
	r = r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, "req-1"))

	e := NewEventBuilder(r).
		ForRuleSet(store.OwnerCoupon, "X").
		WithAction(ActionSaved).
		WithETags(`"1"`, `"2"`).
		Failure("boom").
		Build()

	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, Source{IPAddress: "10.0.0.7", UserAgent: "loyalty-cli"}, e.Source)
	assert.Equal(t, store.OwnerCoupon, e.Kind)
	assert.Equal(t, `"2"`, e.AfterETag)
	assert.Equal(t, StatusFailure, e.Status)
	assert.Equal(t, "boom", e.ErrorMessage)
}

func TestDiff(t *testing.T) {
	before := []rules.StorageRecord{
		{ID: "g1", Type: rules.ElementGroup, Match: rules.MatchAll, Conditions: []rules.Condition{
			{ID: "c1", Type: rules.TypeCartTotal, Operator: rules.OpGreaterThan, Value: "10", Enabled: true},
			{ID: "c2", Type: rules.TypeLocation, Operator: rules.OpEqualTo, Value: "DE", Enabled: true, LogicGate: rules.GateAnd},
		}},
		{ID: "op1", Type: rules.ElementGroupOperator, Operator: rules.GateAnd},
		{ID: "g2", Type: rules.ElementGroup, Match: rules.MatchAny},
	}
	after := []rules.StorageRecord{
		{ID: "g1", Type: rules.ElementGroup, Match: rules.MatchAny, Conditions: []rules.Condition{
			{ID: "c1", Type: rules.TypeCartTotal, Operator: rules.OpGreaterThan, Value: "20", Enabled: true},
			{ID: "c3", Type: rules.TypeFirstPurchase, Enabled: true, LogicGate: rules.GateOr},
		}},
		{ID: "op1", Type: rules.ElementGroupOperator, Operator: rules.GateOr},
		{ID: "g3", Type: rules.ElementGroup, Match: rules.MatchAll},
	}

	got := Diff(before, after)
	require.NotNil(t, got)
	assert.Equal(t, &Changes{
		GroupsAdded:       []string{"g3"},
		GroupsRemoved:     []string{"g2"},
		GroupsChanged:     []string{"g1"},
		OperatorsChanged:  []string{"op1"},
		ConditionsAdded:   []string{"c3"},
		ConditionsRemoved: []string{"c2"},
		ConditionsChanged: []string{"c1"},
	}, got)

	assert.Nil(t, Diff(before, before))
	assert.Nil(t, Diff(nil, []rules.StorageRecord{}))
	assert.Equal(t, []string{"g1", "g2"}, Diff(nil, before).GroupsAdded)
}
