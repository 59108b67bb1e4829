package rules

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var (
	sampleTypes = []ConditionType{TypeCartTotal, TypeOrderCount, TypeCustomerGroup, TypeFirstPurchase, TypeLocation}
	sampleOps   = []Operator{OpGreaterThan, OpLessThan, OpEqualTo}
)

// randomElements builds an alternating group/operator sequence. When withIDs
// is false roughly half of the conditions are left without an id.
func randomElements(groups, perGroup int, seed int64, withIDs bool) []RuleElement {
	rng := rand.New(rand.NewSource(seed))
	var out []RuleElement
	for g := 0; g < groups; g++ {
		if g > 0 {
			gate := GateAnd
			if rng.Intn(2) == 0 {
				gate = GateOr
			}
			out = append(out, GroupOperator{ID: fmt.Sprintf("op%d", g), Operator: gate})
		}
		groupID := fmt.Sprintf("g%d", g)
		conds := make([]Condition, 0, perGroup)
		for c := 0; c < perGroup; c++ {
			cond := Condition{
				GroupID:  groupID,
				Type:     sampleTypes[rng.Intn(len(sampleTypes))],
				Operator: sampleOps[rng.Intn(len(sampleOps))],
				Value:    fmt.Sprint(rng.Intn(1000)),
				Enabled:  rng.Intn(3) != 0,
			}
			if c > 0 {
				cond.LogicGate = GateAnd
			}
			if withIDs || rng.Intn(2) == 0 {
				cond.ID = fmt.Sprintf("%s-c%d", groupID, c)
			}
			conds = append(conds, cond)
		}
		match := MatchAll
		if rng.Intn(2) == 0 {
			match = MatchAny
		}
		out = append(out, RuleGroup{ID: groupID, Match: match, Conditions: conds})
	}
	return out
}

func allConditionIDs(elements []RuleElement) []string {
	var ids []string
	for _, el := range elements {
		if g, ok := asGroup(el); ok {
			for _, c := range g.Conditions {
				ids = append(ids, c.ID)
			}
		}
	}
	return ids
}

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

func TestProperty_RoundTrip(t *testing.T) {
	properties := newProperties()

	properties.Property("FromStorage(ToStorage(x)) equals x when ids are present", prop.ForAll(
		func(groups, perGroup int, seed int64) bool {
			x := randomElements(groups, perGroup, seed, true)
			got, err := FromStorage(ToStorage(x, sequence("unused")))
			if err != nil {
				return false
			}
			return reflect.DeepEqual(got, x)
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, 5),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_JSONRoundTrip(t *testing.T) {
	properties := newProperties()

	properties.Property("decoding the JSON of Elements(x) yields x, empty groups included", prop.ForAll(
		func(groups, perGroup int, seed int64) bool {
			x := randomElements(groups, perGroup, seed, true)
			data, err := json.Marshal(Elements(x))
			if err != nil {
				return false
			}
			var got Elements
			if err := json.Unmarshal(data, &got); err != nil {
				return false
			}
			return reflect.DeepEqual([]RuleElement(got), x)
		},
		gen.IntRange(1, 6),
		gen.IntRange(0, 5),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_StorageLength(t *testing.T) {
	properties := newProperties()

	properties.Property("ToStorage keeps one record per element, nil entries included", prop.ForAll(
		func(groups, perGroup int, seed int64, nilAt int) bool {
			x := randomElements(groups, perGroup, seed, true)
			pos := nilAt % (len(x) + 1)
			x = append(x[:pos:pos], append([]RuleElement{nil}, x[pos:]...)...)
			records := ToStorage(x, sequence("n"))
			if len(records) != len(x) {
				return false
			}
			return records[pos].Type == ""
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, 3),
		gen.Int64(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_IDAssignment(t *testing.T) {
	properties := newProperties()

	properties.Property("every stored condition has a unique, non-empty id", prop.ForAll(
		func(groups, perGroup int, seed int64) bool {
			x := randomElements(groups, perGroup, seed, false)
			stored, err := FromStorage(ToStorage(x, sequence("gen")))
			if err != nil {
				return false
			}
			seen := map[string]bool{}
			for _, id := range allConditionIDs(stored) {
				if id == "" || seen[id] {
					return false
				}
				seen[id] = true
			}
			return true
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, 5),
		gen.Int64(),
	))

	properties.Property("ids are generated again on every call", prop.ForAll(
		func(groups, perGroup int, seed int64) bool {
			x := randomElements(groups, perGroup, seed, false)
			ids := sequence("gen")
			first, _ := FromStorage(ToStorage(x, ids))
			second, _ := FromStorage(ToStorage(x, ids))
			a, b := allConditionIDs(first), allConditionIDs(second)
			orig := allConditionIDs(x)
			for i := range orig {
				if orig[i] == "" && a[i] == b[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 5),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_OrderPreserved(t *testing.T) {
	properties := newProperties()

	properties.Property("output[i] corresponds to input[i]", prop.ForAll(
		func(groups, perGroup int, seed int64) bool {
			x := randomElements(groups, perGroup, seed, false)
			records := ToStorage(x, sequence("gen"))
			if len(records) != len(x) {
				return false
			}
			for i := range x {
				if records[i].ID != x[i].ElementID() || records[i].Type != x[i].ElementType() {
					return false
				}
			}
			back, err := FromStorage(records)
			if err != nil || len(back) != len(records) {
				return false
			}
			for i := range back {
				if back[i].ElementID() != records[i].ID {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 8),
		gen.IntRange(0, 4),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_ConditionEdits(t *testing.T) {
	properties := newProperties()

	properties.Property("removal is idempotent", prop.ForAll(
		func(perGroup, pick int, seed int64) bool {
			g, _ := asGroup(randomElements(1, perGroup, seed, true)[0])
			id := fmt.Sprintf("g0-c%d", pick)
			once := RemoveCondition(g.Conditions, id)
			return reflect.DeepEqual(RemoveCondition(once, id), once)
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, 8),
		gen.Int64(),
	))

	properties.Property("empty patch changes nothing", prop.ForAll(
		func(perGroup, pick int, seed int64) bool {
			g, _ := asGroup(randomElements(1, perGroup, seed, true)[0])
			id := fmt.Sprintf("g0-c%d", pick)
			return reflect.DeepEqual(UpdateCondition(g.Conditions, id, ConditionPatch{}), g.Conditions)
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, 8),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
