package audit

import (
	"sort"

	"github.com/TimurManjosov/goloyalty/internal/rules"
)

// Changes lists the ids touched by a rule-set write.
type Changes struct {
	GroupsAdded       []string `json:"groupsAdded,omitempty"`
	GroupsRemoved     []string `json:"groupsRemoved,omitempty"`
	GroupsChanged     []string `json:"groupsChanged,omitempty"`
	OperatorsChanged  []string `json:"operatorsChanged,omitempty"`
	ConditionsAdded   []string `json:"conditionsAdded,omitempty"`
	ConditionsRemoved []string `json:"conditionsRemoved,omitempty"`
	ConditionsChanged []string `json:"conditionsChanged,omitempty"`
}

// Empty reports whether nothing changed.
func (c *Changes) Empty() bool {
	return c == nil || (len(c.GroupsAdded) == 0 && len(c.GroupsRemoved) == 0 &&
		len(c.GroupsChanged) == 0 && len(c.OperatorsChanged) == 0 &&
		len(c.ConditionsAdded) == 0 && len(c.ConditionsRemoved) == 0 &&
		len(c.ConditionsChanged) == 0)
}

type recordIndex struct {
	groups     map[string]rules.Match
	operators  map[string]rules.LogicGate
	conditions map[string]rules.Condition
}

func indexRecords(records []rules.StorageRecord) recordIndex {
	idx := recordIndex{
		groups:     make(map[string]rules.Match),
		operators:  make(map[string]rules.LogicGate),
		conditions: make(map[string]rules.Condition),
	}
	for _, rec := range records {
		switch rec.Type {
		case rules.ElementGroup:
			idx.groups[rec.ID] = rec.Match
			for _, c := range rec.Conditions {
				c.GroupID = rec.ID
				idx.conditions[c.ID] = c
			}
		case rules.ElementGroupOperator:
			idx.operators[rec.ID] = rec.Operator
		}
	}
	return idx
}

// Diff compares two stored rule sets by id. Moving a condition to another
// group counts as a change. It returns nil when nothing changed.
func Diff(before, after []rules.StorageRecord) *Changes {
	b, a := indexRecords(before), indexRecords(after)
	var ch Changes

	for id, match := range a.groups {
		old, ok := b.groups[id]
		switch {
		case !ok:
			ch.GroupsAdded = append(ch.GroupsAdded, id)
		case old != match:
			ch.GroupsChanged = append(ch.GroupsChanged, id)
		}
	}
	for id := range b.groups {
		if _, ok := a.groups[id]; !ok {
			ch.GroupsRemoved = append(ch.GroupsRemoved, id)
		}
	}

	for id, gate := range a.operators {
		if old, ok := b.operators[id]; ok && old != gate {
			ch.OperatorsChanged = append(ch.OperatorsChanged, id)
		}
	}

	for id, c := range a.conditions {
		old, ok := b.conditions[id]
		switch {
		case !ok:
			ch.ConditionsAdded = append(ch.ConditionsAdded, id)
		case old != c:
			ch.ConditionsChanged = append(ch.ConditionsChanged, id)
		}
	}
	for id := range b.conditions {
		if _, ok := a.conditions[id]; !ok {
			ch.ConditionsRemoved = append(ch.ConditionsRemoved, id)
		}
	}

	if ch.Empty() {
		return nil
	}
	for _, ids := range [][]string{
		ch.GroupsAdded, ch.GroupsRemoved, ch.GroupsChanged, ch.OperatorsChanged,
		ch.ConditionsAdded, ch.ConditionsRemoved, ch.ConditionsChanged,
	} {
		sort.Strings(ids)
	}
	return &ch
}
