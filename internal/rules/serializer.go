package rules

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownElementType is returned by FromStorage for a record whose type is
// neither "group" nor "group_operator".
var ErrUnknownElementType = errors.New("unknown rule element type")

// ToStorage converts an ordered rule sequence into storage records.
//
// The output has the same length and order as elements, nil entries included.
// Conditions without an ID receive one from newID; everything else is copied as-is, disabled
// conditions included. elements is never mutated.
func ToStorage(elements []RuleElement, newID IDGenerator) []StorageRecord {
	if elements == nil {
		return nil
	}

	records := make([]StorageRecord, len(elements))
	for i, el := range elements {
		if g, ok := asGroup(el); ok {
			records[i] = groupRecord(g, newID)
		} else if o, ok := asOperator(el); ok {
			records[i] = operatorRecord(o)
		}
		// nil elements keep their slot as a zero record, which FromStorage
		// and ValidateRuleSet reject.
	}
	return records
}

func groupRecord(g RuleGroup, newID IDGenerator) StorageRecord {
	var conds []Condition
	if g.Conditions != nil {
		conds = make([]Condition, len(g.Conditions))
		for i, c := range g.Conditions {
			if c.ID == "" {
				c.ID = newID()
			}
			conds[i] = c
		}
	}
	return StorageRecord{
		ID:         g.ID,
		Type:       ElementGroup,
		Match:      g.Match,
		Conditions: conds,
	}
}

func operatorRecord(o GroupOperator) StorageRecord {
	return StorageRecord{
		ID:       o.ID,
		Type:     ElementGroupOperator,
		Operator: o.Operator,
	}
}

// FromStorage rebuilds the rule sequence from storage records, preserving order.
// Embedded conditions are passed through without defaulting or coercion.
func FromStorage(records []StorageRecord) ([]RuleElement, error) {
	if records == nil {
		return nil, nil
	}

	elements := make([]RuleElement, 0, len(records))
	for i, r := range records {
		switch r.Type {
		case ElementGroup:
			elements = append(elements, RuleGroup{
				ID:         r.ID,
				Match:      r.Match,
				Conditions: r.Conditions,
			})
		case ElementGroupOperator:
			elements = append(elements, GroupOperator{
				ID:       r.ID,
				Operator: r.Operator,
			})
		default:
			return nil, fmt.Errorf("%w: record[%d] has type %q", ErrUnknownElementType, i, r.Type)
		}
	}
	return elements, nil
}

// Elements is a rule sequence with a JSON encoding identical to its storage
// records. Unlike ToStorage, marshaling never assigns IDs.
type Elements []RuleElement

// MarshalJSON implements json.Marshaler.
func (e Elements) MarshalJSON() ([]byte, error) {
	keepID := func() string { return "" }
	records := ToStorage(e, keepID)
	if records == nil {
		records = []StorageRecord{}
	}
	return json.Marshal(records)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Elements) UnmarshalJSON(data []byte) error {
	var records []StorageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	elements, err := FromStorage(records)
	if err != nil {
		return err
	}
	*e = elements
	return nil
}
