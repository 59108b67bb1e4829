package rules

// AddCondition builds a new enabled condition for groupID from tmpl. It is not
// inserted anywhere; the caller appends it to its own condition slice.
func AddCondition(groupID string, tmpl ConditionTemplate, newID IDGenerator) Condition {
	return Condition{
		ID:         newID(),
		GroupID:    groupID,
		Type:       tmpl.Type,
		Operator:   tmpl.Operator,
		Value:      tmpl.Value,
		Enabled:    true,
		LogicGate:  tmpl.LogicGate,
		ProductID:  tmpl.ProductID,
		CategoryID: tmpl.CategoryID,
	}
}

// RemoveCondition returns a copy of conds without the condition identified by id.
// Removing an unknown id is not an error: the copy is returned unchanged.
func RemoveCondition(conds []Condition, id string) []Condition {
	if conds == nil {
		return nil
	}
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// UpdateCondition returns a copy of conds where the condition identified by id
// has the non-nil fields of patch merged in. Other conditions are copied
// unchanged; an unknown id is a no-op.
func UpdateCondition(conds []Condition, id string, patch ConditionPatch) []Condition {
	if conds == nil {
		return nil
	}
	out := make([]Condition, len(conds))
	copy(out, conds)
	for i := range out {
		if out[i].ID == id {
			out[i] = patch.apply(out[i])
		}
	}
	return out
}

func (p ConditionPatch) apply(c Condition) Condition {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Operator != nil {
		c.Operator = *p.Operator
	}
	if p.Value != nil {
		c.Value = *p.Value
	}
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.LogicGate != nil {
		c.LogicGate = *p.LogicGate
	}
	if p.ProductID != nil {
		c.ProductID = *p.ProductID
	}
	if p.CategoryID != nil {
		c.CategoryID = *p.CategoryID
	}
	return c
}

// IsEmpty reports whether the patch would change nothing.
func (p ConditionPatch) IsEmpty() bool {
	return p == ConditionPatch{}
}

// NormalizeLogicGates returns a copy of conds satisfying the gate invariant: the
// first condition has no gate and every later one has one (GateAnd when missing).
func NormalizeLogicGates(conds []Condition) []Condition {
	if conds == nil {
		return nil
	}
	out := make([]Condition, len(conds))
	copy(out, conds)
	for i := range out {
		switch {
		case i == 0:
			out[i].LogicGate = ""
		case out[i].LogicGate == "":
			out[i].LogicGate = GateAnd
		}
	}
	return out
}

// AddGroup appends an empty group to elements. When elements already holds a
// group, a GroupOperator carrying gate is inserted first so that groups and
// operators keep alternating. It returns the new sequence and the new group.
func AddGroup(elements []RuleElement, match Match, gate LogicGate, newID IDGenerator) ([]RuleElement, RuleGroup) {
	group := RuleGroup{ID: newID(), Match: match, Conditions: []Condition{}}

	out := make([]RuleElement, 0, len(elements)+2)
	out = append(out, elements...)
	if len(out) > 0 {
		out = append(out, GroupOperator{ID: newID(), Operator: gate})
	}
	out = append(out, group)
	return out, group
}

// RemoveGroup removes the group identified by groupID together with one
// adjacent operator: the preceding one, or the following one when the group
// comes first. An unknown id returns an unchanged copy.
func RemoveGroup(elements []RuleElement, groupID string) []RuleElement {
	idx := indexOfGroup(elements, groupID)
	out := make([]RuleElement, 0, len(elements))
	if idx < 0 {
		return append(out, elements...)
	}

	from, to := idx, idx+1
	if idx > 0 && isOperator(elements[idx-1]) {
		from = idx - 1
	} else if idx+1 < len(elements) && isOperator(elements[idx+1]) {
		to = idx + 2
	}
	out = append(out, elements[:from]...)
	return append(out, elements[to:]...)
}

// UpdateGroup sets the match mode of the group identified by groupID.
func UpdateGroup(elements []RuleElement, groupID string, match Match) []RuleElement {
	return mapGroup(elements, groupID, func(g RuleGroup) RuleGroup {
		g.Match = match
		return g
	})
}

// SetGroupOperator sets the gate of the operator identified by operatorID.
func SetGroupOperator(elements []RuleElement, operatorID string, gate LogicGate) []RuleElement {
	out := make([]RuleElement, len(elements))
	copy(out, elements)
	for i, el := range out {
		if op, ok := asOperator(el); ok && op.ID == operatorID {
			op.Operator = gate
			out[i] = op
		}
	}
	return out
}

// AddGroupCondition appends a new condition built from tmpl to the group
// identified by groupID and restores the gate invariant of that group. The
// returned condition is the stored one (zero value if the group is unknown).
func AddGroupCondition(elements []RuleElement, groupID string, tmpl ConditionTemplate, newID IDGenerator) ([]RuleElement, Condition) {
	if indexOfGroup(elements, groupID) < 0 {
		out := make([]RuleElement, len(elements))
		copy(out, elements)
		return out, Condition{}
	}

	cond := AddCondition(groupID, tmpl, newID)
	var stored Condition
	out := mapGroup(elements, groupID, func(g RuleGroup) RuleGroup {
		conds := make([]Condition, 0, len(g.Conditions)+1)
		conds = append(conds, g.Conditions...)
		conds = append(conds, cond)
		g.Conditions = NormalizeLogicGates(conds)
		stored = g.Conditions[len(g.Conditions)-1]
		return g
	})
	return out, stored
}

// RemoveGroupCondition removes condition id from the group identified by groupID.
func RemoveGroupCondition(elements []RuleElement, groupID, id string) []RuleElement {
	return mapGroup(elements, groupID, func(g RuleGroup) RuleGroup {
		g.Conditions = NormalizeLogicGates(RemoveCondition(g.Conditions, id))
		return g
	})
}

// UpdateGroupCondition merges patch into condition id of the group identified by groupID.
func UpdateGroupCondition(elements []RuleElement, groupID, id string, patch ConditionPatch) []RuleElement {
	return mapGroup(elements, groupID, func(g RuleGroup) RuleGroup {
		g.Conditions = NormalizeLogicGates(UpdateCondition(g.Conditions, id, patch))
		return g
	})
}

// FindGroup returns the group identified by groupID.
func FindGroup(elements []RuleElement, groupID string) (RuleGroup, bool) {
	idx := indexOfGroup(elements, groupID)
	if idx < 0 {
		return RuleGroup{}, false
	}
	g, _ := asGroup(elements[idx])
	return g, true
}

// GroupOfCondition returns the id of the group holding condition id.
func GroupOfCondition(elements []RuleElement, id string) (string, bool) {
	for _, el := range elements {
		g, ok := asGroup(el)
		if !ok {
			continue
		}
		for _, c := range g.Conditions {
			if c.ID == id {
				return g.ID, true
			}
		}
	}
	return "", false
}

// Flatten splits elements into the arena form: one Group per RuleGroup and a
// flat condition list whose GroupID points at the owning group. Operators are
// not part of the arena and are dropped.
func Flatten(elements []RuleElement) ([]Group, []Condition) {
	var groups []Group
	var conds []Condition
	for _, el := range elements {
		g, ok := asGroup(el)
		if !ok {
			continue
		}
		groups = append(groups, Group{ID: g.ID, Operator: g.Match})
		for _, c := range g.Conditions {
			c.GroupID = g.ID
			conds = append(conds, c)
		}
	}
	return groups, conds
}

// ConditionsInGroup returns, in order, the conditions whose GroupID is groupID.
func ConditionsInGroup(conds []Condition, groupID string) []Condition {
	var out []Condition
	for _, c := range conds {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	return out
}

func mapGroup(elements []RuleElement, groupID string, fn func(RuleGroup) RuleGroup) []RuleElement {
	out := make([]RuleElement, len(elements))
	copy(out, elements)
	for i, el := range out {
		if g, ok := asGroup(el); ok && g.ID == groupID {
			out[i] = fn(g)
		}
	}
	return out
}

func indexOfGroup(elements []RuleElement, groupID string) int {
	for i, el := range elements {
		if g, ok := asGroup(el); ok && g.ID == groupID {
			return i
		}
	}
	return -1
}

func asGroup(el RuleElement) (RuleGroup, bool) {
	switch g := el.(type) {
	case RuleGroup:
		return g, true
	case *RuleGroup:
		if g != nil {
			return *g, true
		}
	}
	return RuleGroup{}, false
}

func asOperator(el RuleElement) (GroupOperator, bool) {
	switch o := el.(type) {
	case GroupOperator:
		return o, true
	case *GroupOperator:
		if o != nil {
			return *o, true
		}
	}
	return GroupOperator{}, false
}

func isOperator(el RuleElement) bool {
	_, ok := asOperator(el)
	return ok
}
