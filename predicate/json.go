package predicate

import (
	"encoding/json"
	"fmt"
)

// wireNode is the JSON shape shared by every node and target variant
type wireNode struct {
	Kind       string            `json:"kind"`
	Logical    LogicalOp         `json:"logical,omitempty"`
	IsNegated  *bool             `json:"isNegated,omitempty"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
	Target     json.RawMessage   `json:"target,omitempty"`
	Operator   string            `json:"operator,omitempty"`
	Value      json.RawMessage   `json:"value,omitempty"`
	ValueType  string            `json:"valueType,omitempty"`
	Name       string            `json:"name,omitempty"`
	Args       []json.RawMessage `json:"args,omitempty"`
}

// MarshalJSON encodes the logical node with its kind discriminator
func (l *Logical) MarshalJSON() ([]byte, error) {
	conditions := l.Conditions
	if conditions == nil {
		conditions = []Node{}
	}
	return json.Marshal(struct {
		Kind       Kind      `json:"kind"`
		Logical    LogicalOp `json:"logical"`
		IsNegated  bool      `json:"isNegated"`
		Conditions []Node    `json:"conditions"`
	}{KindLogical, l.Logical, l.IsNegated, conditions})
}

// MarshalJSON encodes the condition with its kind discriminator
func (c *Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind      Kind   `json:"kind"`
		Target    Target `json:"target,omitempty"`
		Operator  string `json:"operator,omitempty"`
		Value     any    `json:"value,omitempty"`
		ValueType string `json:"valueType,omitempty"`
	}{KindCondition, c.Target, c.Operator, c.Value, c.ValueType})
}

// MarshalJSON encodes the unknown node with the kind it was decoded with
func (u *Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"kind": u.RawKind})
}

// MarshalJSON encodes the field target
func (f *FieldTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind TargetKind `json:"kind"`
		Name string     `json:"name"`
	}{TargetField, f.Name})
}

// MarshalJSON encodes the constant target
func (c *ConstantTarget) MarshalJSON() ([]byte, error) {
	type constantValue struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	}
	var value *constantValue
	if c.Value != nil {
		value = &constantValue{Type: c.Value.Type, Value: c.Value.Value}
	}
	return json.Marshal(struct {
		Kind  TargetKind     `json:"kind"`
		Value *constantValue `json:"value,omitempty"`
	}{TargetConstant, value})
}

// MarshalJSON encodes the function target
func (f *FunctionTarget) MarshalJSON() ([]byte, error) {
	args := f.Args
	if args == nil {
		args = []Node{}
	}
	return json.Marshal(struct {
		Kind TargetKind `json:"kind"`
		Name string     `json:"name"`
		Args []Node     `json:"args"`
	}{TargetFunction, f.Name, args})
}

// DecodeNode decodes a predicate tree from its JSON form.
// Nodes with an unrecognised kind decode to *Unknown rather than failing,
// so that an evaluator can report them as unevaluable.
func DecodeNode(data []byte) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode predicate node: %w", err)
	}

	switch Kind(w.Kind) {
	case KindLogical:
		node := &Logical{Logical: w.Logical}
		if w.IsNegated != nil {
			node.IsNegated = *w.IsNegated
		}
		for i, raw := range w.Conditions {
			child, err := DecodeNode(raw)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", i, err)
			}
			node.Conditions = append(node.Conditions, child)
		}
		return node, nil

	case KindCondition:
		node := &Condition{Operator: w.Operator, ValueType: w.ValueType}
		if len(w.Target) > 0 && string(w.Target) != "null" {
			target, err := decodeTarget(w.Target)
			if err != nil {
				return nil, err
			}
			node.Target = target
		}
		if len(w.Value) > 0 {
			if err := json.Unmarshal(w.Value, &node.Value); err != nil {
				return nil, fmt.Errorf("failed to decode condition value: %w", err)
			}
		}
		return node, nil

	default:
		return &Unknown{RawKind: w.Kind}, nil
	}
}

// decodeTarget decodes one of the three target variants
func decodeTarget(data []byte) (Target, error) {
	var w struct {
		Kind  string            `json:"kind"`
		Name  string            `json:"name"`
		Value *json.RawMessage  `json:"value"`
		Args  []json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode target: %w", err)
	}

	switch TargetKind(w.Kind) {
	case TargetField:
		return &FieldTarget{Name: w.Name}, nil

	case TargetConstant:
		target := &ConstantTarget{}
		if w.Value != nil && string(*w.Value) != "null" {
			var cv struct {
				Type  string `json:"type"`
				Value any    `json:"value"`
			}
			if err := json.Unmarshal(*w.Value, &cv); err != nil {
				return nil, fmt.Errorf("failed to decode constant: %w", err)
			}
			target.Value = &ConstantValue{Type: cv.Type, Value: cv.Value}
		}
		return target, nil

	case TargetFunction:
		target := &FunctionTarget{Name: w.Name}
		for i, raw := range w.Args {
			arg, err := DecodeNode(raw)
			if err != nil {
				return nil, fmt.Errorf("argument %d of %s: %w", i, w.Name, err)
			}
			target.Args = append(target.Args, arg)
		}
		return target, nil

	default:
		return nil, fmt.Errorf("unknown target kind %q", w.Kind)
	}
}
