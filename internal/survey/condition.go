package survey

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operator enumerates the condition operators. The set is closed: the
// evaluator type-switches over exactly these and nothing else.
type Operator string

const (
	OpEquals      Operator = "EQUALS"
	OpNotEquals   Operator = "NOT_EQUALS"
	OpIn          Operator = "IN"
	OpNotIn       Operator = "NOT_IN"
	OpLessThan    Operator = "LESS_THAN"
	OpGreaterThan Operator = "GREATER_THAN"
	OpBetween     Operator = "BETWEEN"
	OpContains    Operator = "CONTAINS"
)

// ValidOperators defines the allowed operator strings.
var ValidOperators = map[Operator]bool{
	OpEquals:      true,
	OpNotEquals:   true,
	OpIn:          true,
	OpNotIn:       true,
	OpLessThan:    true,
	OpGreaterThan: true,
	OpBetween:     true,
	OpContains:    true,
}

// Condition is one AND-combined predicate on a single question's answer.
//
// The operand shape is fixed by the operator:
//
//	EQUALS / NOT_EQUALS / CONTAINS    -> scalar (Text or Number)
//	LESS_THAN / GREATER_THAN          -> Number
//	IN / NOT_IN                       -> List of scalars
//	BETWEEN                           -> Range [min, max]
//
// UnmarshalJSON enforces the pairing, so a Condition that decodes is
// structurally sound before it ever reaches the evaluator.
type Condition struct {
	QuestionID string
	Operator   Operator
	Value      Value
}

// conditionWire is the persisted JSON shape shared by rules and quotas.
type conditionWire struct {
	QuestionID string          `json:"question_id"`
	Operator   Operator        `json:"operator"`
	Value      json.RawMessage `json:"value"`
}

// UnmarshalJSON decodes and validates a condition in one step.
// The operand is decoded according to the operator's required shape;
// mismatches are errors here, not downstream surprises.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var wire conditionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.QuestionID == "" {
		return fmt.Errorf("condition: question_id is required")
	}
	if !ValidOperators[wire.Operator] {
		return fmt.Errorf("condition: invalid operator %q", wire.Operator)
	}
	if len(wire.Value) == 0 {
		return fmt.Errorf("condition %s on %s: value is required", wire.Operator, wire.QuestionID)
	}

	val, err := decodeOperand(wire.Operator, wire.Value)
	if err != nil {
		return fmt.Errorf("condition %s on %s: %w", wire.Operator, wire.QuestionID, err)
	}

	c.QuestionID = wire.QuestionID
	c.Operator = wire.Operator
	c.Value = val
	return nil
}

// MarshalJSON writes the persisted wire shape.
func (c Condition) MarshalJSON() ([]byte, error) {
	valJSON, err := MarshalValue(c.Value)
	if err != nil {
		return nil, fmt.Errorf("condition %s on %s: %w", c.Operator, c.QuestionID, err)
	}
	return json.Marshal(conditionWire{
		QuestionID: c.QuestionID,
		Operator:   c.Operator,
		Value:      valJSON,
	})
}

// Validate re-checks the operator/operand pairing for conditions built in
// code rather than decoded from JSON. Returns all errors.
func (c *Condition) Validate() []ValidationError {
	var errs []ValidationError
	if c.QuestionID == "" {
		errs = append(errs, ValidationError{Field: "question_id", Message: "question_id is required"})
	}
	if !ValidOperators[c.Operator] {
		errs = append(errs, ValidationError{
			Field:   "operator",
			Message: fmt.Sprintf("invalid operator %q", c.Operator),
		})
		return errs
	}
	if c.Value == nil {
		errs = append(errs, ValidationError{Field: "value", Message: "value is required"})
		return errs
	}

	switch c.Operator {
	case OpEquals, OpNotEquals, OpContains:
		switch c.Value.(type) {
		case Text, Number:
		default:
			errs = append(errs, ValidationError{
				Field:   "value",
				Message: fmt.Sprintf("%s requires a scalar value, got %T", c.Operator, c.Value),
			})
		}
	case OpLessThan, OpGreaterThan:
		if _, ok := c.Value.(Number); !ok {
			errs = append(errs, ValidationError{
				Field:   "value",
				Message: fmt.Sprintf("%s requires a numeric value, got %T", c.Operator, c.Value),
			})
		}
	case OpIn, OpNotIn:
		list, ok := c.Value.(List)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "value",
				Message: fmt.Sprintf("%s requires a list value, got %T", c.Operator, c.Value),
			})
			break
		}
		if len(list) == 0 {
			errs = append(errs, ValidationError{Field: "value", Message: fmt.Sprintf("%s list must not be empty", c.Operator)})
		}
		for i, elem := range list {
			switch elem.(type) {
			case Text, Number:
			default:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("value[%d]", i),
					Message: fmt.Sprintf("list elements must be scalar, got %T", elem),
				})
			}
		}
	case OpBetween:
		rng, ok := c.Value.(Range)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "value",
				Message: fmt.Sprintf("BETWEEN requires a [min, max] range, got %T", c.Value),
			})
			break
		}
		if rng[0] > rng[1] {
			errs = append(errs, ValidationError{
				Field:   "value",
				Message: fmt.Sprintf("BETWEEN range is inverted: [%v, %v]", rng[0], rng[1]),
			})
		}
	}
	return errs
}

// decodeOperand parses the raw operand JSON into the shape the operator
// requires. Floats are fine here (unlike ids and counters, operands are
// user-authored comparison values).
func decodeOperand(op Operator, raw json.RawMessage) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch op {
	case OpEquals, OpNotEquals, OpContains:
		return decodeScalar(v)

	case OpLessThan, OpGreaterThan:
		n, ok := numberFrom(v)
		if !ok {
			return nil, fmt.Errorf("requires a numeric value, got %s", string(raw))
		}
		return Number(n), nil

	case OpIn, OpNotIn:
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("requires an array value, got %s", string(raw))
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("membership list must not be empty")
		}
		list := make(List, 0, len(arr))
		for i, elem := range arr {
			s, err := decodeScalar(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list = append(list, s)
		}
		return list, nil

	case OpBetween:
		arr, ok := v.([]any)
		if !ok || len(arr) != 2 {
			return nil, fmt.Errorf("requires a 2-element [min, max] array, got %s", string(raw))
		}
		min, okMin := numberFrom(arr[0])
		max, okMax := numberFrom(arr[1])
		if !okMin || !okMax {
			return nil, fmt.Errorf("range bounds must be numeric, got %s", string(raw))
		}
		if min > max {
			return nil, fmt.Errorf("range is inverted: [%v, %v]", min, max)
		}
		return Range{min, max}, nil

	default:
		return nil, fmt.Errorf("unhandled operator %q", op)
	}
}

func decodeScalar(v any) (Value, error) {
	switch val := v.(type) {
	case string:
		return Text(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Number(f), nil
	default:
		return nil, fmt.Errorf("requires a scalar value, got %T", v)
	}
}

func numberFrom(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
