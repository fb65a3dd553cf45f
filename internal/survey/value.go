package survey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface over the shapes an answer (or a condition
// operand) can take. Only Text, Number, Set, List, and Range implement it.
//
// Answers are restricted to Text, Number, and Set. List and Range only
// appear as condition operands (IN/NOT_IN membership and BETWEEN bounds).
type Value interface {
	value() // Sealed - only these types implement it
}

// Text is a scalar string value (short text, choice, date answers).
type Text string

func (Text) value() {}

// Number is a scalar numeric value (numeric and rating answers).
type Number float64

func (Number) value() {}

// Set is a multi-select answer: the selected option values, in selection
// order. Checkbox and ranking answers use this shape.
type Set []string

func (Set) value() {}

// Contains reports whether the set includes the given option value.
func (s Set) Contains(v string) bool {
	for _, elem := range s {
		if elem == v {
			return true
		}
	}
	return false
}

// List is an IN/NOT_IN membership list. Elements are Text or Number only.
type List []Value

func (List) value() {}

// Range is an inclusive [min, max] pair for BETWEEN conditions.
type Range [2]float64

func (Range) value() {}

// DecodeAnswerValue parses a JSON answer payload into a Value.
//
// Accepted shapes:
//   - string        -> Text
//   - number        -> Number
//   - array of strings (numbers are stringified) -> Set
//
// null, booleans, objects, and nested arrays are rejected: an unanswered
// question is represented by absence, never by null.
func DecodeAnswerValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return answerValueFrom(raw)
}

// AnswerValueFrom converts a decoded YAML/JSON value (string, number, or
// slice of scalars) into an answer Value. Used by the loader, the CLI, and
// the scenario harness, which hand the engine yaml.Unmarshal output.
func AnswerValueFrom(v any) (Value, error) {
	return answerValueFrom(v)
}

func answerValueFrom(v any) (Value, error) {
	switch val := v.(type) {
	case string:
		return Text(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Number(f), nil
	case int:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case float64:
		return Number(val), nil
	case []any:
		set := make(Set, 0, len(val))
		for i, elem := range val {
			s, err := scalarString(elem)
			if err != nil {
				return nil, fmt.Errorf("answer set[%d]: %w", i, err)
			}
			set = append(set, s)
		}
		return set, nil
	case nil:
		return nil, fmt.Errorf("null is not a valid answer: omit unanswered questions")
	default:
		return nil, fmt.Errorf("unsupported answer type %T", v)
	}
}

// scalarString renders a scalar set element as its option-value string.
func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("set elements must be scalar, got %T", v)
	}
}

// MarshalValue serializes a Value to JSON bytes.
// Uses type-switch dispatch so the union stays closed.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Text:
		return json.Marshal(string(val))
	case Number:
		return json.Marshal(float64(val))
	case Set:
		return json.Marshal([]string(val))
	case List:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Range:
		return json.Marshal([2]float64(val))
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// NumberOf attempts a numeric coercion of a scalar Value.
// Number converts directly; Text converts when it parses as a float.
// Set, List, and Range never coerce.
func NumberOf(v Value) (float64, bool) {
	switch val := v.(type) {
	case Number:
		return float64(val), true
	case Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// TextOf renders a scalar Value as its comparison string.
// Numbers use the shortest round-trip representation so "2" and 2 compare
// equal under string comparison.
func TextOf(v Value) (string, bool) {
	switch val := v.(type) {
	case Text:
		return string(val), true
	case Number:
		return strconv.FormatFloat(float64(val), 'f', -1, 64), true
	default:
		return "", false
	}
}
