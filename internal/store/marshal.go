package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/canvass/internal/survey"
)

// The marshal boundary: every JSON column goes through these helpers so a
// malformed row surfaces as a decode error at read time, never as silent
// misbehavior inside the evaluator.

func marshalConditions(conds []survey.Condition) (string, error) {
	if conds == nil {
		conds = []survey.Condition{}
	}
	data, err := json.Marshal(conds)
	if err != nil {
		return "", fmt.Errorf("marshal conditions: %w", err)
	}
	return string(data), nil
}

func unmarshalConditions(data string) ([]survey.Condition, error) {
	var conds []survey.Condition
	if err := json.Unmarshal([]byte(data), &conds); err != nil {
		return nil, fmt.Errorf("unmarshal conditions: %w", err)
	}
	return conds, nil
}

func marshalActions(actions []survey.Action) (string, error) {
	if actions == nil {
		actions = []survey.Action{}
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("marshal actions: %w", err)
	}
	return string(data), nil
}

func unmarshalActions(data string) ([]survey.Action, error) {
	var actions []survey.Action
	if err := json.Unmarshal([]byte(data), &actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return actions, nil
}

func marshalOptions(opts []survey.Option) (string, error) {
	if len(opts) == 0 {
		return "", nil
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}

func unmarshalOptions(data string) ([]survey.Option, error) {
	if data == "" {
		return nil, nil
	}
	var opts []survey.Option
	if err := json.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return opts, nil
}

func marshalAnswerValue(v survey.Value) (string, error) {
	data, err := survey.MarshalValue(v)
	if err != nil {
		return "", fmt.Errorf("marshal answer value: %w", err)
	}
	return string(data), nil
}

func unmarshalAnswerValue(data string) (survey.Value, error) {
	v, err := survey.DecodeAnswerValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal answer value: %w", err)
	}
	return v, nil
}
