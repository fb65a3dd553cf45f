// Package survey defines the domain value model for the response-flow
// decision engine: questions, answers, logic rules, quotas, and the
// tagged-union Condition/Action payloads both rules and quotas share.
//
// Condition and Action are closed unions discriminated by operator/type.
// They are validated at the data-access boundary (strict UnmarshalJSON plus
// Validate), so the evaluator downstream can be exhaustive over known shapes
// instead of probing open maps.
package survey
