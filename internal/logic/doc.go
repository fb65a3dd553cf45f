// Package logic implements the pure decision core of the response flow:
// condition evaluation, rule resolution, and question visibility.
//
// Nothing in this package touches storage or holds shared mutable state.
// Concurrent submissions may evaluate in parallel without coordination;
// all inputs arrive as values and all outputs are values.
//
// Evaluation never fails. A condition that references a missing answer or
// pairs an operator with an incompatible answer shape evaluates to false
// (logged, not surfaced) so that one malformed rule cannot block unrelated
// navigation. The cost is silent under-firing, which is the accepted
// trade-off.
package logic
