package harness

import (
	"fmt"
	"reflect"
)

// Verify checks a run result against the scenario's expectations.
// Returns one message per mismatch; empty means the scenario passed.
func Verify(scenario *Scenario, result *Result) []string {
	var failures []string

	if len(result.Steps) != len(scenario.Submissions) {
		failures = append(failures, fmt.Sprintf(
			"expected %d steps, got %d", len(scenario.Submissions), len(result.Steps)))
		return failures
	}

	for i, step := range scenario.Submissions {
		if step.Expect == nil {
			continue
		}
		got := result.Steps[i]
		exp := step.Expect

		if got.Status != exp.Status {
			failures = append(failures, fmt.Sprintf(
				"step %d: expected status %q, got %q", i, exp.Status, got.Status))
			continue
		}
		if exp.TerminalReason != "" && got.TerminalReason != exp.TerminalReason {
			failures = append(failures, fmt.Sprintf(
				"step %d: expected terminal reason %q, got %q", i, exp.TerminalReason, got.TerminalReason))
		}
		if len(exp.Visited) > 0 && !reflect.DeepEqual(got.Visited, exp.Visited) {
			failures = append(failures, fmt.Sprintf(
				"step %d: expected visited %v, got %v", i, exp.Visited, got.Visited))
		}
		if len(exp.AnswersKept) > 0 && !reflect.DeepEqual(got.AnswersKept, exp.AnswersKept) {
			failures = append(failures, fmt.Sprintf(
				"step %d: expected kept answers %v, got %v", i, exp.AnswersKept, got.AnswersKept))
		}
		if exp.RedirectURL != "" && got.RedirectURL != exp.RedirectURL {
			failures = append(failures, fmt.Sprintf(
				"step %d: expected redirect %q, got %q", i, exp.RedirectURL, got.RedirectURL))
		}
	}

	for _, expQuota := range scenario.Quotas {
		found := false
		for _, got := range result.Quotas {
			if got.ID != expQuota.ID {
				continue
			}
			found = true
			if got.Count != expQuota.Count {
				failures = append(failures, fmt.Sprintf(
					"quota %s: expected count %d, got %d", expQuota.ID, expQuota.Count, got.Count))
			}
		}
		if !found {
			failures = append(failures, fmt.Sprintf("quota %s: not found in result", expQuota.ID))
		}
	}

	return failures
}
