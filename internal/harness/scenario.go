package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a definition, an ordered list
// of submissions, and expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Definition is the path to the survey definition YAML, relative to
	// the scenario file's directory.
	Definition string `yaml:"definition"`

	// Submissions run in order against the same store, so earlier
	// completions affect later quota gating.
	Submissions []SubmissionStep `yaml:"submissions"`

	// Quotas asserts final fill levels after all submissions.
	Quotas []QuotaExpect `yaml:"quotas,omitempty"`
}

// SubmissionStep is one submission with optional expectations.
type SubmissionStep struct {
	// Answers maps question ids to YAML scalar/list answer values.
	Answers map[string]any `yaml:"answers"`

	// Expect validates the outcome. Nil means "must not error".
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a submission.
// All fields are subset checks: empty fields are not validated.
type ExpectClause struct {
	// Status is "completed", "terminated", or "rejected".
	Status string `yaml:"status"`

	// TerminalReason checks why a terminated submission ended.
	TerminalReason string `yaml:"terminal_reason,omitempty"`

	// Visited checks the exact walk path (question ids in order).
	Visited []string `yaml:"visited,omitempty"`

	// AnswersKept checks exactly which answers persisted (sorted ids).
	AnswersKept []string `yaml:"answers_kept,omitempty"`

	// RedirectURL checks the redirect handed back by a REDIRECT quota.
	RedirectURL string `yaml:"redirect_url,omitempty"`
}

// QuotaExpect asserts one quota's final count.
type QuotaExpect struct {
	ID    string `yaml:"id"`
	Count int    `yaml:"count"`
}

// Expected statuses for ExpectClause.Status.
const (
	ExpectCompleted  = "completed"
	ExpectTerminated = "terminated"
	ExpectRejected   = "rejected"
)

// LoadScenario reads and parses a scenario YAML file. The definition path
// is resolved relative to the scenario file. Unknown fields are rejected
// to catch typos ("expect:" vs "expects:").
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if scenario.Definition != "" && !filepath.IsAbs(scenario.Definition) {
		scenario.Definition = filepath.Join(filepath.Dir(path), scenario.Definition)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Definition == "" {
		return fmt.Errorf("definition is required")
	}
	if _, err := os.Stat(s.Definition); os.IsNotExist(err) {
		return fmt.Errorf("definition file not found: %s", s.Definition)
	}
	if len(s.Submissions) == 0 {
		return fmt.Errorf("submissions list is required and must be non-empty")
	}
	for i, step := range s.Submissions {
		if len(step.Answers) == 0 {
			return fmt.Errorf("submissions[%d]: answers is required", i)
		}
		if step.Expect != nil {
			switch step.Expect.Status {
			case ExpectCompleted, ExpectTerminated, ExpectRejected:
			case "":
				return fmt.Errorf("submissions[%d].expect: status is required", i)
			default:
				return fmt.Errorf("submissions[%d].expect: unknown status %q", i, step.Expect.Status)
			}
		}
	}
	for i, q := range s.Quotas {
		if q.ID == "" {
			return fmt.Errorf("quotas[%d]: id is required", i)
		}
		if q.Count < 0 {
			return fmt.Errorf("quotas[%d]: count must be non-negative", i)
		}
	}
	return nil
}
