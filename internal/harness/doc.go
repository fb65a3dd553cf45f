// Package harness runs scenario-driven conformance tests.
//
// A scenario is a YAML file pairing a survey definition with an ordered
// list of submissions and their expected outcomes. The harness imports the
// definition into a fresh in-memory store, replays the submissions through
// a real engine, and produces a deterministic snapshot: per-step status,
// visited path, kept answers, terminal metadata, and final quota fill
// levels.
//
// Snapshots are compared against golden files (testdata/golden/) so a
// behavioral change in the walk, the evaluator, or quota gating shows up
// as a readable diff. Determinism comes from sequence-generated response
// ids and a pinned clock, never from scrubbing the output.
package harness
