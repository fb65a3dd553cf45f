// Package engine orchestrates response submission.
//
// A submission runs through a fixed pipeline:
//
//  1. Collect: answers arrive as a typed map, already decoded.
//  2. Walk: the navigation walk replays the respondent's path through the
//     survey - visibility rules applied, skip/branch jumps followed - and
//     decides whether the path reached the end or was terminated by an
//     END_SURVEY action.
//  3. Validate: required questions that were visited while visible must be
//     answered. Hidden and skipped-over questions are exempt, and their
//     answers are dropped rather than persisted.
//  4. Gate: active quotas are matched against the surviving answers. The
//     first matching full quota whose action is not CONTINUE terminates the
//     submission with that quota's action.
//  5. Commit: the response and its answers persist in one transaction.
//  6. Count: a completed response increments every quota it matched,
//     idempotently. Terminated responses are stored for analysis but never
//     counted.
//
// The walk is bounded by a step budget so that an authored rule cycle
// (a jump backward that re-fires) degrades into a terminated response
// instead of a hung submission. Evaluation itself is strictly single
// threaded per submission; concurrency safety lives in the storage layer's
// conditional increment.
package engine
