// Package extraction turns a finished voice capture into committed ledger
// records.
//
// A Pipeline runs one invocation through an explicit state machine:
//
//	Idle → Transcribing → Extracting → Validating → {Committed | FallenBack} → Idle
//
// Every stage returns a tagged stageResult and the pipeline switches on it
// to pick the next state. Remote failures never escape: they route to
// FallenBack, which runs the heuristic extractor on whatever transcript
// text exists. A Session layers single-flight and cooperative cancellation
// on top of a Pipeline.
package extraction
