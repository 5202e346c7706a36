// Package harness runs YAML decision scenarios against a fresh engine.
//
// # Scenario Format
//
//	name: relax_then_tighten
//	description: "Two confirmations relax the threshold; tighten restores it"
//	session: test-session-relax    # optional fixed session token
//	seed: default                  # optional: "default" or a CUE file
//	memory: { floor: 85 }          # optional policy overrides
//	patterns:
//	  - { name: config-centralization, category: configuration, confidence: 92 }
//	philosophy:
//	  communication: { style: terse }
//	steps:
//	  - submit: { title: "apply config pattern", evidence: 2, alignment: strong, pattern: config-centralization }
//	    expect: { tier: autonomous, min_confidence: 90 }
//	  - outcome: { confidence: 92, correct: true }
//	  - outcome: { confidence: 92, correct: true }
//	    expect: { threshold: 90, adjusted: true }
//	  - tighten: { note: "false positive" }
//	    expect: { threshold: 95 }
//	assertions:
//	  - type: trace_count
//	    kind: outcome
//	    count: 2
//	  - type: final_state
//	    table: memory_state
//	    expect: { threshold: 95 }
//
// # Step Kinds
//
//   - register: add a pattern record to the catalog
//   - submit: score, classify and log a decision
//   - outcome: feed back whether an acted-on decision was correct
//   - tighten: raise the retention threshold by one step
//   - recommend: rank catalog patterns against a context string
//   - philosophy: record a fact (with key and value) or read a topic
//
// Every step may carry an expect clause; a step expecting an error code
// passes only when the operation fails with that code.
//
// # Assertion Types
//
//   - trace_contains: an event of the kind whose fields include the given subset
//   - trace_order: kinds appear in the given order
//   - trace_count: an event kind appears exactly N times
//   - final_state: a row of the persisted state matches the expected values
//
// # Deterministic Testing
//
// Each run uses a fixed session token, a stepping wall clock
// (testutil.StepClock) and a fresh engine, so identical scenarios produce
// byte-identical canonical traces. RunWithGolden compares that trace with
// testdata/golden/<name>.golden.
package harness
