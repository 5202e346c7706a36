// Package engine implements the arbiter decision engine.
//
// The engine turns a proposed action into a confidence score and an
// autonomy tier, and appends the result to an append-only decision log.
//
// SCORING:
//
//	confidence = round2(clamp(base*W.pattern + curve[n]*W.evidence
//	                          + bonus(alignment)*W.alignment, 0, 100))
//
// The base is the named pattern's catalog confidence, an explicit base, or
// the policy's neutral midpoint. Every constant lives in Policy; there is no
// hidden adaptive model.
//
// TIERS:
//
//	>= 90      autonomous  execute without confirmation
//	[70, 90)   validated   execute, then verify
//	[50, 70)   flagged     surface before proceeding
//	< 50       blocked     do not execute
//
// A blocked result is a classification, not an error: it is logged like any
// other decision.
//
// ORDERING:
//
// Every decision is stamped with a seq from the engine's logical Clock.
// Decision creation is serialized so seq order equals append order.
// Restoring a snapshot resumes the clock after the last logged seq.
//
// MEMORY:
//
// After classification each record is offered to the memory manager, which
// keeps it as a core memory when its confidence clears the current retention
// threshold. The record carries the threshold it was judged against.
package engine
