// Package ir provides the shared record types for arbiter.
//
// This package contains type definitions, error kinds and the canonical
// serialization used for snapshot digests. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Confidence values are float64 in [0,100]
//   - Decision identity is the logical seq, never the wall-clock timestamp
//   - All JSON and YAML tags use snake_case
//   - Canonical JSON forbids floats; digests encode them as basis points
package ir
