package harness

import "github.com/roach88/arbiter/internal/ir"

// TraceEvent records one executed step.
//
// Fields holds plain values: strings, ints, bools, float64 confidences and
// []string. Confidences are rendered as basis points in canonical form.
type TraceEvent struct {
	Step   int            `json:"step"`
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the engine state after the last step.
	Final *ir.Snapshot `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends an event numbered after the previous one.
func (r *Result) addEvent(kind string, fields map[string]any, errCode string) TraceEvent {
	ev := TraceEvent{
		Step:   len(r.Trace) + 1,
		Kind:   kind,
		Fields: fields,
		Error:  errCode,
	}
	r.Trace = append(r.Trace, ev)
	return ev
}
