package testutil

// DefaultSession is the token used when a scenario names none.
const DefaultSession = "test-session-default"

// FixedSessionGenerator returns the same session token every time.
//
// Unlike engine.FixedGenerator which returns tokens in sequence, this
// generator never runs out, so restores and re-runs in one test share a
// token and produce byte-identical traces.
type FixedSessionGenerator struct {
	token string
}

// NewFixedSessionGenerator creates a generator for token.
// If token is empty, Generate returns DefaultSession.
func NewFixedSessionGenerator(token string) *FixedSessionGenerator {
	if token == "" {
		token = DefaultSession
	}
	return &FixedSessionGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedSessionGenerator) Generate() string {
	return g.token
}
