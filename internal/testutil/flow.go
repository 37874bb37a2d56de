package testutil

// FixedFlowGenerator returns the same flow token on every call, so every
// invocation of a scenario shares one flow and golden traces are stable.
// It is stateless and safe for concurrent use.
type FixedFlowGenerator struct {
	token string
}

// NewFixedFlowGenerator creates a generator for token. An empty token
// defaults to "test-flow-default".
func NewFixedFlowGenerator(token string) *FixedFlowGenerator {
	if token == "" {
		token = "test-flow-default"
	}
	return &FixedFlowGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedFlowGenerator) Generate() string {
	return g.token
}
