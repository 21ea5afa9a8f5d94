package answer

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator is a deterministic Generator for tests and offline mode.
type MockGenerator struct {
	// Down simulates an unreachable service when true.
	Down bool
}

// NewMockGenerator creates a new mock generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate echoes the question with an evidence count.
func (m *MockGenerator) Generate(ctx context.Context, question string, evidence []string) (string, error) {
	if m.Down {
		return "", fmt.Errorf("mock answer service is down")
	}
	return fmt.Sprintf("Based on %d evidence item(s): %s", len(evidence), summarize(question)), nil
}

// Ping reports the simulated availability.
func (m *MockGenerator) Ping(ctx context.Context) error {
	if m.Down {
		return fmt.Errorf("mock answer service is down")
	}
	return nil
}

func summarize(q string) string {
	q = strings.TrimSpace(q)
	if len(q) > 80 {
		return q[:80] + "..."
	}
	return q
}

var _ Generator = (*MockGenerator)(nil)
