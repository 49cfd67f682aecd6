package llm

import (
	"context"
	"strings"
)

// MockCompleter is a deterministic completer for tests. It echoes the last
// user message prefixed with a marker, or returns a canned Response when set.
type MockCompleter struct {
	Response string
	// Calls records every message sequence passed to Complete.
	Calls [][]Message
}

// Complete records the call and returns the canned or echoed answer.
func (m *MockCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	m.Calls = append(m.Calls, messages)
	if m.Response != "" {
		return m.Response, nil
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return "echo: " + strings.TrimSpace(messages[i].Content), nil
		}
	}
	return "echo:", nil
}

// Close is a no-op.
func (m *MockCompleter) Close() error {
	return nil
}
