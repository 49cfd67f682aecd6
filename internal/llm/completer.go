// Package llm provides answer generation via an external chat-completion service.
package llm

import "context"

// Message is one turn of a chat conversation sent to the completion service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer generates a text answer for a sequence of chat messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Close() error
}
