package chat

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/session"
)

// noContextNotice is sent as the context block when retrieval finds nothing
// relevant, so the model knows to say it cannot answer from the documentation.
const noContextNotice = "No relevant documentation found."

const systemPromptFormat = `You are a documentation assistant. Answer the user's question using only the documentation excerpts below. If the excerpts do not contain the answer, say that the documentation does not cover it; do not invent information.

Documentation excerpts:
%s`

// formatContext renders retrieved chunks into the context block of the system
// prompt, each excerpt labeled with its source file.
func formatContext(retrieved []*models.RetrievedChunk) string {
	if len(retrieved) == 0 {
		return noContextNotice
	}
	var b strings.Builder
	for i, rc := range retrieved {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", rc.Chunk.Source, rc.Chunk.Content)
	}
	return b.String()
}

// buildMessages assembles the conversation for the completion service: the
// system prompt with retrieved context, prior exchanges up to historyLimit,
// and the current question.
func buildMessages(retrieved []*models.RetrievedChunk, history []session.Exchange, query string, historyLimit int) []llm.Message {
	if historyLimit > 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	messages := make([]llm.Message, 0, 2*len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: fmt.Sprintf(systemPromptFormat, formatContext(retrieved)),
	})
	for _, ex := range history {
		messages = append(messages,
			llm.Message{Role: "user", Content: ex.Query},
			llm.Message{Role: "assistant", Content: ex.Answer},
		)
	}
	return append(messages, llm.Message{Role: "user", Content: query})
}
