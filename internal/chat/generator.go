// Package chat produces assistant replies, preferring a local LLM and
// degrading to canned career guidance when no model is reachable.
package chat

import "context"

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces a reply given the conversation so far.
type Generator interface {
	Generate(ctx context.Context, history []Message, message string) (string, error)
	Name() string
}
