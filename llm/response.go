// Package llm normalizes OpenAI-chat, Anthropic-messages, and Google
// Generative AI responses into one internal shape, and defines the
// ProviderAdapter contract the Router dispatches through.
package llm

import (
	"strings"

	"github.com/kestrelhq/conduct/schema"
)

// ToolCall is a vendor-normalized function call extracted from a response.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Response is the normalized shape every vendor adapter produces.
type Response struct {
	Content   *string
	ToolCalls []ToolCall
}

// ContentWithoutReasoning returns Content with any <think>/<thinking>/
// <reason>/<reasoning> blocks stripped and the result trimmed, or nil if
// Content is nil or the stripped text is empty.
func (r *Response) ContentWithoutReasoning() *string {
	if r.Content == nil {
		return nil
	}
	stripped := strings.TrimSpace(schema.ContentOutsideReasoning(*r.Content))
	if stripped == "" {
		return nil
	}
	return &stripped
}
