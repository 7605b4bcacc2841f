package llm

import (
	"context"
	"fmt"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/provider"
	"github.com/kestrelhq/conduct/schema"
	"github.com/kestrelhq/conduct/tools"
)

// StreamChunk is one element of an adapter's Stream output: a text delta, or
// (exactly once, terminal) either the fully-assembled Response or a
// ProviderError describing why the stream ended without one.
type StreamChunk struct {
	TextDelta string
	Final     *Response
	Err       error
}

// Adapter normalizes one vendor's wire protocol into Response/StreamChunk.
// Implementations must be safe for concurrent use across agent turns.
type Adapter interface {
	Call(ctx context.Context, toolSchemas []tools.Schema, a *agent.Agent, p provider.Provider, ctx2 *schema.Context) (*Response, error)
	Stream(ctx context.Context, toolSchemas []tools.Schema, a *agent.Agent, p provider.Provider, ctx2 *schema.Context) (<-chan StreamChunk, error)
	Close() error
}

// NewAdapter builds the Adapter for the given provider kind. Each call
// returns a fresh adapter instance; callers (the Router) are expected to
// cache by kind.
func NewAdapter(kind provider.Kind) (Adapter, error) {
	switch kind {
	case provider.KindOpenAI:
		return newOpenAIAdapter(), nil
	case provider.KindAnthropic:
		return newAnthropicAdapter(), nil
	case provider.KindGoogle:
		return newGoogleAdapter(), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider kind %q", kind)
	}
}
