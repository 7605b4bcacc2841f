// Package conduct is a multi-agent orchestration runtime: a turn-by-turn
// agent loop that calls an LLM, dispatches tool calls — including recursive
// delegation to other registered agents — and normalizes OpenAI, Anthropic,
// and Google provider wire formats behind one internal shape.
//
// Run and RunStream are the package's two entrypoints; everything else
// (agents, tools, providers, the router wiring them together) is assembled
// by the caller and handed in.
package conduct

import (
	"context"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/logx"
	"github.com/kestrelhq/conduct/provider"
	"github.com/kestrelhq/conduct/router"
	"github.com/kestrelhq/conduct/runtime"
	"github.com/kestrelhq/conduct/tools"
)

// RunResult is the outcome of a blocking Run.
type RunResult = runtime.RunResult

// StreamEvent is one element of a RunStream channel.
type StreamEvent = runtime.StreamEvent

// Option configures the Runtime driving a Run or RunStream call.
type Option = runtime.Option

// WithDebug enables Trace/EventLog population in RunResult.
func WithDebug(debug bool) Option { return runtime.WithDebug(debug) }

// WithObserver sets the always-on ambient log sink.
func WithObserver(o logx.Observer) Option { return runtime.WithObserver(o) }

// WithMaxTurns caps LLM round-trips per agent invocation within a
// Run/RunStream call; each call_agent sub-agent has its own count.
func WithMaxTurns(n int) Option { return runtime.WithMaxTurns(n) }

// Run builds a Router from the given agents, tools, and providers, then
// drives entry agent through its turn loop to completion. It blocks until
// the agent finishes, calls no more tools, or a fatal error propagates.
func Run(ctx context.Context, entry, message string, agents []*agent.Agent, toolList []tools.Tool, providers []provider.Provider, opts ...Option) (RunResult, error) {
	r := router.New(agents, toolList, providers)
	rt := runtime.New(r, opts...)
	return rt.Execute(ctx, entry, message)
}

// RunStream is Run's incremental counterpart: it returns a channel of
// StreamEvent as soon as the entry agent is resolved, emitting token deltas
// and tool_call/agent_call/agent_return notifications. The entry agent emits
// exactly one finish or error event, the last event before the channel
// closes. Events of call_agent sub-agents, including their own finish or
// error events, are forwarded on the same channel under the sub-agent's name.
func RunStream(ctx context.Context, entry, message string, agents []*agent.Agent, toolList []tools.Tool, providers []provider.Provider, opts ...Option) (<-chan StreamEvent, error) {
	r := router.New(agents, toolList, providers)
	rt := runtime.New(r, opts...)
	return rt.ExecuteStream(ctx, entry, message)
}
