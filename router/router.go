// Package router resolves agent/tool/provider names to their definitions,
// builds the system prompt and tool schemas for a turn, and dispatches LLM
// calls through a lazily-cached, per-kind provider adapter.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/llm"
	"github.com/kestrelhq/conduct/provider"
	"github.com/kestrelhq/conduct/schema"
	"github.com/kestrelhq/conduct/tools"
)

// Sentinel tool names the turn loop treats specially rather than dispatching
// through Router.GetTool.
const (
	SentinelCallAgent = "call_agent"
	SentinelFinish    = "finish"
)

// Router is built once from a fixed set of agents, tools, and providers.
// Registration is last-write-wins on duplicate names — this is a deliberate,
// documented behavior rather than a construction-time error.
type Router struct {
	agents    map[string]*agent.Agent
	toolset   map[string]tools.Tool
	providers map[string]provider.Provider

	adapterMu sync.Mutex
	adapters  map[provider.Kind]llm.Adapter
}

// New builds a Router from the given agents, tools, and providers.
func New(agents []*agent.Agent, toolList []tools.Tool, providers []provider.Provider) *Router {
	r := &Router{
		agents:    make(map[string]*agent.Agent, len(agents)),
		toolset:   make(map[string]tools.Tool, len(toolList)),
		providers: make(map[string]provider.Provider, len(providers)),
		adapters:  make(map[provider.Kind]llm.Adapter),
	}
	for _, a := range agents {
		r.agents[a.Name()] = a
	}
	for _, t := range toolList {
		r.toolset[t.Name()] = t
	}
	for _, p := range providers {
		r.providers[p.Name] = p
	}
	return r
}

// GetAgent looks up a registered agent by name.
func (r *Router) GetAgent(name string) (*agent.Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, schema.NewRoutingError(fmt.Sprintf("unknown agent %q", name))
	}
	return a, nil
}

// GetTool looks up a registered tool by name.
func (r *Router) GetTool(name string) (tools.Tool, error) {
	t, ok := r.toolset[name]
	if !ok {
		return nil, schema.NewToolError(name, "unknown tool", nil)
	}
	return t, nil
}

// BuildSystemPrompt renders the system prompt for agent A: its instructions,
// plus a roster of other registered agents it may delegate to via
// call_agent.
func (r *Router) BuildSystemPrompt(a *agent.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %q. %s\n", a.Name(), a.Instructions())

	var others []*agent.Agent
	for name, other := range r.agents {
		if name != a.Name() {
			others = append(others, other)
		}
	}
	if len(others) > 0 {
		b.WriteString("\nAvailable agents:\n")
		for _, other := range others {
			fmt.Fprintf(&b, "- %s: %s\n", other.Name(), other.Instructions())
		}
		b.WriteString("\nUse call_agent to delegate work to other agents.\n")
	}
	b.WriteString("Use finish to complete your task and return the result.\n")
	return b.String()
}

// BuildToolSchemas returns every registered tool's schema followed by the
// two sentinel schemas, call_agent then finish, in that order.
func (r *Router) BuildToolSchemas() []tools.Schema {
	schemas := make([]tools.Schema, 0, len(r.toolset)+2)
	for _, t := range r.toolset {
		schemas = append(schemas, t.Schema())
	}
	schemas = append(schemas,
		tools.Schema{
			Name:        SentinelCallAgent,
			Description: "Delegate work to another registered agent.",
			Parameters: tools.ObjectSchema(map[string]any{
				"agent_name": tools.StringProperty("name of the agent to delegate to"),
				"message":    tools.StringProperty("message to forward to that agent"),
			}, []string{"agent_name", "message"}),
		},
		tools.Schema{
			Name:        SentinelFinish,
			Description: "Complete the task and return the final result.",
			Parameters: tools.ObjectSchema(map[string]any{
				"message": tools.StringProperty("the final result to return"),
			}, []string{"message"}),
		},
	)
	return schemas
}

func (r *Router) getAdapter(kind provider.Kind) (llm.Adapter, error) {
	r.adapterMu.Lock()
	defer r.adapterMu.Unlock()
	if a, ok := r.adapters[kind]; ok {
		return a, nil
	}
	a, err := llm.NewAdapter(kind)
	if err != nil {
		return nil, err
	}
	r.adapters[kind] = a
	return a, nil
}

// CallLLM resolves agent A's provider and dispatches a non-streaming call.
func (r *Router) CallLLM(ctx context.Context, a *agent.Agent, toolSchemas []tools.Schema, msgCtx *schema.Context) (*llm.Response, error) {
	p, ok := r.providers[a.Provider()]
	if !ok {
		return nil, schema.NewProviderError(a.Provider(), "unknown provider")
	}
	adapter, err := r.getAdapter(p.Kind)
	if err != nil {
		return nil, schema.NewProviderError(a.Provider(), err.Error())
	}
	resp, err := adapter.Call(ctx, toolSchemas, a, p, msgCtx)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// StreamLLM resolves agent A's provider and dispatches a streaming call.
func (r *Router) StreamLLM(ctx context.Context, a *agent.Agent, toolSchemas []tools.Schema, msgCtx *schema.Context) (<-chan llm.StreamChunk, error) {
	p, ok := r.providers[a.Provider()]
	if !ok {
		return nil, schema.NewProviderError(a.Provider(), "unknown provider")
	}
	adapter, err := r.getAdapter(p.Kind)
	if err != nil {
		return nil, schema.NewProviderError(a.Provider(), err.Error())
	}
	return adapter.Stream(ctx, toolSchemas, a, p, msgCtx)
}
