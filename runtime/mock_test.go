package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/llm"
	"github.com/kestrelhq/conduct/schema"
	"github.com/kestrelhq/conduct/tools"
)

// mockRouter is a hand-rolled stand-in for *router.Router: it answers
// CallLLM/StreamLLM from a per-agent queue of canned *llm.Response values
// instead of touching any real vendor SDK.
type mockRouter struct {
	agents  map[string]*agent.Agent
	toolset map[string]tools.Tool
	queue   map[string][]*llm.Response
	calls   int
}

func newMockRouter(agents []*agent.Agent, toolList []tools.Tool) *mockRouter {
	r := &mockRouter{
		agents:  make(map[string]*agent.Agent),
		toolset: make(map[string]tools.Tool),
		queue:   make(map[string][]*llm.Response),
	}
	for _, a := range agents {
		r.agents[a.Name()] = a
	}
	for _, t := range toolList {
		r.toolset[t.Name()] = t
	}
	return r
}

func (r *mockRouter) enqueue(agentName string, resp *llm.Response) {
	r.queue[agentName] = append(r.queue[agentName], resp)
}

func (r *mockRouter) GetAgent(name string) (*agent.Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, schema.NewRoutingError(fmt.Sprintf("unknown agent %q", name))
	}
	return a, nil
}

func (r *mockRouter) GetTool(name string) (tools.Tool, error) {
	t, ok := r.toolset[name]
	if !ok {
		return nil, schema.NewRoutingError(fmt.Sprintf("unknown tool %q", name))
	}
	return t, nil
}

func (r *mockRouter) BuildSystemPrompt(a *agent.Agent) string { return "you are " + a.Name() }

func (r *mockRouter) BuildToolSchemas() []tools.Schema { return nil }

func (r *mockRouter) CallLLM(ctx context.Context, a *agent.Agent, toolSchemas []tools.Schema, msgCtx *schema.Context) (*llm.Response, error) {
	r.calls++
	q := r.queue[a.Name()]
	if len(q) == 0 {
		return nil, schema.NewProviderError(a.Provider(), fmt.Sprintf("mock router: no queued response for agent %q", a.Name()))
	}
	resp := q[0]
	r.queue[a.Name()] = q[1:]
	return resp, nil
}

func (r *mockRouter) StreamLLM(ctx context.Context, a *agent.Agent, toolSchemas []tools.Schema, msgCtx *schema.Context) (<-chan llm.StreamChunk, error) {
	resp, err := r.CallLLM(ctx, a, toolSchemas, msgCtx)
	if err != nil {
		return nil, err
	}
	out := make(chan llm.StreamChunk, 2)
	if resp.Content != nil && *resp.Content != "" {
		out <- llm.StreamChunk{TextDelta: *resp.Content}
	}
	out <- llm.StreamChunk{Final: resp}
	close(out)
	return out, nil
}

func strPtr(s string) *string { return &s }

func echoUpperTool(name, prefix string) tools.Tool {
	return tools.New(name, name+" tool", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		var parsed map[string]any
		_ = json.Unmarshal(args, &parsed)
		for _, v := range parsed {
			if s, ok := v.(string); ok {
				return prefix + s, nil
			}
		}
		return prefix, nil
	})
}
