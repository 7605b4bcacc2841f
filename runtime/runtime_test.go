package runtime

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/llm"
	"github.com/kestrelhq/conduct/tools"
)

func searchTool() tools.Tool {
	return tools.New("search", "searches", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		var parsed struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(args, &parsed)
		return "Results for: " + parsed.Query, nil
	})
}

func uppercaseTool() tools.Tool {
	return tools.New("uppercase", "uppercases", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		var parsed struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(args, &parsed)
		return strings.ToUpper(parsed.Text), nil
	})
}

// S1 — plain text.
func TestPlainTextTerminatesWithoutToolCalls(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a}, nil)
	r.enqueue("a", &llm.Response{Content: strPtr("Hello from LLM")})

	rt := New(r)
	result, err := rt.Execute(context.Background(), "a", "Say hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello from LLM", result.Output)
	assert.Equal(t, 1, r.calls)
}

// S2 — finish.
func TestFinishSentinelTerminatesWithMessage(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a}, nil)
	r.enqueue("a", &llm.Response{ToolCalls: []llm.ToolCall{
		{Name: sentinelFinish, Arguments: map[string]any{"message": "Final answer"}},
	}})

	rt := New(r)
	result, err := rt.Execute(context.Background(), "a", "go")
	require.NoError(t, err)
	assert.Equal(t, "Final answer", result.Output)
}

// S3 — tool then finish.
func TestToolThenFinish(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a}, []tools.Tool{searchTool()})
	r.enqueue("a", &llm.Response{ToolCalls: []llm.ToolCall{
		{ID: "tc1", Name: "search", Arguments: map[string]any{"query": "AI trends"}},
	}})
	r.enqueue("a", &llm.Response{ToolCalls: []llm.ToolCall{
		{Name: sentinelFinish, Arguments: map[string]any{"message": "Based on search: AI is trending"}},
	}})

	rt := New(r)
	result, err := rt.Execute(context.Background(), "a", "find AI trends")
	require.NoError(t, err)
	assert.Equal(t, "Based on search: AI is trending", result.Output)
	assert.Equal(t, 2, r.calls)
}

// S4 — sub-agent delegation via call_agent, with debug=true asserting the
// resulting Trace's root/child shape.
func TestSubAgentDelegation(t *testing.T) {
	a := agent.New("A", "i", "m", "mock")
	b := agent.New("B", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a, b}, nil)
	r.enqueue("A", &llm.Response{ToolCalls: []llm.ToolCall{
		{Name: sentinelCallAgent, Arguments: map[string]any{"agent_name": "B", "message": "Please help me"}},
	}})
	r.enqueue("B", &llm.Response{ToolCalls: []llm.ToolCall{
		{Name: sentinelFinish, Arguments: map[string]any{"message": "I helped you"}},
	}})
	r.enqueue("A", &llm.Response{ToolCalls: []llm.ToolCall{
		{Name: sentinelFinish, Arguments: map[string]any{"message": "Done with help from B"}},
	}})

	rt := New(r, WithDebug(true))
	result, err := rt.Execute(context.Background(), "A", "start")
	require.NoError(t, err)
	assert.Equal(t, "Done with help from B", result.Output)
	assert.Equal(t, 3, r.calls)

	require.NotNil(t, result.Trace)
	root := result.Trace.Root()
	require.NotNil(t, root)
	assert.Equal(t, "A", root.AgentName)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "B", root.Children[0].AgentName)
}

// S5 — parallel tools: both dispatched, and results come back indexed by
// original call order (tc1 then tc2) regardless of goroutine completion
// order.
func TestParallelToolsPreserveCallOrder(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a}, []tools.Tool{searchTool(), uppercaseTool()})

	rt := New(r)
	calls := []llm.ToolCall{
		{ID: "tc1", Name: "search", Arguments: map[string]any{"query": "hello"}},
		{ID: "tc2", Name: "uppercase", Arguments: map[string]any{"text": "world"}},
	}
	results, err := rt.dispatchToolCalls(context.Background(), a, "", calls)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Results for: hello", results[0])
	assert.Equal(t, "WORLD", results[1])
}

// Invariant 6: debug gating.
func TestDebugGatingControlsTraceAndEventLog(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")

	r1 := newMockRouter([]*agent.Agent{a}, nil)
	r1.enqueue("a", &llm.Response{Content: strPtr("hi")})
	rt1 := New(r1)
	result1, err := rt1.Execute(context.Background(), "a", "go")
	require.NoError(t, err)
	assert.Nil(t, result1.Trace)
	assert.Nil(t, result1.EventLog)
	assert.NotEmpty(t, result1.Messages)

	r2 := newMockRouter([]*agent.Agent{a}, nil)
	r2.enqueue("a", &llm.Response{Content: strPtr("hi")})
	rt2 := New(r2, WithDebug(true))
	result2, err := rt2.Execute(context.Background(), "a", "go")
	require.NoError(t, err)
	assert.NotNil(t, result2.Trace)
	assert.NotNil(t, result2.EventLog)
	assert.NotEmpty(t, result2.Messages)
}

// Unknown call_agent target is a fatal routing error, not a swallowed
// tool-result string.
func TestUnknownCallAgentTargetIsFatal(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a}, nil)
	r.enqueue("a", &llm.Response{ToolCalls: []llm.ToolCall{
		{Name: sentinelCallAgent, Arguments: map[string]any{"agent_name": "nope", "message": "hi"}},
	}})

	rt := New(r)
	_, err := rt.Execute(context.Background(), "a", "go")
	assert.Error(t, err)
}

// An ordinary tool's own failure is swallowed into an "Error: ..." result
// and the turn continues to the next LLM call instead of aborting.
func TestUnknownToolNameIsSwallowedIntoResult(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a}, nil)
	r.enqueue("a", &llm.Response{ToolCalls: []llm.ToolCall{
		{ID: "tc1", Name: "no_such_tool", Arguments: map[string]any{}},
	}})
	r.enqueue("a", &llm.Response{ToolCalls: []llm.ToolCall{
		{Name: sentinelFinish, Arguments: map[string]any{"message": "recovered"}},
	}})

	rt := New(r)
	result, err := rt.Execute(context.Background(), "a", "go")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Output)
	assert.Equal(t, 2, r.calls)
}

func TestMaxTurnsGuardAborts(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a}, []tools.Tool{searchTool()})
	for i := 0; i < 5; i++ {
		r.enqueue("a", &llm.Response{ToolCalls: []llm.ToolCall{
			{ID: "tc1", Name: "search", Arguments: map[string]any{"query": "loop"}},
		}})
	}

	rt := New(r, WithMaxTurns(2))
	_, err := rt.Execute(context.Background(), "a", "go")
	assert.Error(t, err)
}

// Streaming terminator invariant: exactly one finish/error event, nothing
// after it.
func TestExecuteStreamEmitsExactlyOneTerminalEvent(t *testing.T) {
	a := agent.New("a", "i", "m", "mock")
	r := newMockRouter([]*agent.Agent{a}, nil)
	r.enqueue("a", &llm.Response{Content: strPtr("streamed hello")})

	rt := New(r)
	events, err := rt.ExecuteStream(context.Background(), "a", "go")
	require.NoError(t, err)

	var terminalCount int
	var sawAfterTerminal bool
	terminated := false
	for ev := range events {
		if terminated {
			sawAfterTerminal = true
		}
		if ev.Type == StreamFinish || ev.Type == StreamError {
			terminalCount++
			terminated = true
		}
	}
	assert.Equal(t, 1, terminalCount)
	assert.False(t, sawAfterTerminal)
}

func TestExecuteStreamUnknownAgentErrorsBeforeChannel(t *testing.T) {
	r := newMockRouter(nil, nil)
	rt := New(r)
	_, err := rt.ExecuteStream(context.Background(), "missing", "go")
	assert.Error(t, err)
}
