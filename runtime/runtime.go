// Package runtime drives the turn-by-turn agent loop: calling the LLM via a
// Router, dispatching tool calls (including recursive call_agent
// delegation) in parallel, and terminating on an empty tool-call list or an
// explicit finish.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/llm"
	"github.com/kestrelhq/conduct/logx"
	"github.com/kestrelhq/conduct/schema"
	"github.com/kestrelhq/conduct/tools"
)

// Router is the subset of *router.Router the Runtime drives turns through.
// Depending on this interface rather than the concrete type lets tests
// substitute a fake router that answers from canned responses, mirroring the
// teacher's llm.ChatModel injection point in runner.Config.
type Router interface {
	GetAgent(name string) (*agent.Agent, error)
	GetTool(name string) (tools.Tool, error)
	BuildSystemPrompt(a *agent.Agent) string
	BuildToolSchemas() []tools.Schema
	CallLLM(ctx context.Context, a *agent.Agent, toolSchemas []tools.Schema, msgCtx *schema.Context) (*llm.Response, error)
	StreamLLM(ctx context.Context, a *agent.Agent, toolSchemas []tools.Schema, msgCtx *schema.Context) (<-chan llm.StreamChunk, error)
}

const (
	sentinelCallAgent = "call_agent"
	sentinelFinish    = "finish"
)

func marshalArgs(args map[string]any) (json.RawMessage, error) {
	return json.Marshal(args)
}

// RunResult is what Execute returns: the terminal output text, the
// user-visible Message log (always populated), and the debug-gated
// Trace/EventLog (nil unless debug mode is on).
type RunResult struct {
	Output   string
	Messages []schema.Message
	Trace    *schema.Trace
	EventLog *schema.EventLog
}

// Runtime drives agent turns against a fixed Router. MaxTurns, if positive,
// caps the number of LLM round-trips within one agent invocation before an
// AgentError is raised; each call_agent sub-agent invocation has its own
// count. Zero means unbounded.
type Runtime struct {
	router   Router
	observer logx.Observer
	debug    bool
	maxTurns int

	msgMu    sync.Mutex
	messages []schema.Message
	eventLog *schema.EventLog
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithDebug enables Trace/EventLog population in RunResult.
func WithDebug(debug bool) Option {
	return func(r *Runtime) { r.debug = debug }
}

// WithObserver sets the always-on ambient log sink.
func WithObserver(o logx.Observer) Option {
	return func(r *Runtime) { r.observer = o }
}

// WithMaxTurns sets a guard-rail cap on LLM round-trips per agent
// invocation (the entry agent and each call_agent sub-agent are counted
// separately). Zero (the default) means unbounded.
func WithMaxTurns(n int) Option {
	return func(r *Runtime) { r.maxTurns = n }
}

// New builds a Runtime driving turns through the given Router.
func New(r Router, opts ...Option) *Runtime {
	rt := &Runtime{router: r, observer: logx.NoopObserver{}}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.debug {
		rt.eventLog = schema.NewEventLog()
	}
	return rt
}

func (rt *Runtime) recordEvent(e schema.AgentEvent) {
	if rt.eventLog != nil {
		rt.eventLog.Record(e)
	}
}

func (rt *Runtime) appendMessage(m schema.Message) {
	rt.msgMu.Lock()
	defer rt.msgMu.Unlock()
	rt.messages = append(rt.messages, m)
}

// Execute runs one agent turn (and any recursive call_agent turns it spawns)
// to completion, starting from a fresh forward message to the named entry
// agent.
func (rt *Runtime) Execute(ctx context.Context, entryAgent string, message string) (RunResult, error) {
	a, err := rt.router.GetAgent(entryAgent)
	if err != nil {
		return RunResult{}, err
	}

	output, err := rt.executeTurn(ctx, a, "", message)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Output: output, Messages: rt.snapshotMessages()}
	if rt.debug {
		result.EventLog = rt.eventLog
		result.Trace = schema.BuildTrace(rt.eventLog)
	}
	return result, nil
}

func (rt *Runtime) snapshotMessages() []schema.Message {
	rt.msgMu.Lock()
	defer rt.msgMu.Unlock()
	out := make([]schema.Message, len(rt.messages))
	copy(out, rt.messages)
	return out
}

// executeTurn runs the agent's turn loop to completion and returns its
// terminal output string. parentCallID is "" for the root invocation.
func (rt *Runtime) executeTurn(ctx context.Context, a *agent.Agent, parentCallID, forwardMessage string) (string, error) {
	callID := schema.NewCallID()

	rt.appendMessage(schema.Message{Type: schema.MessageForward, Sender: "user", Receiver: a.Name(), Content: forwardMessage, CallID: callID})
	rt.recordEvent(schema.AgentEvent{EventType: schema.EventAgentCall, AgentName: a.Name(), CallID: callID, ParentCallID: parentCallID})
	rt.observer.OnAgentCall(a.Name(), callID, forwardMessage)

	systemPrompt := rt.router.BuildSystemPrompt(a)
	toolSchemas := rt.router.BuildToolSchemas()
	msgCtx := schema.NewContext(systemPrompt)
	msgCtx.AddUser(forwardMessage)

	output, err := rt.turnLoop(ctx, a, msgCtx, toolSchemas, callID)
	if err != nil {
		return "", err
	}

	rt.appendMessage(schema.Message{Type: schema.MessageReturn, Sender: a.Name(), Receiver: "user", Content: output, CallID: callID})
	rt.recordEvent(schema.AgentEvent{EventType: schema.EventAgentReturn, AgentName: a.Name(), CallID: callID, ParentCallID: parentCallID, Details: map[string]any{"result": output}})
	rt.observer.OnAgentReturn(a.Name(), callID, output)

	return output, nil
}

// turnLoop is the 4.6/4.9 state machine: AWAIT_LLM -> PROCESS_RESPONSE ->
// (DISPATCH_TOOLS -> AWAIT_LLM) | TERMINATED.
func (rt *Runtime) turnLoop(ctx context.Context, a *agent.Agent, msgCtx *schema.Context, toolSchemas []tools.Schema, callID string) (string, error) {
	for turns := 0; ; turns++ {
		if rt.maxTurns > 0 && turns >= rt.maxTurns {
			return "", schema.NewAgentError(a.Name(), fmt.Sprintf("exceeded max turns (%d)", rt.maxTurns), nil)
		}

		rt.recordEvent(schema.AgentEvent{EventType: schema.EventLLMCall, AgentName: a.Name(), CallID: callID})
		rt.observer.OnLLMCall(a.Name(), callID)

		resp, err := rt.router.CallLLM(ctx, a, toolSchemas, msgCtx)
		if err != nil {
			rt.recordEvent(schema.AgentEvent{EventType: schema.EventError, AgentName: a.Name(), CallID: callID, Details: map[string]any{"error": err.Error()}})
			rt.observer.OnError(a.Name(), callID, err)
			return "", err
		}

		content := ""
		if resp.Content != nil {
			content = *resp.Content
		}
		rt.recordEvent(schema.AgentEvent{
			EventType: schema.EventLLMResponse, AgentName: a.Name(), CallID: callID,
			Details: map[string]any{"has_tool_calls": len(resp.ToolCalls) > 0, "content_length": len(content)},
		})
		rt.observer.OnLLMResponse(a.Name(), callID, len(resp.ToolCalls), len(content))

		if len(resp.ToolCalls) == 0 {
			return content, nil
		}

		if msg, ok := findFinish(resp.ToolCalls); ok {
			rt.recordEvent(schema.AgentEvent{EventType: schema.EventFinish, AgentName: a.Name(), CallID: callID, Details: map[string]any{"result": msg}})
			rt.observer.OnFinish(a.Name(), callID, msg)
			return msg, nil
		}

		msgCtx.AddAssistantToolCalls(toLLMToSchemaToolCalls(resp.ToolCalls), content)

		results, err := rt.dispatchToolCalls(ctx, a, callID, resp.ToolCalls)
		if err != nil {
			return "", err
		}
		for i, tc := range resp.ToolCalls {
			msgCtx.AddToolResult(tc.ID, tc.Name, results[i])
		}
	}
}

func toLLMToSchemaToolCalls(in []llm.ToolCall) []schema.ToolCall {
	out := make([]schema.ToolCall, len(in))
	for i, tc := range in {
		out[i] = schema.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
	}
	return out
}

// findFinish scans left-to-right and returns the first finish sentinel's
// message argument (default "").
func findFinish(calls []llm.ToolCall) (string, bool) {
	for _, c := range calls {
		if c.Name == sentinelFinish {
			msg, _ := c.Arguments["message"].(string)
			return msg, true
		}
	}
	return "", false
}

// dispatchToolCalls runs every tool call in calls concurrently (one
// goroutine each, joined by a WaitGroup) and returns string results in the
// original call order — never by appending inside the per-call goroutine.
// A fatal error (an unknown call_agent target, or a failure inside the
// recursive turn it spawns) aborts the whole turn rather than becoming a
// tool-result string, per the distinction between a tool's own failure
// (reported back to the model) and a routing failure (reported to the
// caller).
func (rt *Runtime) dispatchToolCalls(ctx context.Context, a *agent.Agent, parentCallID string, calls []llm.ToolCall) ([]string, error) {
	results := make([]string, len(calls))
	errs := make([]error, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c llm.ToolCall) {
			defer wg.Done()
			results[idx], errs[idx] = rt.dispatchOne(ctx, a, parentCallID, c)
		}(i, call)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (rt *Runtime) dispatchOne(ctx context.Context, a *agent.Agent, parentCallID string, call llm.ToolCall) (string, error) {
	if call.Name == sentinelCallAgent {
		return rt.dispatchCallAgent(ctx, a, parentCallID, call)
	}

	rt.recordEvent(schema.AgentEvent{
		EventType: schema.EventToolExec, AgentName: a.Name(), CallID: parentCallID,
		Details: map[string]any{"tool_name": call.Name, "arguments": call.Arguments},
	})
	rt.observer.OnToolExec(a.Name(), call.Name, call.Arguments)

	tool, err := rt.router.GetTool(call.Name)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	argsJSON, err := marshalArgs(call.Arguments)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	result, err := tool.Execute(ctx, argsJSON)
	if err != nil {
		rt.observer.OnToolResult(a.Name(), call.Name, "", err)
		return fmt.Sprintf("Error: %v", err), nil
	}
	rt.observer.OnToolResult(a.Name(), call.Name, result, nil)
	return result, nil
}

// dispatchCallAgent recurses into the target agent's turn loop. An unknown
// target name is a routing failure and is returned as an error, aborting the
// turn; a failure inside the recursive turn itself propagates the same way.
func (rt *Runtime) dispatchCallAgent(ctx context.Context, caller *agent.Agent, parentCallID string, call llm.ToolCall) (string, error) {
	agentName, _ := call.Arguments["agent_name"].(string)
	message, _ := call.Arguments["message"].(string)

	target, err := rt.router.GetAgent(agentName)
	if err != nil {
		return "", err
	}

	output, err := rt.executeTurn(ctx, target, parentCallID, message)
	if err != nil {
		return "", err
	}
	return output, nil
}
