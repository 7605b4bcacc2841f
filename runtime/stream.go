package runtime

import (
	"context"
	"fmt"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/llm"
	"github.com/kestrelhq/conduct/schema"
)

// StreamEventType enumerates the kinds of event ExecuteStream emits.
type StreamEventType string

const (
	StreamToken      StreamEventType = "token"
	StreamToolCall   StreamEventType = "tool_call"
	StreamAgentCall  StreamEventType = "agent_call"
	StreamAgentReturn StreamEventType = "agent_return"
	StreamFinish     StreamEventType = "finish"
	StreamError      StreamEventType = "error"
)

// StreamEvent is one element of an ExecuteStream channel.
type StreamEvent struct {
	Type      StreamEventType
	AgentName string
	Data      map[string]any
}

// ExecuteStream runs the same turn loop as Execute, but emits incremental
// StreamEvents as they happen instead of returning a single RunResult.
// Unlike the batch path, tool calls within one LLM turn are dispatched
// serially here — a deliberate, spec-preserved asymmetry with Execute's
// parallel dispatch.
func (rt *Runtime) ExecuteStream(ctx context.Context, entryAgent string, message string) (<-chan StreamEvent, error) {
	a, err := rt.router.GetAgent(entryAgent)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		rt.streamTurn(ctx, a, "", message, out)
	}()
	return out, nil
}

func (rt *Runtime) streamTurn(ctx context.Context, a *agent.Agent, parentCallID, forwardMessage string, out chan<- StreamEvent) {
	callID := schema.NewCallID()

	rt.appendMessage(schema.Message{Type: schema.MessageForward, Sender: "user", Receiver: a.Name(), Content: forwardMessage, CallID: callID})
	rt.recordEvent(schema.AgentEvent{EventType: schema.EventAgentCall, AgentName: a.Name(), CallID: callID, ParentCallID: parentCallID})

	systemPrompt := rt.router.BuildSystemPrompt(a)
	toolSchemas := rt.router.BuildToolSchemas()
	msgCtx := schema.NewContext(systemPrompt)
	msgCtx.AddUser(forwardMessage)

	for turns := 0; ; turns++ {
		if rt.maxTurns > 0 && turns >= rt.maxTurns {
			out <- StreamEvent{Type: StreamError, AgentName: a.Name(), Data: map[string]any{"error": fmt.Sprintf("exceeded max turns (%d)", rt.maxTurns)}}
			return
		}

		chunks, err := rt.router.StreamLLM(ctx, a, toolSchemas, msgCtx)
		if err != nil {
			out <- StreamEvent{Type: StreamError, AgentName: a.Name(), Data: map[string]any{"error": err.Error()}}
			return
		}

		var final *llm.Response
		var streamErr error
		for chunk := range chunks {
			if chunk.Err != nil {
				streamErr = chunk.Err
				break
			}
			if chunk.TextDelta != "" {
				out <- StreamEvent{Type: StreamToken, AgentName: a.Name(), Data: map[string]any{"text": chunk.TextDelta}}
			}
			if chunk.Final != nil {
				final = chunk.Final
			}
		}

		if streamErr != nil {
			out <- StreamEvent{Type: StreamError, AgentName: a.Name(), Data: map[string]any{"error": streamErr.Error()}}
			return
		}

		if final == nil {
			out <- StreamEvent{Type: StreamError, AgentName: a.Name(), Data: map[string]any{"error": "No response from LLM"}}
			return
		}

		content := ""
		if final.Content != nil {
			content = *final.Content
		}

		if len(final.ToolCalls) == 0 {
			rt.finishStreamTurn(a, parentCallID, callID, content, out)
			return
		}

		if msg, ok := findFinish(final.ToolCalls); ok {
			rt.recordEvent(schema.AgentEvent{EventType: schema.EventFinish, AgentName: a.Name(), CallID: callID, Details: map[string]any{"result": msg}})
			rt.finishStreamTurn(a, parentCallID, callID, msg, out)
			return
		}

		msgCtx.AddAssistantToolCalls(toLLMToSchemaToolCalls(final.ToolCalls), content)

		for _, call := range final.ToolCalls {
			if call.Name != sentinelCallAgent {
				out <- StreamEvent{Type: StreamToolCall, AgentName: a.Name(), Data: map[string]any{"tool_name": call.Name, "arguments": call.Arguments}}
			}
			result, err := rt.streamDispatchOne(ctx, a, callID, call, out)
			if err != nil {
				out <- StreamEvent{Type: StreamError, AgentName: a.Name(), Data: map[string]any{"error": err.Error()}}
				return
			}
			msgCtx.AddToolResult(call.ID, call.Name, result)
		}
	}
}

func (rt *Runtime) finishStreamTurn(a *agent.Agent, parentCallID, callID, output string, out chan<- StreamEvent) {
	rt.appendMessage(schema.Message{Type: schema.MessageReturn, Sender: a.Name(), Receiver: "user", Content: output, CallID: callID})
	rt.recordEvent(schema.AgentEvent{EventType: schema.EventAgentReturn, AgentName: a.Name(), CallID: callID, ParentCallID: parentCallID, Details: map[string]any{"result": output}})
	out <- StreamEvent{Type: StreamFinish, AgentName: a.Name(), Data: map[string]any{"output": output}}
}

// streamDispatchOne executes one tool call in the streaming path. For
// call_agent it recurses, forwarding the sub-agent's events onto out before
// emitting its own agent_return. An unknown call_agent target is a fatal
// routing error, mirroring Execute's batch-path behavior, and is returned as
// an error rather than a tool-result string; a registered tool's own failure
// is still reported back to the model as an "Error: ..." result.
func (rt *Runtime) streamDispatchOne(ctx context.Context, a *agent.Agent, parentCallID string, call llm.ToolCall, out chan<- StreamEvent) (string, error) {
	if call.Name == sentinelCallAgent {
		agentName, _ := call.Arguments["agent_name"].(string)
		message, _ := call.Arguments["message"].(string)

		target, err := rt.router.GetAgent(agentName)
		if err != nil {
			return "", err
		}

		out <- StreamEvent{Type: StreamAgentCall, AgentName: a.Name(), Data: map[string]any{"from": a.Name(), "to": target.Name(), "message": message}}

		sub := make(chan StreamEvent)
		result := ""
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range sub {
				if ev.Type == StreamFinish {
					if msg, ok := ev.Data["output"].(string); ok {
						result = msg
					}
				}
				out <- ev
			}
		}()
		rt.streamTurn(ctx, target, parentCallID, message, sub)
		close(sub)
		<-done

		out <- StreamEvent{Type: StreamAgentReturn, AgentName: a.Name(), Data: map[string]any{"result": result}}
		return result, nil
	}

	rt.recordEvent(schema.AgentEvent{
		EventType: schema.EventToolExec, AgentName: a.Name(), CallID: parentCallID,
		Details: map[string]any{"tool_name": call.Name, "arguments": call.Arguments},
	})

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
		return fmt.Sprintf("Error: %v", err), nil
	}
	return result, nil
}
