package llm

import (
	"testing"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/schema"
	"github.com/kestrelhq/conduct/tools"
	openai "github.com/sashabaranov/go-openai"
)

func TestBuildRequestMapsMessagesAndRoles(t *testing.T) {
	a := newOpenAIAdapter()
	ag := agent.New("assistant", "be helpful", "gpt-4o", "openai")

	msgCtx := schema.NewContext("be helpful")
	msgCtx.AddUser("hello")
	msgCtx.AddAssistantToolCalls([]schema.ToolCall{{ID: "tc1", Name: "search", Arguments: map[string]any{"query": "x"}}}, "")
	msgCtx.AddToolResult("tc1", "search", "Results for: x")

	req := a.buildRequest(nil, ag, msgCtx)

	if req.Model != "gpt-4o" {
		t.Fatalf("expected model gpt-4o, got %q", req.Model)
	}
	if len(req.Messages) != 4 {
		t.Fatalf("expected 4 messages (system, user, assistant, tool), got %d", len(req.Messages))
	}
	if req.Messages[0].Role != openai.ChatMessageRoleSystem || req.Messages[0].Content != "be helpful" {
		t.Fatalf("expected system message first, got %+v", req.Messages[0])
	}
	if req.Messages[1].Role != openai.ChatMessageRoleUser || req.Messages[1].Content != "hello" {
		t.Fatalf("expected user message second, got %+v", req.Messages[1])
	}
	assistant := req.Messages[2]
	if assistant.Role != openai.ChatMessageRoleAssistant || len(assistant.ToolCalls) != 1 {
		t.Fatalf("expected assistant message with one tool call, got %+v", assistant)
	}
	if assistant.ToolCalls[0].ID != "tc1" || assistant.ToolCalls[0].Function.Name != "search" {
		t.Fatalf("got tool call %+v", assistant.ToolCalls[0])
	}
	toolMsg := req.Messages[3]
	if toolMsg.Role != openai.ChatMessageRoleTool || toolMsg.ToolCallID != "tc1" || toolMsg.Content != "Results for: x" {
		t.Fatalf("got tool message %+v", toolMsg)
	}
}

func TestBuildRequestUsesTemperatureWhenNotReasoning(t *testing.T) {
	a := newOpenAIAdapter()
	ag := agent.New("a", "i", "gpt-4o", "openai", agent.WithTemperature(0.2))
	req := a.buildRequest(nil, ag, schema.NewContext(""))

	if req.Temperature != float32(0.2) {
		t.Fatalf("expected temperature 0.2, got %v", req.Temperature)
	}
	if req.ReasoningEffort != "" {
		t.Fatalf("expected no reasoning effort set, got %q", req.ReasoningEffort)
	}
}

func TestBuildRequestUsesReasoningEffortWhenReasoningEnabled(t *testing.T) {
	a := newOpenAIAdapter()
	ag := agent.New("a", "i", "o3", "openai", agent.WithReasoning("high", 0))
	req := a.buildRequest(nil, ag, schema.NewContext(""))

	if req.ReasoningEffort != "high" {
		t.Fatalf("expected reasoning effort 'high', got %q", req.ReasoningEffort)
	}
}

func TestBuildRequestMapsToolSchemas(t *testing.T) {
	a := newOpenAIAdapter()
	ag := agent.New("a", "i", "gpt-4o", "openai")
	schemas := []tools.Schema{
		{Name: "search", Description: "searches", Parameters: tools.ObjectSchema(nil, nil)},
	}
	req := a.buildRequest(schemas, ag, schema.NewContext(""))

	if len(req.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(req.Tools))
	}
	if req.Tools[0].Function.Name != "search" {
		t.Fatalf("got tool name %q", req.Tools[0].Function.Name)
	}
}
