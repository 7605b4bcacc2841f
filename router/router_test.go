package router

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/provider"
	"github.com/kestrelhq/conduct/tools"
)

func echoTool() tools.Tool {
	return tools.New("echo", "echoes input", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		return string(args), nil
	})
}

func TestBuildToolSchemasAppendsSentinelsLast(t *testing.T) {
	r := New(
		[]*agent.Agent{agent.New("a", "i", "m", "openai")},
		[]tools.Tool{echoTool()},
		nil,
	)

	schemas := r.BuildToolSchemas()
	if len(schemas) != 3 {
		t.Fatalf("expected 3 schemas (1 tool + 2 sentinels), got %d", len(schemas))
	}
	last2 := schemas[len(schemas)-2:]
	if last2[0].Name != SentinelCallAgent || last2[1].Name != SentinelFinish {
		t.Fatalf("expected sentinels last in order call_agent, finish; got %s, %s", last2[0].Name, last2[1].Name)
	}
}

func TestGetAgentUnknownNameErrors(t *testing.T) {
	r := New(nil, nil, nil)
	if _, err := r.GetAgent("nope"); err == nil {
		t.Fatal("expected an error for an unknown agent name")
	}
}

func TestGetToolUnknownNameErrors(t *testing.T) {
	r := New(nil, nil, nil)
	if _, err := r.GetTool("nope"); err == nil {
		t.Fatal("expected an error for an unknown tool name")
	}
}

func TestBuildSystemPromptListsOtherAgents(t *testing.T) {
	r := New(
		[]*agent.Agent{
			agent.New("writer", "writes prose", "m", "openai"),
			agent.New("editor", "edits prose", "m", "openai"),
		},
		nil, nil,
	)
	prompt := r.BuildSystemPrompt(r.agents["writer"])
	if !strings.Contains(prompt, "editor") {
		t.Fatalf("expected prompt to list the other agent 'editor', got %q", prompt)
	}
	if !strings.Contains(prompt, "Available agents") {
		t.Fatalf("expected roster heading in prompt")
	}
}

func TestCallLLMUnknownProviderErrors(t *testing.T) {
	r := New(
		[]*agent.Agent{agent.New("a", "i", "m", "missing-provider")},
		nil,
		[]provider.Provider{provider.New("real", provider.KindOpenAI, "key")},
	)
	_, err := r.CallLLM(context.Background(), r.agents["a"], nil, nil)
	if err == nil {
		t.Fatal("expected an error for an agent referencing an unregistered provider")
	}
}
