package agent

import "testing"

func TestNewAppliesDefaults(t *testing.T) {
	a := New("writer", "write things", "gpt-5", "openai")

	if a.MaxOutputTokens() != 4096 {
		t.Fatalf("expected default MaxOutputTokens=4096, got %d", a.MaxOutputTokens())
	}
	if a.ReasoningEffort() != "medium" {
		t.Fatalf("expected default ReasoningEffort=medium, got %q", a.ReasoningEffort())
	}
	if a.Temperature() != 1.0 {
		t.Fatalf("expected default Temperature=1.0, got %v", a.Temperature())
	}
	if a.Reasoning() {
		t.Fatalf("expected Reasoning=false by default")
	}
}

func TestWithReasoningSetsEffortAndBudget(t *testing.T) {
	a := New("thinker", "think hard", "o1", "openai", WithReasoning("high", 8000))

	if !a.Reasoning() {
		t.Fatalf("expected Reasoning=true")
	}
	if a.ReasoningEffort() != "high" {
		t.Fatalf("got effort %q", a.ReasoningEffort())
	}
	if a.ReasoningBudget() != 8000 {
		t.Fatalf("got budget %d", a.ReasoningBudget())
	}
}

func TestExtraReturnsIndependentCopy(t *testing.T) {
	a := New("a", "i", "m", "p", WithExtra(map[string]any{"top_p": 0.9}))

	extra := a.Extra()
	extra["top_p"] = 0.1

	again := a.Extra()
	if again["top_p"] != 0.9 {
		t.Fatalf("mutating a returned Extra map leaked into the Agent: got %v", again["top_p"])
	}
}

func TestExtraNilWhenUnset(t *testing.T) {
	a := New("a", "i", "m", "p")
	if a.Extra() != nil {
		t.Fatalf("expected nil Extra when unset, got %v", a.Extra())
	}
}
