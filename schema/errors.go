package schema

import "fmt"

// ProviderError wraps an LLM adapter failure: vendor call errors, empty
// responses, auth/model errors. Fatal to the current agent turn.
type ProviderError struct {
	ProviderName string
	Message      string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s", e.ProviderName, e.Message)
}

func NewProviderError(providerName, message string) *ProviderError {
	return &ProviderError{ProviderName: providerName, Message: message}
}

// ToolError wraps a failure to locate or invoke a Tool outside the
// parallel-dispatch path, where errors are instead converted to a string
// result (see runtime.Execute).
type ToolError struct {
	ToolName string
	Message  string
	Err      error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.ToolName, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.ToolName, e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func NewToolError(toolName, message string, err error) *ToolError {
	return &ToolError{ToolName: toolName, Message: message, Err: err}
}

// RoutingError signals an unknown agent name looked up through the Router
// (an unknown tool name is a ToolError). Fatal to the current turn.
type RoutingError struct {
	Message string
}

func (e *RoutingError) Error() string {
	return e.Message
}

func NewRoutingError(message string) *RoutingError {
	return &RoutingError{Message: message}
}

// AgentError is reserved for higher-level orchestration failures (e.g. a
// configured turn cap being exceeded). It is never raised by the core
// per-turn dispatch loop.
type AgentError struct {
	AgentName string
	Message   string
	Err       error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.AgentName, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.AgentName, e.Message)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

func NewAgentError(agentName, message string, err error) *AgentError {
	return &AgentError{AgentName: agentName, Message: message, Err: err}
}
