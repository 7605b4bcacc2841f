// Package logx provides the always-on ambient observer hooks the runtime's
// batch path (Execute) calls on every agent call, LLM round-trip, and tool
// execution, independent of debug-mode EventLog/Trace capture.
package logx

// Observer receives ambient notifications as a Runtime executes. Unlike
// schema.EventLog, an Observer runs unconditionally (debug or not) and is
// meant for logging/metrics side effects rather than trace reconstruction.
// ExecuteStream does not notify the Observer.
type Observer interface {
	OnAgentCall(agentName, callID, message string)
	OnAgentReturn(agentName, callID, output string)
	OnLLMCall(agentName, callID string)
	OnLLMResponse(agentName, callID string, toolCallCount, contentLength int)
	OnToolExec(agentName, toolName string, arguments map[string]any)
	OnToolResult(agentName, toolName, result string, err error)
	OnFinish(agentName, callID, message string)
	OnError(agentName, callID string, err error)
}

// NoopObserver discards every notification. It is the Runtime default.
type NoopObserver struct{}

func (NoopObserver) OnAgentCall(agentName, callID, message string)                        {}
func (NoopObserver) OnAgentReturn(agentName, callID, output string)                       {}
func (NoopObserver) OnLLMCall(agentName, callID string)                                   {}
func (NoopObserver) OnLLMResponse(agentName, callID string, toolCallCount, contentLength int) {}
func (NoopObserver) OnToolExec(agentName, toolName string, arguments map[string]any)       {}
func (NoopObserver) OnToolResult(agentName, toolName, result string, err error)            {}
func (NoopObserver) OnFinish(agentName, callID, message string)                           {}
func (NoopObserver) OnError(agentName, callID string, err error)                          {}

var _ Observer = NoopObserver{}
