package logx

import (
	"encoding/json"
	"io"
	"log"
	"time"
)

// JSONObserver writes one JSON object per line for every notification.
type JSONObserver struct {
	logger *log.Logger
}

// NewJSONObserver builds a JSONObserver writing to out. A nil out discards
// all output.
func NewJSONObserver(out io.Writer) *JSONObserver {
	if out == nil {
		out = io.Discard
	}
	return &JSONObserver{logger: log.New(out, "", 0)}
}

func (o *JSONObserver) log(event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().Format(time.RFC3339Nano),
		"event": event,
	}
	for k, v := range fields {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.Printf(`{"event":"log_error","error":%q}`, err.Error())
		return
	}
	o.logger.Println(string(data))
}

func (o *JSONObserver) OnAgentCall(agentName, callID, message string) {
	o.log("agent_call", map[string]any{"agent": agentName, "call_id": callID, "message_len": len(message)})
}

func (o *JSONObserver) OnAgentReturn(agentName, callID, output string) {
	o.log("agent_return", map[string]any{"agent": agentName, "call_id": callID, "output_len": len(output)})
}

func (o *JSONObserver) OnLLMCall(agentName, callID string) {
	o.log("llm_call", map[string]any{"agent": agentName, "call_id": callID})
}

func (o *JSONObserver) OnLLMResponse(agentName, callID string, toolCallCount, contentLength int) {
	o.log("llm_response", map[string]any{
		"agent": agentName, "call_id": callID,
		"tool_calls": toolCallCount, "content_len": contentLength,
	})
}

func (o *JSONObserver) OnToolExec(agentName, toolName string, arguments map[string]any) {
	o.log("tool_exec", map[string]any{"agent": agentName, "tool": toolName, "arguments": arguments})
}

func (o *JSONObserver) OnToolResult(agentName, toolName, result string, err error) {
	fields := map[string]any{"agent": agentName, "tool": toolName}
	if err != nil {
		fields["error"] = err.Error()
		o.log("tool_error", fields)
		return
	}
	fields["result_len"] = len(result)
	o.log("tool_result", fields)
}

func (o *JSONObserver) OnFinish(agentName, callID, message string) {
	o.log("finish", map[string]any{"agent": agentName, "call_id": callID, "message_len": len(message)})
}

func (o *JSONObserver) OnError(agentName, callID string, err error) {
	if err == nil {
		return
	}
	o.log("error", map[string]any{"agent": agentName, "call_id": callID, "error": err.Error()})
}

var _ Observer = (*JSONObserver)(nil)
