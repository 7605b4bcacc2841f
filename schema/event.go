package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// EventType enumerates the Runtime lifecycle events recorded in an EventLog.
type EventType string

const (
	EventLLMCall      EventType = "llm_call"
	EventLLMResponse  EventType = "llm_response"
	EventToolExec     EventType = "tool_exec"
	EventAgentCall    EventType = "agent_call"
	EventAgentReturn  EventType = "agent_return"
	EventFinish       EventType = "finish"
	EventError        EventType = "error"
)

// AgentEvent is one recorded lifecycle event, causally linked to its parent
// call (if any) via ParentCallID.
type AgentEvent struct {
	EventType     EventType
	AgentName     string
	CallID        string
	ParentCallID  string // empty means root
	Timestamp     time.Time
	Details       map[string]any
}

// EventLog is the debug-gated, replayable structural record of a run. It is
// safe for concurrent appends: sibling tool-call goroutines and forwarded
// sub-agent stream events may record events from different goroutines.
type EventLog struct {
	mu     sync.Mutex
	events []AgentEvent
}

// NewEventLog creates an empty EventLog.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Record appends an event to the log.
func (l *EventLog) Record(e AgentEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns a snapshot copy of every recorded event, in record order.
func (l *EventLog) Events() []AgentEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AgentEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len reports how many events have been recorded.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Filter returns events matching the given agent name and/or event type.
// A zero value for either filter means "match any".
func (l *EventLog) Filter(agentName string, eventType EventType) []AgentEvent {
	events := l.Events()
	result := events[:0:0]
	for _, e := range events {
		if agentName != "" && e.AgentName != agentName {
			continue
		}
		if eventType != "" && e.EventType != eventType {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Format renders the log as a multi-line, human-readable listing, grounded
// on the original implementation's fixed-width tag + truncated-detail style.
func (l *EventLog) Format() string {
	events := l.Events()
	var b strings.Builder
	for _, e := range events {
		cid := e.CallID
		if len(cid) > 8 {
			cid = cid[:8]
		}
		fmt.Fprintf(&b, "%-20s %-16s cid=%s\n", "["+e.AgentName+"]", e.EventType, cid)
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val := fmt.Sprint(e.Details[k])
			if len(val) > 120 {
				val = val[:120] + "..."
			}
			fmt.Fprintf(&b, "%-20s   %s=%s\n", "", k, val)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
