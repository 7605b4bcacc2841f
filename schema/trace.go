package schema

import (
	"fmt"
	"strings"
	"time"
)

// Span is a reconstructed interval in the Trace tree, corresponding to one
// agent turn (root or recursive call_agent invocation).
type Span struct {
	AgentName    string
	CallID       string
	ParentCallID string
	StartTime    time.Time
	EndTime      time.Time
	Children     []*Span
	ToolCalls    []map[string]any
	Result       string
	hasResult    bool
}

// Duration returns EndTime-StartTime, or 0 if either is unset.
func (s *Span) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Trace builds a span tree from an EventLog, linking spans by
// CallID/ParentCallID.
type Trace struct {
	root  *Span
	spans map[string]*Span
}

// BuildTrace walks every event in the log, grouping by CallID into Spans and
// nesting each under its ParentCallID. Children are nested in event-log
// order (the order their CallID first appears), not map iteration order, so
// that two or more sibling sub-agent calls sharing a parent come out in a
// deterministic, reproducible order across runs.
func BuildTrace(log *EventLog) *Trace {
	t := &Trace{spans: make(map[string]*Span)}
	if log == nil {
		return t
	}
	var order []*Span
	for _, e := range log.Events() {
		span, ok := t.spans[e.CallID]
		if !ok {
			span = &Span{AgentName: e.AgentName, CallID: e.CallID, ParentCallID: e.ParentCallID}
			t.spans[e.CallID] = span
			order = append(order, span)
		}
		switch e.EventType {
		case EventAgentCall:
			span.StartTime = e.Timestamp
		case EventAgentReturn, EventFinish:
			span.EndTime = e.Timestamp
			if result, ok := e.Details["result"]; ok {
				span.Result = fmt.Sprint(result)
				span.hasResult = true
			}
		case EventToolExec:
			span.ToolCalls = append(span.ToolCalls, e.Details)
		}
	}
	for _, span := range order {
		if span.ParentCallID != "" {
			if parent, ok := t.spans[span.ParentCallID]; ok {
				parent.Children = append(parent.Children, span)
				continue
			}
		}
		if t.root == nil {
			t.root = span
		}
	}
	return t
}

// Root returns the entry-point span, or nil if the trace is empty.
func (t *Trace) Root() *Span {
	return t.root
}

// PrintTree renders the trace as an indented, box-drawn tree.
func (t *Trace) PrintTree() string {
	if t.root == nil {
		return "(empty trace)"
	}
	var b strings.Builder
	formatSpan(&b, t.root, "", true)
	return strings.TrimRight(b.String(), "\n")
}

func formatSpan(b *strings.Builder, span *Span, prefix string, isLast bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	dur := "..."
	if d := span.Duration(); d > 0 {
		dur = fmt.Sprintf("%.2fs", d.Seconds())
	}
	fmt.Fprintf(b, "%s%s[%s] (%s)\n", prefix, connector, span.AgentName, dur)

	childPrefix := prefix + "    "
	if !isLast {
		childPrefix = prefix + "│   "
	}
	for _, tc := range span.ToolCalls {
		name := "?"
		if n, ok := tc["tool_name"]; ok {
			name = fmt.Sprint(n)
		}
		fmt.Fprintf(b, "%s  ⚡ %s\n", childPrefix, name)
	}
	for i, child := range span.Children {
		formatSpan(b, child, childPrefix, i == len(span.Children)-1)
	}
}
