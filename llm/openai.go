package llm

import (
	"context"
	"encoding/json"
	"io"

	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/provider"
	"github.com/kestrelhq/conduct/schema"
	"github.com/kestrelhq/conduct/tools"
	openai "github.com/sashabaranov/go-openai"
)

// openaiAdapter drives the OpenAI chat-completions API.
type openaiAdapter struct{}

func newOpenAIAdapter() *openaiAdapter {
	return &openaiAdapter{}
}

func (a *openaiAdapter) client(p provider.Provider) *openai.Client {
	cfg := openai.DefaultConfig(p.APIKey)
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (a *openaiAdapter) Call(ctx context.Context, toolSchemas []tools.Schema, ag *agent.Agent, p provider.Provider, msgCtx *schema.Context) (*Response, error) {
	chunks, err := a.Stream(ctx, toolSchemas, ag, p, msgCtx)
	if err != nil {
		return nil, err
	}
	var final *Response
	for chunk := range chunks {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		if chunk.Final != nil {
			final = chunk.Final
		}
	}
	if final == nil {
		return nil, schema.NewProviderError(p.Name, "empty response")
	}
	return final, nil
}

func (a *openaiAdapter) Stream(ctx context.Context, toolSchemas []tools.Schema, ag *agent.Agent, p provider.Provider, msgCtx *schema.Context) (<-chan StreamChunk, error) {
	req := a.buildRequest(toolSchemas, ag, msgCtx)
	req.Stream = true

	stream, err := a.client(p).CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, schema.NewProviderError(p.Name, err.Error())
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		var content string
		haveContent := false
		toolCallsByIndex := map[int]*ToolCall{}
		var order []int

		for {
			resp, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					break
				}
				out <- StreamChunk{Err: schema.NewProviderError(p.Name, err.Error())}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				haveContent = true
				content += delta.Content
				out <- StreamChunk{TextDelta: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				entry, ok := toolCallsByIndex[idx]
				if !ok {
					entry = &ToolCall{}
					toolCallsByIndex[idx] = entry
					order = append(order, idx)
				}
				if tc.ID != "" {
					entry.ID = tc.ID
				}
				if tc.Function.Name != "" {
					entry.Name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					if entry.Arguments == nil {
						entry.Arguments = map[string]any{"__raw": ""}
					}
					raw, _ := entry.Arguments["__raw"].(string)
					entry.Arguments["__raw"] = raw + tc.Function.Arguments
				}
			}
		}

		final := &Response{}
		if haveContent {
			final.Content = &content
		}
		for _, idx := range order {
			tc := toolCallsByIndex[idx]
			args := map[string]any{}
			if raw, ok := tc.Arguments["__raw"].(string); ok && raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					args = map[string]any{"raw": raw}
				}
			}
			final.ToolCalls = append(final.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Name, Arguments: args})
		}
		out <- StreamChunk{Final: final}
	}()

	return out, nil
}

func (a *openaiAdapter) buildRequest(toolSchemas []tools.Schema, ag *agent.Agent, msgCtx *schema.Context) openai.ChatCompletionRequest {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: msgCtx.SystemPrompt()},
	}
	for _, m := range msgCtx.Messages() {
		switch m.Role {
		case schema.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case schema.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Arguments)
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}
			messages = append(messages, msg)
		case schema.RoleTool:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}

	req := openai.ChatCompletionRequest{
		Model:               ag.Model(),
		Messages:            messages,
		MaxCompletionTokens: ag.MaxOutputTokens(),
	}
	if ag.Reasoning() {
		req.ReasoningEffort = ag.ReasoningEffort()
	} else {
		req.Temperature = float32(ag.Temperature())
	}
	for _, s := range toolSchemas {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return req
}

func (a *openaiAdapter) Close() error { return nil }
