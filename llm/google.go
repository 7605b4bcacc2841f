package llm

import (
	"context"

	"github.com/google/uuid"
	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/provider"
	"github.com/kestrelhq/conduct/schema"
	"github.com/kestrelhq/conduct/tools"
	"google.golang.org/genai"
)

// jsonTypeToGenaiType maps a JSON Schema "type" string to the matching
// genai.Type constant (TypeString, TypeNumber, TypeInteger, TypeBoolean,
// TypeArray, TypeObject).
var jsonTypeToGenaiType = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

// googleAdapter drives the Google Generative AI (Gemini) API.
type googleAdapter struct{}

func newGoogleAdapter() *googleAdapter {
	return &googleAdapter{}
}

func (a *googleAdapter) client(ctx context.Context, p provider.Provider) (*genai.Client, error) {
	cfg := &genai.ClientConfig{APIKey: p.APIKey}
	return genai.NewClient(ctx, cfg)
}

func (a *googleAdapter) Call(ctx context.Context, toolSchemas []tools.Schema, ag *agent.Agent, p provider.Provider, msgCtx *schema.Context) (*Response, error) {
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

func (a *googleAdapter) Stream(ctx context.Context, toolSchemas []tools.Schema, ag *agent.Agent, p provider.Provider, msgCtx *schema.Context) (<-chan StreamChunk, error) {
	client, err := a.client(ctx, p)
	if err != nil {
		return nil, schema.NewProviderError(p.Name, err.Error())
	}

	contents := a.buildContents(msgCtx)
	config := a.buildConfig(ag, toolSchemas, msgCtx)

	stream := client.Models.GenerateContentStream(ctx, ag.Model(), contents, config)

	out := make(chan StreamChunk)
	go func() {
		defer close(out)

		var content string
		haveContent := false
		var toolCalls []ToolCall

		for resp, err := range stream {
			if err != nil {
				out <- StreamChunk{Err: schema.NewProviderError(p.Name, err.Error())}
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					haveContent = true
					content += part.Text
					out <- StreamChunk{TextDelta: part.Text}
				}
				if part.FunctionCall != nil {
					id := part.FunctionCall.ID
					if id == "" {
						id = uuid.NewString()
					}
					toolCalls = append(toolCalls, ToolCall{
						ID:        id,
						Name:      part.FunctionCall.Name,
						Arguments: part.FunctionCall.Args,
					})
				}
			}
		}

		final := &Response{ToolCalls: toolCalls}
		if haveContent {
			final.Content = &content
		}
		out <- StreamChunk{Final: final}
	}()

	return out, nil
}

func (a *googleAdapter) buildContents(msgCtx *schema.Context) []*genai.Content {
	var contents []*genai.Content
	for _, m := range msgCtx.Messages() {
		switch m.Role {
		case schema.RoleUser:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		case schema.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Arguments},
				})
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case schema.RoleTool:
			contents = append(contents, &genai.Content{
				Role: "function",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       m.ToolCallID,
						Name:     m.ToolName,
						Response: map[string]any{"result": m.Content},
					},
				}},
			})
		}
	}
	return contents
}

func (a *googleAdapter) buildConfig(ag *agent.Agent, toolSchemas []tools.Schema, msgCtx *schema.Context) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: msgCtx.SystemPrompt()}}},
		Temperature:       genai.Ptr(float32(ag.Temperature())),
	}
	if ag.MaxOutputTokens() > 0 {
		config.MaxOutputTokens = int32(ag.MaxOutputTokens())
	}
	if ag.Reasoning() {
		budget := int32(ag.ReasoningBudget())
		if budget <= 0 {
			budget = 4096
		}
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	if len(toolSchemas) > 0 {
		var decls []*genai.FunctionDeclaration
		for _, s := range toolSchemas {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  jsonSchemaToGenai(s.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return config
}

// jsonSchemaToGenai recursively converts a JSON-Schema map into a
// *genai.Schema, mapping the "type" string through jsonTypeToGenaiType.
func jsonSchemaToGenai(raw map[string]any) *genai.Schema {
	if raw == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := raw["type"].(string); ok {
		if gt, ok := jsonTypeToGenaiType[t]; ok {
			s.Type = gt
		}
	}
	if desc, ok := raw["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = jsonSchemaToGenai(propMap)
			}
		}
	}
	if required, ok := raw["required"].([]string); ok {
		s.Required = required
	} else if requiredAny, ok := raw["required"].([]any); ok {
		for _, r := range requiredAny {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := raw["items"].(map[string]any); ok {
		s.Items = jsonSchemaToGenai(items)
	}
	if enum, ok := raw["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}
	return s
}

func (a *googleAdapter) Close() error { return nil }
