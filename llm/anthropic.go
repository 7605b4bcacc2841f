package llm

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strconv"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/kestrelhq/conduct/agent"
	"github.com/kestrelhq/conduct/provider"
	"github.com/kestrelhq/conduct/schema"
	"github.com/kestrelhq/conduct/tools"
)

const (
	probeMaxTokens   = 999_999_999
	defaultMaxTokens = 8192
)

var (
	maxTokensNumberRE   = regexp.MustCompile(`> (\d+),`)
	maxTokensFallbackRE = regexp.MustCompile(`\bis\s+(\d+)`)
	maxTokensMentionRE  = regexp.MustCompile(`(?i)max[_ ]?tokens?`)
)

// anthropicAdapter drives the Anthropic Messages API.
type anthropicAdapter struct {
	maxTokensMu    sync.Mutex
	maxTokensCache map[string]int
}

func newAnthropicAdapter() *anthropicAdapter {
	return &anthropicAdapter{maxTokensCache: map[string]int{}}
}

func (a *anthropicAdapter) client(p provider.Provider) anthropic.Client {
	opts := []option.RequestOption{option.WithAPIKey(p.APIKey)}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	return anthropic.NewClient(opts...)
}

func (a *anthropicAdapter) resolvedMaxTokens(ag *agent.Agent) int {
	if ag.MaxOutputTokens() > 0 {
		return ag.MaxOutputTokens()
	}
	a.maxTokensMu.Lock()
	defer a.maxTokensMu.Unlock()
	if cached, ok := a.maxTokensCache[ag.Model()]; ok {
		return cached
	}
	return probeMaxTokens
}

func (a *anthropicAdapter) cacheMaxTokens(model string, n int) {
	a.maxTokensMu.Lock()
	defer a.maxTokensMu.Unlock()
	a.maxTokensCache[model] = n
}

// parseMaxTokensFromError extracts the model's true max-tokens ceiling from
// an Anthropic validation error message, e.g. "max_tokens: 999999999 > 64000, ..."
// or "...maximum is 8192...".
func parseMaxTokensFromError(msg string) (int, bool) {
	if m := maxTokensNumberRE.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	if m := maxTokensFallbackRE.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (a *anthropicAdapter) Call(ctx context.Context, toolSchemas []tools.Schema, ag *agent.Agent, p provider.Provider, msgCtx *schema.Context) (*Response, error) {
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

func (a *anthropicAdapter) Stream(ctx context.Context, toolSchemas []tools.Schema, ag *agent.Agent, p provider.Provider, msgCtx *schema.Context) (<-chan StreamChunk, error) {
	client := a.client(p)
	maxTokens := a.resolvedMaxTokens(ag)

	stream := client.Messages.NewStreaming(ctx, a.buildParams(toolSchemas, ag, msgCtx, maxTokens))
	if stream.Err() != nil && maxTokens == probeMaxTokens {
		errMsg := stream.Err().Error()
		if n, ok := parseMaxTokensFromError(errMsg); ok {
			a.cacheMaxTokens(ag.Model(), n)
			stream = client.Messages.NewStreaming(ctx, a.buildParams(toolSchemas, ag, msgCtx, n))
		} else if maxTokensMentionRE.MatchString(errMsg) {
			log.Printf("llm: anthropic: could not parse max tokens for model %q, falling back to %d", ag.Model(), defaultMaxTokens)
			a.cacheMaxTokens(ag.Model(), defaultMaxTokens)
			stream = client.Messages.NewStreaming(ctx, a.buildParams(toolSchemas, ag, msgCtx, defaultMaxTokens))
		}
		// else: the error is unrelated to max-tokens; leave stream as-is so
		// its Err() surfaces as a ProviderError below instead of being
		// silently retried.
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)

		var content string
		haveContent := false
		var toolCalls []ToolCall
		var curToolID, curToolName string
		var curToolJSON string
		inToolBlock := false

		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "content_block_start":
				block := event.AsContentBlockStart().ContentBlock
				if block.Type == "tool_use" {
					toolUse := block.AsToolUse()
					curToolID = toolUse.ID
					curToolName = toolUse.Name
					curToolJSON = ""
					inToolBlock = true
				}
			case "content_block_delta":
				delta := event.AsContentBlockDelta().Delta
				switch delta.Type {
				case "text_delta":
					if delta.Text != "" {
						haveContent = true
						content += delta.Text
						out <- StreamChunk{TextDelta: delta.Text}
					}
				case "input_json_delta":
					curToolJSON += delta.PartialJSON
				}
			case "content_block_stop":
				if inToolBlock {
					args := map[string]any{}
					if curToolJSON != "" {
						if err := json.Unmarshal([]byte(curToolJSON), &args); err != nil {
							log.Printf("llm: anthropic: malformed input JSON for tool %q, using {}: %v", curToolName, err)
							args = map[string]any{}
						}
					}
					toolCalls = append(toolCalls, ToolCall{ID: curToolID, Name: curToolName, Arguments: args})
					inToolBlock = false
				}
			}
		}

		if err := stream.Err(); err != nil {
			out <- StreamChunk{Err: schema.NewProviderError(p.Name, err.Error())}
			return
		}

		final := &Response{ToolCalls: toolCalls}
		if haveContent {
			final.Content = &content
		}
		out <- StreamChunk{Final: final}
	}()

	return out, nil
}

func (a *anthropicAdapter) buildParams(toolSchemas []tools.Schema, ag *agent.Agent, msgCtx *schema.Context, maxTokens int) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(ag.Model()),
		MaxTokens: int64(maxTokens),
		System:    []anthropic.TextBlockParam{{Text: msgCtx.SystemPrompt()}},
		Messages:  a.buildMessages(msgCtx),
	}
	for _, s := range toolSchemas {
		var inputSchema anthropic.ToolInputSchemaParam
		if raw, err := json.Marshal(s.Parameters); err == nil {
			_ = json.Unmarshal(raw, &inputSchema)
		}
		toolParam := anthropic.ToolUnionParamOfTool(inputSchema, s.Name)
		if toolParam.OfTool != nil {
			toolParam.OfTool.Description = anthropic.String(s.Description)
		}
		params.Tools = append(params.Tools, toolParam)
	}
	if ag.Reasoning() {
		budget := int64(ag.ReasoningBudget())
		if budget <= 0 {
			budget = 4096
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
		params.Temperature = anthropic.Float(1)
	} else {
		params.Temperature = anthropic.Float(ag.Temperature())
	}
	return params
}

func (a *anthropicAdapter) buildMessages(msgCtx *schema.Context) []anthropic.MessageParam {
	var result []anthropic.MessageParam
	for _, m := range msgCtx.Messages() {
		switch m.Role {
		case schema.RoleUser:
			blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)}
			blocks = append(blocks, attachmentBlocks(m.Attachments)...)
			result = append(result, anthropic.NewUserMessage(blocks...))
		case schema.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		case schema.RoleTool:
			blocks := []anthropic.ContentBlockParamUnion{anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)}
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}
	return result
}

func attachmentBlocks(attachments []schema.Attachment) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, att := range attachments {
		switch {
		case att.MimeType == "application/pdf" && att.Data != "":
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: att.Data}))
		case len(att.MimeType) > 6 && att.MimeType[:6] == "image/" && att.Data != "":
			blocks = append(blocks, anthropic.NewImageBlockBase64(att.MimeType, att.Data))
		case len(att.MimeType) > 6 && att.MimeType[:6] == "image/" && att.URL != "":
			blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: att.URL}))
		}
	}
	return blocks
}

func (a *anthropicAdapter) Close() error { return nil }
