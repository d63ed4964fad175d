package openai

import (
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// toChatCompletionRequest 将 ADK 请求转换为 OpenAI 请求
func toChatCompletionRequest(req *model.LLMRequest, modelName string) (openai.ChatCompletionRequest, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Contents))
	for _, content := range req.Contents {
		msgs, err := toChatCompletionMessages(content)
		if err != nil {
			return openai.ChatCompletionRequest{}, err
		}
		messages = append(messages, msgs...)
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: messages,
	}

	if req.Config == nil {
		return openaiReq, nil
	}

	// 系统指令前置
	if req.Config.SystemInstruction != nil {
		systemMsg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: textOfContent(req.Config.SystemInstruction),
		}
		openaiReq.Messages = append([]openai.ChatCompletionMessage{systemMsg}, openaiReq.Messages...)
	}

	// 工具定义
	if len(req.Config.Tools) > 0 {
		tools, err := toOpenAITools(req.Config.Tools)
		if err != nil {
			return openai.ChatCompletionRequest{}, err
		}
		openaiReq.Tools = tools
	}

	// JSON 模式：OpenAI 兼容接口没有声明式 Schema，只有 json_object 约束，
	// 具体结构仍靠提示词约定 + 调用方防御性解析
	if req.Config.ResponseMIMEType == "application/json" {
		openaiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if req.Config.Temperature != nil {
		openaiReq.Temperature = *req.Config.Temperature
	}
	if req.Config.MaxOutputTokens > 0 {
		openaiReq.MaxTokens = int(req.Config.MaxOutputTokens)
	}

	return openaiReq, nil
}

// toChatCompletionMessages 将 genai.Content 转换为 OpenAI 消息
// FunctionResponse 片段拆为独立 tool 消息，其余聚合为一条
func toChatCompletionMessages(content *genai.Content) ([]openai.ChatCompletionMessage, error) {
	var messages []openai.ChatCompletionMessage

	msg := openai.ChatCompletionMessage{Role: toOpenAIRole(content.Role)}
	var textContent string
	var toolCalls []openai.ToolCall

	for _, part := range content.Parts {
		if part.FunctionResponse != nil {
			responseJSON, err := json.Marshal(part.FunctionResponse.Response)
			if err != nil {
				return nil, fmt.Errorf("marshal function response error: %w", err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: part.FunctionResponse.ID,
				Content:    string(responseJSON),
			})
			continue
		}

		if part.Thought {
			continue
		}
		if part.Text != "" {
			textContent += part.Text
		}
		if part.FunctionCall != nil {
			argsJSON, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("marshal function args error: %w", err)
			}
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   part.FunctionCall.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}

	if textContent == "" && len(toolCalls) == 0 {
		return messages, nil
	}

	msg.Content = textContent
	msg.ToolCalls = toolCalls
	return append(messages, msg), nil
}

// toOpenAITools 转换工具定义
func toOpenAITools(genaiTools []*genai.Tool) ([]openai.Tool, error) {
	var tools []openai.Tool
	for _, gt := range genaiTools {
		if gt == nil {
			continue
		}
		for _, decl := range gt.FunctionDeclarations {
			fn := &openai.FunctionDefinition{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  decl.ParametersJsonSchema,
			}
			if fn.Parameters == nil {
				fn.Parameters = decl.Parameters
			}
			if fn.Parameters == nil {
				return nil, fmt.Errorf("parameters is nil for tool %s", decl.Name)
			}
			tools = append(tools, openai.Tool{Type: openai.ToolTypeFunction, Function: fn})
		}
	}
	return tools, nil
}

// fromChatCompletionResponse 转换 OpenAI 响应
func fromChatCompletionResponse(resp *openai.ChatCompletionResponse) (*model.LLMResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoicesInResponse
	}

	choice := resp.Choices[0]
	content := &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{},
	}

	// thinking 模型的 reasoning_content 作为 thought 片段
	if choice.Message.ReasoningContent != "" {
		content.Parts = append(content.Parts, &genai.Part{
			Text:    choice.Message.ReasoningContent,
			Thought: true,
		})
	}

	if choice.Message.Content != "" {
		content.Parts = append(content.Parts, &genai.Part{Text: choice.Message.Content})
	}

	for _, toolCall := range choice.Message.ToolCalls {
		if toolCall.Type != openai.ToolTypeFunction {
			continue
		}
		content.Parts = append(content.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   toolCall.ID,
				Name: toolCall.Function.Name,
				Args: parseJSONArgs(toolCall.Function.Arguments),
			},
		})
	}

	var usage *genai.GenerateContentResponseUsageMetadata
	if resp.Usage.TotalTokens > 0 {
		usage = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(resp.Usage.PromptTokens),
			CandidatesTokenCount: int32(resp.Usage.CompletionTokens),
			TotalTokenCount:      int32(resp.Usage.TotalTokens),
		}
	}

	return &model.LLMResponse{
		Content:       content,
		UsageMetadata: usage,
		FinishReason:  toFinishReason(string(choice.FinishReason)),
		TurnComplete:  true,
	}, nil
}

// toOpenAIRole 转换角色
func toOpenAIRole(role string) string {
	switch role {
	case "model":
		return openai.ChatMessageRoleAssistant
	case "system":
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

// toFinishReason 转换结束原因
func toFinishReason(reason string) genai.FinishReason {
	switch reason {
	case "stop", "tool_calls", "function_call":
		return genai.FinishReasonStop
	case "length":
		return genai.FinishReasonMaxTokens
	case "content_filter":
		return genai.FinishReasonSafety
	default:
		return genai.FinishReasonUnspecified
	}
}

// parseJSONArgs 解析工具调用参数，解析失败时返回空 map
func parseJSONArgs(arguments string) map[string]any {
	args := make(map[string]any)
	if arguments == "" {
		return args
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

// textOfContent 提取内容中的全部文本
func textOfContent(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var text string
	for _, part := range content.Parts {
		if part.Text == "" {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += part.Text
	}
	return text
}
