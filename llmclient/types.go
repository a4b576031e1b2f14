package llmclient

import (
	"context"
	"encoding/json"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one unit of assembled model input.
type Message struct {
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates an assistant Message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolResultMessage creates a tool result Message tied to a prior call.
func ToolResultMessage(toolCallID, content string, isError bool) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID, IsError: isError}
}

// ToolCall is a model-initiated tool invocation request.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a callable tool to the model (JSON Schema
// parameters, no executable parts).
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Usage tracks token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Request is the input to Reasoner.Complete.
type Request struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

// Completion is the outcome of one reasoning call: either a final answer
// (no tool calls) or a request to run one or more tools.
type Completion struct {
	ResponseID string     `json:"response_id,omitempty"`
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Usage      Usage      `json:"usage"`
}

// IsFinal reports whether the completion is a final answer rather than a
// tool-call request.
func (c *Completion) IsFinal() bool {
	return len(c.ToolCalls) == 0
}

// Reasoner is the contract the orchestrator drives. Implementations own
// their transport, authentication, and per-call timeouts; failures
// surface as the error types in this package.
type Reasoner interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
