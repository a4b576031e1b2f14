package agentcore

import (
	"time"

	"github.com/bonzainsights/mragent/llmclient"
)

// TurnKind discriminates between turn types.
type TurnKind string

const (
	TurnUser        TurnKind = "user"
	TurnAssistant   TurnKind = "assistant"
	TurnToolResults TurnKind = "tool_results"
	TurnSystem      TurnKind = "system"
)

// Turn is a single entry in a session's conversation history. Turns are
// immutable once appended; exactly one of the payload pointers is set.
type Turn struct {
	Kind        TurnKind         `json:"kind"`
	Timestamp   time.Time        `json:"timestamp"`
	User        *UserTurn        `json:"user,omitempty"`
	Assistant   *AssistantTurn   `json:"assistant,omitempty"`
	ToolResults *ToolResultsTurn `json:"tool_results,omitempty"`
	System      *SystemTurn      `json:"system,omitempty"`
}

// UserTurn holds user input.
type UserTurn struct {
	Content string `json:"content"`
}

// AssistantTurn holds the model's response, including any tool calls it
// requested.
type AssistantTurn struct {
	Content    string               `json:"content"`
	ToolCalls  []llmclient.ToolCall `json:"tool_calls,omitempty"`
	Usage      llmclient.Usage      `json:"usage"`
	ResponseID string               `json:"response_id,omitempty"`
}

// ToolResult is the outcome of one tool call, synthesized for the model.
type ToolResult struct {
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
	Content  string `json:"content"`
	IsError  bool   `json:"is_error"`
}

// ToolResultsTurn holds the results for one round of tool calls.
type ToolResultsTurn struct {
	Results []ToolResult `json:"results"`
}

// SystemTurn holds an injected system note (course corrections, loop
// guard warnings).
type SystemTurn struct {
	Content string `json:"content"`
}

// NewUserTurn creates a Turn wrapping user input.
func NewUserTurn(content string) Turn {
	return Turn{Kind: TurnUser, Timestamp: time.Now(), User: &UserTurn{Content: content}}
}

// NewAssistantTurn creates a Turn wrapping an assistant response.
func NewAssistantTurn(c *llmclient.Completion) Turn {
	return Turn{
		Kind:      TurnAssistant,
		Timestamp: time.Now(),
		Assistant: &AssistantTurn{
			Content:    c.Text,
			ToolCalls:  c.ToolCalls,
			Usage:      c.Usage,
			ResponseID: c.ResponseID,
		},
	}
}

// NewToolResultsTurn creates a Turn wrapping one round of tool results.
func NewToolResultsTurn(results []ToolResult) Turn {
	return Turn{Kind: TurnToolResults, Timestamp: time.Now(), ToolResults: &ToolResultsTurn{Results: results}}
}

// NewSystemTurn creates a Turn wrapping a system note.
func NewSystemTurn(content string) Turn {
	return Turn{Kind: TurnSystem, Timestamp: time.Now(), System: &SystemTurn{Content: content}}
}

// TextContent returns the text content of a turn regardless of its kind.
func (t Turn) TextContent() string {
	switch t.Kind {
	case TurnUser:
		if t.User != nil {
			return t.User.Content
		}
	case TurnAssistant:
		if t.Assistant != nil {
			return t.Assistant.Content
		}
	case TurnSystem:
		if t.System != nil {
			return t.System.Content
		}
	}
	return ""
}

// messagesFromTurn flattens one turn into reasoning-boundary messages.
func messagesFromTurn(turn Turn) []llmclient.Message {
	switch turn.Kind {
	case TurnUser:
		if turn.User != nil {
			return []llmclient.Message{llmclient.UserMessage(turn.User.Content)}
		}
	case TurnAssistant:
		if turn.Assistant != nil {
			return []llmclient.Message{llmclient.AssistantMessage(turn.Assistant.Content)}
		}
	case TurnToolResults:
		if turn.ToolResults != nil {
			msgs := make([]llmclient.Message, 0, len(turn.ToolResults.Results))
			for _, r := range turn.ToolResults.Results {
				msgs = append(msgs, llmclient.ToolResultMessage(r.CallID, r.Content, r.IsError))
			}
			return msgs
		}
	case TurnSystem:
		if turn.System != nil {
			// System notes are sent as user messages so the model treats
			// them as additional instructions mid-conversation.
			return []llmclient.Message{llmclient.UserMessage(turn.System.Content)}
		}
	}
	return nil
}
