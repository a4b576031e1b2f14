package agentcore

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/bonzainsights/mragent/llmclient"
)

func assistantWithCall(name string) Turn {
	return NewAssistantTurn(&llmclient.Completion{
		ToolCalls: []llmclient.ToolCall{{ID: "call-1", Name: name, Arguments: json.RawMessage(`{}`)}},
	})
}

func TestAssembleUnderBudget(t *testing.T) {
	a := NewTruncatingAssembler(10000)
	history := []Turn{
		NewUserTurn("hello"),
		NewAssistantTurn(&llmclient.Completion{Text: "hi there"}),
	}

	msgs, err := a.Assemble("be helpful", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != llmclient.RoleSystem {
		t.Errorf("expected system prompt first, got %q", msgs[0].Role)
	}
}

func TestAssembleTruncatesOldestFirst(t *testing.T) {
	a := NewTruncatingAssembler(300)
	history := []Turn{
		NewUserTurn(strings.Repeat("old ", 100)),
		NewAssistantTurn(&llmclient.Completion{Text: strings.Repeat("older answer ", 20)}),
		NewUserTurn("newest question"),
		NewAssistantTurn(&llmclient.Completion{Text: "short answer"}),
	}

	msgs, err := a.Assemble("", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var texts []string
	for _, m := range msgs {
		texts = append(texts, m.Content)
	}
	joined := strings.Join(texts, "\n")

	if strings.Contains(joined, "old old") {
		t.Error("oldest turn should have been dropped")
	}
	if !strings.Contains(joined, "newest question") {
		t.Error("newest user turn must survive truncation")
	}
}

func TestAssemblePreservesTrailingToolRound(t *testing.T) {
	a := NewTruncatingAssembler(200)
	history := []Turn{
		NewUserTurn(strings.Repeat("padding ", 200)),
		assistantWithCall("read_file"),
		NewToolResultsTurn([]ToolResult{{CallID: "call-1", ToolName: "read_file", Content: "file content"}}),
	}

	kept := truncateOldestFirst(history, a.MaxChars)

	if len(kept) < 2 {
		t.Fatalf("expected trailing tool round to survive, kept %d turns", len(kept))
	}
	last := kept[len(kept)-1]
	if last.Kind != TurnToolResults {
		t.Errorf("expected trailing tool results, got %q", last.Kind)
	}
	if kept[len(kept)-2].Kind != TurnAssistant {
		t.Errorf("expected the requesting assistant turn kept, got %q", kept[len(kept)-2].Kind)
	}
}

func TestAssembleZeroBudgetDisablesTruncation(t *testing.T) {
	a := NewTruncatingAssembler(0)
	history := []Turn{
		NewUserTurn(strings.Repeat("x", 100000)),
		NewUserTurn("second"),
	}

	msgs, err := a.Assemble("", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("expected all turns kept, got %d messages", len(msgs))
	}
}

func TestToolResultsFlattenToToolMessages(t *testing.T) {
	a := NewTruncatingAssembler(10000)
	history := []Turn{
		NewUserTurn("go"),
		assistantWithCall("list_directory"),
		NewToolResultsTurn([]ToolResult{
			{CallID: "call-1", ToolName: "list_directory", Content: "a.txt\nb.txt"},
			{CallID: "call-2", ToolName: "read_file", Content: "denied", IsError: true},
		}),
	}

	msgs, err := a.Assemble("", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var toolMsgs []llmclient.Message
	for _, m := range msgs {
		if m.Role == llmclient.RoleTool {
			toolMsgs = append(toolMsgs, m)
		}
	}
	if len(toolMsgs) != 2 {
		t.Fatalf("expected 2 tool messages, got %d", len(toolMsgs))
	}
	if toolMsgs[0].ToolCallID != "call-1" {
		t.Errorf("expected call-1, got %q", toolMsgs[0].ToolCallID)
	}
	if !toolMsgs[1].IsError {
		t.Error("expected error flag preserved")
	}
}
