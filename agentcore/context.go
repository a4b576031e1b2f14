package agentcore

import (
	"github.com/bonzainsights/mragent/llmclient"
)

// ContextAssembler builds the reasoning-model input from the system
// prompt and conversation history, enforcing a size budget.
type ContextAssembler interface {
	Assemble(systemPrompt string, history []Turn) ([]llmclient.Message, error)
}

// TruncatingAssembler is the default assembler. It flattens turns into
// messages and, when the character budget is exceeded, drops the oldest
// turns first. The system prompt, the most recent user turn, and the most
// recent unresolved tool-result round (together with the assistant turn
// that requested it) are always preserved.
type TruncatingAssembler struct {
	// MaxChars is the history budget in characters, excluding the system
	// prompt. Zero means no truncation.
	MaxChars int
}

// NewTruncatingAssembler creates an assembler with the given budget.
func NewTruncatingAssembler(maxChars int) *TruncatingAssembler {
	return &TruncatingAssembler{MaxChars: maxChars}
}

// Assemble implements ContextAssembler.
func (a *TruncatingAssembler) Assemble(systemPrompt string, history []Turn) ([]llmclient.Message, error) {
	kept := history
	if a.MaxChars > 0 {
		kept = truncateOldestFirst(history, a.MaxChars)
	}

	msgs := make([]llmclient.Message, 0, len(kept)+1)
	if systemPrompt != "" {
		msgs = append(msgs, llmclient.SystemMessage(systemPrompt))
	}
	for _, turn := range kept {
		msgs = append(msgs, messagesFromTurn(turn)...)
	}
	return msgs, nil
}

// truncateOldestFirst drops turns from the front until the history fits
// the budget, skipping protected turns.
func truncateOldestFirst(history []Turn, maxChars int) []Turn {
	total := 0
	for _, t := range history {
		total += turnSize(t)
	}
	if total <= maxChars {
		return history
	}

	protected := protectedIndices(history)
	kept := make([]Turn, 0, len(history))
	for i, t := range history {
		if total <= maxChars || protected[i] {
			kept = append(kept, t)
			continue
		}
		total -= turnSize(t)
	}
	return kept
}

// protectedIndices marks turns that survive truncation regardless of
// budget: the newest user turn, and the trailing tool-result round with
// the assistant turn whose calls it answers.
func protectedIndices(history []Turn) map[int]bool {
	protected := make(map[int]bool)

	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Kind == TurnUser {
			protected[i] = true
			break
		}
	}

	if n := len(history); n > 0 && history[n-1].Kind == TurnToolResults {
		protected[n-1] = true
		if n > 1 && history[n-2].Kind == TurnAssistant {
			protected[n-2] = true
		}
	}
	return protected
}

// turnSize approximates the character weight of a turn.
func turnSize(t Turn) int {
	size := len(t.TextContent())
	if t.Kind == TurnToolResults && t.ToolResults != nil {
		for _, r := range t.ToolResults.Results {
			size += len(r.Content)
		}
	}
	return size
}
