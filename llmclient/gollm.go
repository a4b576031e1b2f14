package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmReasoner implements Reasoner on top of a gollm.LLM instance,
// translating between the orchestrator's types and gollm's prompt API.
type GollmReasoner struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmOption configures a GollmReasoner.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the API key. If empty, gollm reads it from the
// provider's environment variable.
func WithAPIKey(key string) GollmOption {
	return func(c *gollmConfig) { c.apiKey = key }
}

// WithModel sets the default model.
func WithModel(model string) GollmOption {
	return func(c *gollmConfig) { c.model = model }
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) { c.maxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) { c.temperature = t }
}

// WithGollmOptions appends extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmReasoner creates a GollmReasoner for the given provider
// ("openai", "anthropic", ...).
func NewGollmReasoner(provider string, opts ...GollmOption) (*GollmReasoner, error) {
	cfg := &gollmConfig{
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-5-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries belong to RetryingReasoner
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmReasoner{provider: provider, llm: llm, model: model}, nil
}

// NewGollmReasonerFromLLM wraps an existing gollm.LLM instance.
func NewGollmReasonerFromLLM(provider string, llm gollm.LLM) *GollmReasoner {
	return &GollmReasoner{provider: provider, llm: llm}
}

// Provider returns the provider identifier.
func (r *GollmReasoner) Provider() string { return r.provider }

// Complete sends one blocking reasoning request.
func (r *GollmReasoner) Complete(ctx context.Context, req Request) (*Completion, error) {
	prompt := r.translateRequest(req)
	r.applyRequestOptions(req)

	text, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, r.translateError(err)
	}

	return r.buildCompletion(req, text), nil
}

// translateRequest converts a Request into a gollm Prompt.
func (r *GollmReasoner) translateRequest(req Request) *gollm.Prompt {
	var systemPrompt string
	var userParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.Content + "\n"
		case RoleUser:
			userParts = append(userParts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				userParts = append(userParts, "[Assistant]: "+msg.Content)
			}
		case RoleTool:
			prefix := "[Tool Result]"
			if msg.IsError {
				prefix = "[Tool Error]"
			}
			userParts = append(userParts, prefix+": "+msg.Content)
		}
	}

	promptText := strings.Join(userParts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
		promptOpts = append(promptOpts, gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
func (r *GollmReasoner) applyRequestOptions(req Request) {
	if req.Model != "" {
		r.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		r.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		r.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildCompletion constructs a Completion from the generated text,
// extracting any tool calls the provider embedded as JSON.
func (r *GollmReasoner) buildCompletion(req Request, text string) *Completion {
	toolCalls := parseToolCalls(text)

	cleaned := text
	if len(toolCalls) > 0 {
		cleaned = removeToolCallJSON(text)
	}

	inTokens := estimateTokens(req)
	outTokens := len(text) / 4

	return &Completion{
		ResponseID: "resp_" + uuid.New().String()[:8],
		Text:       cleaned,
		ToolCalls:  toolCalls,
		Usage: Usage{
			// gollm doesn't expose provider usage; estimate from length.
			InputTokens:  inTokens,
			OutputTokens: outTokens,
			TotalTokens:  inTokens + outTokens,
		},
	}
}

// parseToolCalls extracts tool calls embedded as JSON in the response
// text. gollm surfaces function calls this way for some providers.
func parseToolCalls(text string) []ToolCall {
	type rawCall struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	var rawCalls []rawCall

	if start := strings.Index(text, `{"tool_calls"`); start != -1 {
		var wrapper struct {
			ToolCalls []rawCall `json:"tool_calls"`
		}
		if err := json.Unmarshal([]byte(text[start:]), &wrapper); err != nil {
			return nil
		}
		rawCalls = wrapper.ToolCalls
	} else if start := strings.Index(text, `[{"name"`); start != -1 {
		if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err != nil {
			return nil
		}
	} else {
		return nil
	}

	calls := make([]ToolCall, 0, len(rawCalls))
	for _, rc := range rawCalls {
		calls = append(calls, ToolCall{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: rc.Arguments,
		})
	}
	return calls
}

// removeToolCallJSON strips the parsed tool call JSON from the text.
func removeToolCallJSON(text string) string {
	result := text
	for _, pattern := range []string{`{"tool_calls"`, `[{"name"`} {
		if idx := strings.Index(result, pattern); idx != -1 {
			result = strings.TrimSpace(result[:idx])
		}
	}
	return result
}

// translateError classifies a gollm error into the boundary taxonomy.
func (r *GollmReasoner) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		return &RateLimitError{
			ClientError: ClientError{Message: msg, Cause: err},
			Provider:    r.provider,
		}
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") ||
		strings.Contains(msgLower, "invalid api key") || strings.Contains(msgLower, "forbidden"):
		return &ProviderUnavailableError{
			ClientError: ClientError{Message: msg, Cause: err},
			Provider:    r.provider,
			StatusCode:  401,
			Retryable:   false,
		}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "502") ||
		strings.Contains(msgLower, "503") || strings.Contains(msgLower, "internal server") ||
		strings.Contains(msgLower, "timeout") || strings.Contains(msgLower, "connection"):
		return &ProviderUnavailableError{
			ClientError: ClientError{Message: msg, Cause: err},
			Provider:    r.provider,
			StatusCode:  503,
			Retryable:   true,
		}
	case strings.Contains(msgLower, "unmarshal") || strings.Contains(msgLower, "parse") ||
		strings.Contains(msgLower, "decode"):
		return &InvalidResponseError{
			ClientError: ClientError{Message: msg, Cause: err},
			Provider:    r.provider,
		}
	default:
		return &ProviderUnavailableError{
			ClientError: ClientError{Message: msg, Cause: err},
			Provider:    r.provider,
			Retryable:   true,
		}
	}
}

// estimateTokens provides a rough token count estimate from the request.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
