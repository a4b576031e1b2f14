package agentcore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bonzainsights/mragent/llmclient"
)

// RiskClass statically classifies a tool as auto-executable or gated
// behind human approval.
type RiskClass string

const (
	RiskSafe             RiskClass = "safe"
	RiskRequiresApproval RiskClass = "requires_approval"
)

// ToolExecutor is the function signature for tool execution. The context
// is informational: an execution already in flight is expected to run to
// completion even if the session is cancelled, so the host is never left
// half-mutated.
type ToolExecutor func(ctx context.Context, arguments json.RawMessage) (string, error)

// ToolDescriptor is a static tool registration record. Descriptors are
// registered at process start, read-only thereafter, and shared by all
// sessions. Each tool enforces its own resource-access limits; the core
// only dispatches.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON Schema
	Risk        RiskClass
	Execute     ToolExecutor
}

// ToolRegistry maps tool names to descriptors. Registration happens at
// startup; lookups are safe for unsynchronized concurrent use by all
// session loops.
type ToolRegistry struct {
	tools map[string]*ToolDescriptor
	mu    sync.RWMutex
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolDescriptor)}
}

// Register adds or replaces a tool in the registry. Descriptors with an
// empty risk class default to requires_approval.
func (r *ToolRegistry) Register(desc ToolDescriptor) {
	if desc.Risk == "" {
		desc.Risk = RiskRequiresApproval
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[desc.Name] = &desc
}

// Lookup returns a registered tool by name.
func (r *ToolRegistry) Lookup(name string) (*ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// Definitions returns all tool definitions for the reasoning request.
func (r *ToolRegistry) Definitions() []llmclient.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llmclient.ToolDefinition, 0, len(r.tools))
	for _, d := range r.tools {
		defs = append(defs, llmclient.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return defs
}

// Names returns the names of all registered tools.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ParseToolArguments unmarshals tool call arguments into a map for
// validation and access.
func ParseToolArguments(raw json.RawMessage) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

// GetStringArg extracts a string argument from parsed tool arguments.
func GetStringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetIntArg extracts an integer argument from parsed tool arguments.
func GetIntArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// GetBoolArg extracts a boolean argument from parsed tool arguments.
func GetBoolArg(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
