package agentcore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML config can use "5m" / "90s" forms.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the tunables of the orchestration core. The iteration
// bound and approval deadline are deliberately configuration, not
// constants.
type Config struct {
	// Model is passed through to the reasoning client; empty uses the
	// client's default.
	Model string `yaml:"model"`

	// LoopBudget bounds reasoning/tool rounds per submitted message.
	LoopBudget int `yaml:"loop_budget"`

	// ApprovalTTL is how long a pending approval waits before it
	// auto-rejects.
	ApprovalTTL Duration `yaml:"approval_ttl"`

	// EventBufferSize bounds each session's event queue.
	EventBufferSize int `yaml:"event_buffer_size"`

	// SessionIdleTimeout destroys sessions with no activity. Zero
	// disables the sweeper.
	SessionIdleTimeout Duration `yaml:"session_idle_timeout"`

	// ContextBudgetChars is the history budget for the default context
	// assembler.
	ContextBudgetChars int `yaml:"context_budget_chars"`

	// LoopGuardWindow is the repeated-call detection window; zero
	// disables the guard.
	LoopGuardWindow int `yaml:"loop_guard_window"`

	// SystemPrompt is prepended to every assembled model input.
	SystemPrompt string `yaml:"system_prompt"`
}

// DefaultConfig returns the default core configuration.
func DefaultConfig() Config {
	return Config{
		LoopBudget:         8,
		ApprovalTTL:        Duration(5 * time.Minute),
		EventBufferSize:    256,
		SessionIdleTimeout: Duration(30 * time.Minute),
		ContextBudgetChars: 200000,
		LoopGuardWindow:    10,
	}
}

// LoadConfig reads a YAML config file, overlaying it on the defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize refills zeroed-out required fields with their defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.LoopBudget <= 0 {
		c.LoopBudget = def.LoopBudget
	}
	if c.ApprovalTTL <= 0 {
		c.ApprovalTTL = def.ApprovalTTL
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = def.EventBufferSize
	}
	if c.ContextBudgetChars <= 0 {
		c.ContextBudgetChars = def.ContextBudgetChars
	}
}
