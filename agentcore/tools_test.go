package agentcore

import (
	"context"
	"encoding/json"
	"testing"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(ToolDescriptor{
		Name:        "echo",
		Description: "Echo the input.",
		Risk:        RiskSafe,
		Execute: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			return string(arguments), nil
		},
	})

	desc, ok := reg.Lookup("echo")
	if !ok {
		t.Fatal("expected tool to be registered")
	}
	if desc.Risk != RiskSafe {
		t.Errorf("expected safe, got %q", desc.Risk)
	}

	if _, ok := reg.Lookup("missing"); ok {
		t.Error("expected lookup miss")
	}
}

func TestRegistryDefaultRiskIsRequiresApproval(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(ToolDescriptor{Name: "mystery"})

	desc, _ := reg.Lookup("mystery")
	if desc.Risk != RiskRequiresApproval {
		t.Errorf("unclassified tools must require approval, got %q", desc.Risk)
	}
}

func TestRegistryDefinitions(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(ToolDescriptor{Name: "a", Description: "first", Risk: RiskSafe})
	reg.Register(ToolDescriptor{Name: "b", Description: "second", Risk: RiskRequiresApproval})

	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	for _, d := range defs {
		if d.Name == "" || d.Description == "" {
			t.Errorf("incomplete definition: %+v", d)
		}
	}
	if reg.Count() != 2 {
		t.Errorf("expected count 2, got %d", reg.Count())
	}
}

func TestParseToolArguments(t *testing.T) {
	args, err := ParseToolArguments(json.RawMessage(`{"path": "/tmp", "limit": 5, "recursive": true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s, ok := GetStringArg(args, "path"); !ok || s != "/tmp" {
		t.Errorf("GetStringArg: got %q, %v", s, ok)
	}
	if n, ok := GetIntArg(args, "limit"); !ok || n != 5 {
		t.Errorf("GetIntArg: got %d, %v", n, ok)
	}
	if b, ok := GetBoolArg(args, "recursive"); !ok || !b {
		t.Errorf("GetBoolArg: got %v, %v", b, ok)
	}
	if _, ok := GetStringArg(args, "absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestParseToolArgumentsEmpty(t *testing.T) {
	args, err := ParseToolArguments(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("expected empty map, got %v", args)
	}
}

func TestParseToolArgumentsInvalid(t *testing.T) {
	if _, err := ParseToolArguments(json.RawMessage(`{broken`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
