// Package agentcore implements the orchestration core of a personal AI
// assistant: the loop that interleaves model reasoning with tool
// execution, gated by human approval for risky actions.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Orchestrator: Drives the reasoning/tool-call loop for every
//     session, dispatching tool calls and enforcing the iteration budget.
//   - Session / SessionRegistry: Isolated conversations, each with its
//     own history and ordered event channel.
//   - ToolRegistry: Registration and dispatch of tool definitions, each
//     carrying a risk class.
//   - ApprovalGate: Pending approvals for risky tool calls, resolved by
//     a human decision or a deadline.
//   - ContextAssembler: Builds the model input from history under a size
//     budget, truncating the oldest turns first.
//
// # Quick Start
//
//	reasoner, _ := llmclient.NewGollmReasoner("anthropic",
//	    llmclient.WithModel("claude-sonnet-4-5"))
//	tools := agentcore.NewToolRegistry()
//	agentcore.RegisterCoreTools(tools)
//
//	core := agentcore.New(agentcore.DefaultConfig(), reasoner, tools)
//	defer core.Close()
//
//	session, _ := core.CreateSession()
//	go core.Submit(ctx, session.ID(), "Tidy up my downloads folder")
//
//	for event := range session.Events() {
//	    if event.Kind == agentcore.EventApprovalRequired {
//	        core.Decide(event.CallID, askUser(event))
//	    }
//	}
package agentcore
