package agentcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bonzainsights/mragent/llmclient"
)

const declinedResult = "The user declined to approve this action. It was not executed."

// Orchestrator drives the reasoning/tool-call loop for every session:
// assemble model input, call the reasoner, dispatch the requested tools
// through the risk gate, feed results back, repeat. One loop instance
// runs per session; loops for different sessions run concurrently and
// never share state beyond the registries.
type Orchestrator struct {
	cfg       Config
	reasoner  llmclient.Reasoner
	tools     *ToolRegistry
	gate      *ApprovalGate
	sessions  *SessionRegistry
	assembler ContextAssembler
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithAssembler replaces the default truncating context assembler.
func WithAssembler(a ContextAssembler) Option {
	return func(o *Orchestrator) { o.assembler = a }
}

// New creates an Orchestrator with its own session registry and approval
// gate.
func New(cfg Config, reasoner llmclient.Reasoner, tools *ToolRegistry, opts ...Option) *Orchestrator {
	cfg.normalize()
	o := &Orchestrator{
		cfg:      cfg,
		reasoner: reasoner,
		tools:    tools,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.assembler == nil {
		o.assembler = NewTruncatingAssembler(cfg.ContextBudgetChars)
	}
	o.gate = NewApprovalGate(cfg.ApprovalTTL.Std())
	o.sessions = NewSessionRegistry(cfg.EventBufferSize, cfg.SessionIdleTimeout.Std(), o.gate, o.logger)
	return o
}

// CreateSession allocates a new isolated session.
func (o *Orchestrator) CreateSession() (*Session, error) {
	return o.sessions.Create()
}

// Session returns a session by ID.
func (o *Orchestrator) Session(sessionID string) (*Session, error) {
	return o.sessions.Get(sessionID)
}

// DestroySession tears a session down (client disconnect).
func (o *Orchestrator) DestroySession(sessionID string) error {
	return o.sessions.Destroy(sessionID)
}

// Close destroys all sessions and stops background work.
func (o *Orchestrator) Close() {
	o.sessions.Close()
}

// Decide is the inbound approval decision channel: whichever front-end
// surfaced an approval_required event calls it with the user's verdict.
func (o *Orchestrator) Decide(callID string, approve bool) error {
	d := DecisionRejected
	if approve {
		d = DecisionApproved
	}
	return o.gate.Resolve(callID, d)
}

// PendingApprovals lists a session's outstanding approvals, for
// front-ends that render an approval inbox.
func (o *Orchestrator) PendingApprovals(sessionID string) []*PendingApproval {
	return o.gate.PendingForSession(sessionID)
}

// Submit processes one user message through the agent loop, emitting
// progress events on the session's channel. Each call drives one finite,
// independent pass; calls for the same session serialize.
func (o *Orchestrator) Submit(ctx context.Context, sessionID, userMessage string) error {
	s, err := o.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.State() == StateClosed {
		return ErrSessionClosed
	}

	// The loop observes both the caller's context and the session's
	// lifetime; destroying the session cancels an in-flight pass.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.setState(StateProcessing)
	defer func() {
		if s.State() != StateClosed {
			s.setState(StateIdle)
		}
	}()

	s.appendTurn(NewUserTurn(userMessage))
	o.logger.Info("message submitted", "session_id", sessionID, "chars", len(userMessage))

	for iteration := 0; iteration < o.cfg.LoopBudget; iteration++ {
		if err := runCtx.Err(); err != nil {
			return err
		}

		input, err := o.assembler.Assemble(o.cfg.SystemPrompt, s.History())
		if err != nil {
			return fmt.Errorf("assemble context: %w", err)
		}

		completion, err := o.reasoner.Complete(runCtx, llmclient.Request{
			Model:    o.cfg.Model,
			Messages: input,
			Tools:    o.tools.Definitions(),
		})
		if err != nil {
			if runCtx.Err() != nil {
				return runCtx.Err()
			}
			kind := classifyReasonerError(err)
			o.logger.Warn("reasoning call failed", "session_id", sessionID, "kind", string(kind), "error", err)
			s.emitter.Emit(Event{Kind: EventError, ErrorKind: kind, Message: err.Error()})
			s.emitter.Emit(Event{Kind: EventDone})
			return err
		}

		s.appendTurn(NewAssistantTurn(completion))

		if completion.IsFinal() {
			if completion.Text != "" {
				s.emitter.Emit(Event{Kind: EventTextDelta, Text: completion.Text})
			}
			s.emitter.Emit(Event{Kind: EventDone})
			o.logger.Info("turn complete", "session_id", sessionID, "iterations", iteration+1)
			return nil
		}

		results := make([]ToolResult, 0, len(completion.ToolCalls))
		for _, call := range completion.ToolCalls {
			if call.ID == "" {
				call.ID = "call_" + uuid.New().String()[:8]
			}
			result, err := o.dispatchToolCall(runCtx, s, call)
			if err != nil {
				// Cancellation mid-dispatch: unwind without appending a
				// partial round.
				return err
			}
			results = append(results, result)
		}
		s.appendTurn(NewToolResultsTurn(results))

		if o.cfg.LoopGuardWindow > 0 && detectRepeatedCalls(s.History(), o.cfg.LoopGuardWindow) {
			note := fmt.Sprintf("The last %d tool calls follow a repeating pattern. Try a different approach.", o.cfg.LoopGuardWindow)
			s.appendTurn(NewSystemTurn(note))
			o.logger.Warn("repeated tool calls detected", "session_id", sessionID)
		}
	}

	o.logger.Warn("loop budget exceeded", "session_id", sessionID, "budget", o.cfg.LoopBudget)
	s.emitter.Emit(Event{
		Kind:      EventError,
		ErrorKind: ErrKindLoopBudgetExceeded,
		Message:   fmt.Sprintf("no final answer after %d reasoning rounds", o.cfg.LoopBudget),
	})
	s.emitter.Emit(Event{Kind: EventDone})
	return ErrLoopBudgetExceeded
}

// dispatchToolCall resolves one tool call: registry lookup, the approval
// gate for risky tools, then execution. Recoverable failures come back as
// an error-flagged ToolResult so the model can adapt; a non-nil error
// means the loop itself must unwind (cancellation).
func (o *Orchestrator) dispatchToolCall(ctx context.Context, s *Session, call llmclient.ToolCall) (ToolResult, error) {
	desc, ok := o.tools.Lookup(call.Name)
	if !ok {
		msg := fmt.Sprintf("Unknown tool: %s", call.Name)
		o.logger.Warn("unknown tool requested", "session_id", s.id, "tool", call.Name)
		s.emitter.Emit(Event{Kind: EventError, ErrorKind: ErrKindUnknownTool, CallID: call.ID, ToolName: call.Name, Message: msg})
		return ToolResult{CallID: call.ID, ToolName: call.Name, Content: msg, IsError: true}, nil
	}

	if desc.Risk == RiskRequiresApproval {
		pending, err := o.gate.Request(s.id, call.ID, call.Name, call.Arguments)
		if err != nil {
			return ToolResult{CallID: call.ID, ToolName: call.Name, Content: err.Error(), IsError: true}, nil
		}
		defer o.gate.forget(call.ID)

		s.emitter.Emit(Event{
			Kind:      EventApprovalRequired,
			CallID:    call.ID,
			ToolName:  call.Name,
			Arguments: call.Arguments,
			Deadline:  pending.Deadline,
		})
		o.logger.Info("approval requested", "session_id", s.id, "call_id", call.ID, "tool", call.Name)

		decision, timedOut, err := pending.Await(ctx)
		if err != nil {
			return ToolResult{}, err
		}
		if timedOut {
			o.logger.Warn("approval timed out", "session_id", s.id, "call_id", call.ID)
			s.emitter.Emit(Event{
				Kind:      EventError,
				ErrorKind: ErrKindApprovalTimeout,
				CallID:    call.ID,
				ToolName:  call.Name,
				Message:   "no approval decision before the deadline",
			})
			return o.declined(s, call), nil
		}
		if decision != DecisionApproved {
			o.logger.Info("approval rejected", "session_id", s.id, "call_id", call.ID)
			return o.declined(s, call), nil
		}
	}

	return o.executeTool(ctx, s, desc, call)
}

// declined synthesizes the rejected tool result and surfaces it on the
// event stream.
func (o *Orchestrator) declined(s *Session, call llmclient.ToolCall) ToolResult {
	s.emitter.Emit(Event{
		Kind:     EventToolResult,
		CallID:   call.ID,
		ToolName: call.Name,
		Result:   declinedResult,
		IsError:  true,
	})
	return ToolResult{CallID: call.ID, ToolName: call.Name, Content: declinedResult, IsError: true}
}

// executeTool runs the tool's executor and awaits its result. If the
// session is cancelled mid-flight, the execution runs to completion in
// the background and its result is discarded; killing it could leave the
// host half-mutated.
func (o *Orchestrator) executeTool(ctx context.Context, s *Session, desc *ToolDescriptor, call llmclient.ToolCall) (ToolResult, error) {
	s.emitter.Emit(Event{
		Kind:      EventToolStarted,
		CallID:    call.ID,
		ToolName:  call.Name,
		Arguments: call.Arguments,
	})

	type outcome struct {
		output string
		err    error
	}
	resCh := make(chan outcome, 1)
	started := time.Now()
	go func() {
		out, err := desc.Execute(context.WithoutCancel(ctx), call.Arguments)
		resCh <- outcome{output: out, err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			msg := fmt.Sprintf("Tool error (%s): %v", call.Name, res.err)
			o.logger.Warn("tool failed", "session_id", s.id, "tool", call.Name, "error", res.err)
			s.emitter.Emit(Event{
				Kind:     EventToolResult,
				CallID:   call.ID,
				ToolName: call.Name,
				Result:   msg,
				IsError:  true,
			})
			return ToolResult{CallID: call.ID, ToolName: call.Name, Content: msg, IsError: true}, nil
		}
		o.logger.Debug("tool finished", "session_id", s.id, "tool", call.Name, "duration", time.Since(started))
		s.emitter.Emit(Event{
			Kind:     EventToolResult,
			CallID:   call.ID,
			ToolName: call.Name,
			Result:   res.output,
		})
		return ToolResult{CallID: call.ID, ToolName: call.Name, Content: res.output}, nil
	case <-ctx.Done():
		o.logger.Info("discarding in-flight tool result", "session_id", s.id, "tool", call.Name)
		return ToolResult{}, ctx.Err()
	}
}

// classifyReasonerError maps boundary errors onto event error kinds.
func classifyReasonerError(err error) ErrorKind {
	var rateLimited *llmclient.RateLimitError
	if errors.As(err, &rateLimited) {
		return ErrKindRateLimited
	}
	var invalid *llmclient.InvalidResponseError
	if errors.As(err, &invalid) {
		return ErrKindProviderUnavailable
	}
	return ErrKindProviderUnavailable
}
