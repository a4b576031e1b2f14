package agentcore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Decision is the outcome of an approval request.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// PendingApproval represents one suspended risky action. The session's
// loop blocks on Await; whichever front-end surfaced the request writes
// the decision back through ApprovalGate.Resolve. Exactly one resolution
// wins; the deadline auto-rejects without polling.
type PendingApproval struct {
	CallID    string
	SessionID string
	ToolName  string
	Arguments json.RawMessage
	CreatedAt time.Time
	Deadline  time.Time

	mu       sync.Mutex
	resolved bool
	decision Decision
	timedOut bool
	done     chan struct{}
	timer    *time.Timer
}

// resolve records a decision. Only the first caller wins.
func (p *PendingApproval) resolve(d Decision, timedOut bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return ErrAlreadyResolved
	}
	p.resolved = true
	p.decision = d
	p.timedOut = timedOut
	if p.timer != nil {
		p.timer.Stop()
	}
	close(p.done)
	return nil
}

// Await suspends until a decision arrives, the deadline elapses, or ctx
// is cancelled. A deadline expiry reports DecisionRejected with
// timedOut=true. On cancellation the approval is rejected internally so
// a late Resolve fails cleanly.
func (p *PendingApproval) Await(ctx context.Context) (Decision, bool, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		d, to := p.decision, p.timedOut
		p.mu.Unlock()
		return d, to, nil
	case <-ctx.Done():
		_ = p.resolve(DecisionRejected, false)
		return DecisionRejected, false, ctx.Err()
	}
}

// ApprovalGate is the single source of truth mapping outstanding call IDs
// to their PendingApprovals. All external approval channels (web
// endpoint, CLI prompt, chat command) write into it via Resolve.
type ApprovalGate struct {
	ttl time.Duration

	mu      sync.Mutex
	pending map[string]*PendingApproval
}

// NewApprovalGate creates a gate whose requests expire after ttl.
func NewApprovalGate(ttl time.Duration) *ApprovalGate {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ApprovalGate{
		ttl:     ttl,
		pending: make(map[string]*PendingApproval),
	}
}

// Request creates a PendingApproval for the call and arms its deadline.
// At most one PendingApproval may exist per call ID.
func (g *ApprovalGate) Request(sessionID, callID, toolName string, arguments json.RawMessage) (*PendingApproval, error) {
	now := time.Now()
	p := &PendingApproval{
		CallID:    callID,
		SessionID: sessionID,
		ToolName:  toolName,
		Arguments: arguments,
		CreatedAt: now,
		Deadline:  now.Add(g.ttl),
		done:      make(chan struct{}),
	}

	g.mu.Lock()
	if _, exists := g.pending[callID]; exists {
		g.mu.Unlock()
		return nil, ErrDuplicateApproval
	}
	g.pending[callID] = p
	g.mu.Unlock()

	p.timer = time.AfterFunc(g.ttl, func() { g.expire(callID) })
	return p, nil
}

// Resolve records a decision for an outstanding call ID. It fails with
// ErrUnknownApproval if the ID is unknown or expired, and with
// ErrAlreadyResolved if a decision was already recorded; concurrent
// attempts are linearized so exactly one succeeds.
func (g *ApprovalGate) Resolve(callID string, d Decision) error {
	g.mu.Lock()
	p, ok := g.pending[callID]
	g.mu.Unlock()
	if !ok {
		return ErrUnknownApproval
	}
	return p.resolve(d, false)
}

// Pending returns the outstanding approval for a call ID, if any.
func (g *ApprovalGate) Pending(callID string) (*PendingApproval, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pending[callID]
	return p, ok
}

// PendingForSession returns all outstanding approvals for one session.
func (g *ApprovalGate) PendingForSession(sessionID string) []*PendingApproval {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*PendingApproval
	for _, p := range g.pending {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out
}

// forget drops the mapping once the waiting loop has consumed the
// decision. Later Resolve calls get ErrUnknownApproval.
func (g *ApprovalGate) forget(callID string) {
	g.mu.Lock()
	delete(g.pending, callID)
	g.mu.Unlock()
}

// expire auto-rejects a request whose deadline elapsed.
func (g *ApprovalGate) expire(callID string) {
	g.mu.Lock()
	p, ok := g.pending[callID]
	if ok {
		delete(g.pending, callID)
	}
	g.mu.Unlock()
	if ok {
		_ = p.resolve(DecisionRejected, true)
	}
}

// RejectSession resolves every outstanding approval of a session as
// rejected. Called on session destruction so no PendingApproval leaks
// past its owner.
func (g *ApprovalGate) RejectSession(sessionID string) {
	g.mu.Lock()
	var doomed []*PendingApproval
	for id, p := range g.pending {
		if p.SessionID == sessionID {
			doomed = append(doomed, p)
			delete(g.pending, id)
		}
	}
	g.mu.Unlock()
	for _, p := range doomed {
		_ = p.resolve(DecisionRejected, false)
	}
}
