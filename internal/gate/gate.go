// Package gate tracks pending approve/reject requests raised by risky
// tool calls. Every request resolves exactly once: by an explicit
// decision, by a bulk action, or by timeout (which counts as rejection).
package gate

import (
	"context"
	"sort"
	"sync"
	"time"

	"overseer/internal/logging"
	"overseer/internal/types"
)

const DefaultTimeout = 120 * time.Second

type pending struct {
	confirmation *types.Confirmation
	ch           chan bool
	timer        *time.Timer
}

type Gate struct {
	mu          sync.Mutex
	pending     map[string]*pending
	autoApprove map[types.ToolCategory]bool
	logger      logging.Logger
}

func New(logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{
		pending:     make(map[string]*pending),
		autoApprove: make(map[types.ToolCategory]bool),
		logger:      logger,
	}
}

// Request registers a waiter for the given confirmation and returns a
// channel that yields the decision. The channel is buffered: the decision
// can be delivered even if nobody is listening yet. A negative timeout
// uses DefaultTimeout; a zero timeout has already elapsed and rejects
// immediately without registering, so the id is never resolvable. If an
// entry with the same id already exists it is rejected before the new
// one is registered.
func (g *Gate) Request(confirmation *types.Confirmation, timeout time.Duration) <-chan bool {
	if timeout < 0 {
		timeout = DefaultTimeout
	}
	if confirmation.CreatedAt.IsZero() {
		confirmation.CreatedAt = time.Now().UTC()
	}

	g.mu.Lock()
	if g.autoApprove[confirmation.Category] {
		g.mu.Unlock()
		ch := make(chan bool, 1)
		ch <- true
		return ch
	}
	if timeout == 0 {
		g.mu.Unlock()
		g.logger.Info("confirmation_timeout", logging.F("id", confirmation.ID), logging.F("tool", confirmation.ToolName))
		ch := make(chan bool, 1)
		ch <- false
		return ch
	}
	if prior, ok := g.pending[confirmation.ID]; ok {
		g.finishLocked(confirmation.ID, prior, false)
	}
	entry := &pending{
		confirmation: confirmation,
		ch:           make(chan bool, 1),
	}
	id := confirmation.ID
	entry.timer = time.AfterFunc(timeout, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		current, ok := g.pending[id]
		if !ok || current != entry {
			return
		}
		g.logger.Info("confirmation_timeout", logging.F("id", id), logging.F("tool", confirmation.ToolName))
		g.finishLocked(id, current, false)
	})
	g.pending[id] = entry
	g.mu.Unlock()

	g.logger.Debug("confirmation_pending",
		logging.F("id", confirmation.ID),
		logging.F("tool", confirmation.ToolName),
		logging.F("category", string(confirmation.Category)),
	)
	return entry.ch
}

// Await is Request plus waiting, honoring ctx cancellation. Cancellation
// resolves the entry as rejected.
func (g *Gate) Await(ctx context.Context, confirmation *types.Confirmation, timeout time.Duration) bool {
	ch := g.Request(confirmation, timeout)
	select {
	case approved := <-ch:
		return approved
	case <-ctx.Done():
		g.Resolve(confirmation.ID, false)
		return false
	}
}

// Resolve delivers a decision for the given id. It reports whether the
// id was still pending; "not found" is expected after a timeout and must
// be treated as a no-op by callers.
func (g *Gate) Resolve(id string, approved bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.pending[id]
	if !ok {
		return false
	}
	g.finishLocked(id, entry, approved)
	return true
}

// RejectAll resolves every pending confirmation as rejected. Used when a
// stream is aborted or superseded.
func (g *Gate) RejectAll() {
	g.resolveAll(false)
}

// ApproveAll resolves every pending confirmation as approved.
func (g *Gate) ApproveAll() {
	g.resolveAll(true)
}

func (g *Gate) resolveAll(approved bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, entry := range g.pending {
		g.finishLocked(id, entry, approved)
	}
}

// SetAutoApprove pre-approves an entire tool category for the rest of
// the session. Enabling a category also approves its pending entries.
func (g *Gate) SetAutoApprove(category types.ToolCategory, enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.autoApprove[category] = enabled
	if !enabled {
		return
	}
	for id, entry := range g.pending {
		if entry.confirmation.Category == category {
			g.finishLocked(id, entry, true)
		}
	}
}

func (g *Gate) AutoApproved(category types.ToolCategory) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.autoApprove[category]
}

// Reset rejects all pending entries and clears the auto-approve flags.
// Called when the session or the active comparison run changes.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, entry := range g.pending {
		g.finishLocked(id, entry, false)
	}
	g.autoApprove = make(map[types.ToolCategory]bool)
}

// Pending returns the currently unresolved confirmations, oldest first.
func (g *Gate) Pending() []*types.Confirmation {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*types.Confirmation, 0, len(g.pending))
	for _, entry := range g.pending {
		clone := *entry.confirmation
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (g *Gate) finishLocked(id string, entry *pending, approved bool) {
	delete(g.pending, id)
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.ch <- approved
}
