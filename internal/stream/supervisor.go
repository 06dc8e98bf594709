// Package stream runs at most one agent invocation at a time. A new
// chat request always cancels the previous one; events from a superseded
// stream are detected and dropped, never delivered.
package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"overseer/internal/gate"
	"overseer/internal/logging"
	"overseer/internal/providers"
	"overseer/internal/session"
	"overseer/internal/types"
)

type ChatRequest struct {
	Prompt     string
	Context    string // pre-formatted context blocks, prepended verbatim
	ModelID    string
	ProviderID string
}

type Supervisor struct {
	mu         sync.Mutex
	session    *session.Store
	registry   *providers.Registry
	resolver   providers.Resolver
	gate       *gate.Gate
	hub        *Hub
	workingDir string
	active     *flight
	logger     logging.Logger
}

type flight struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSupervisor(sess *session.Store, registry *providers.Registry, resolver providers.Resolver, g *gate.Gate, workingDir string, logger logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Supervisor{
		session:    sess,
		registry:   registry,
		resolver:   resolver,
		gate:       g,
		hub:        NewHub(),
		workingDir: workingDir,
		logger:     logger,
	}
}

// Submit starts a new stream, cancelling any in-flight one first. It
// returns the request id once the stream is launched; emission and
// completion happen asynchronously.
func (s *Supervisor) Submit(req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("prompt is required")
	}

	provider, err := s.resolver.Resolve(req.ProviderID)
	if err != nil {
		return "", err
	}
	modelID, err := s.registry.ResolveModel(req.ProviderID, req.ModelID)
	if err != nil {
		return "", err
	}

	prompt := req.Prompt
	if req.Context != "" {
		prompt = req.Context + "\n\n" + req.Prompt
	}

	requestID := logging.NewRequestID()
	ctx, cancel := context.WithCancel(context.Background())
	next := &flight{id: requestID, ctx: ctx, cancel: cancel}

	s.mu.Lock()
	prev := s.active
	s.active = next
	s.mu.Unlock()

	if prev != nil {
		s.logger.Info("stream_superseded", logging.F("req_id", prev.id), logging.F("by", requestID))
		prev.cancel()
		s.gate.RejectAll()
	}

	s.session.Bind(modelID, req.ProviderID)
	messages := s.session.MessagesFor(prompt)
	s.hub.BeginStream(requestID)

	opts := providers.StreamOptions{
		ModelID:    modelID,
		WorkingDir: s.workingDir,
		Confirm: func(ctx context.Context, confirmation *types.Confirmation) bool {
			return s.gate.Await(ctx, confirmation, gate.DefaultTimeout)
		},
	}

	s.logger.Info("stream_start",
		logging.F("req_id", requestID),
		logging.F("provider", req.ProviderID),
		logging.F("model", modelID),
		logging.F("messages", len(messages)),
	)
	go s.run(next, provider, prompt, messages, opts)
	return requestID, nil
}

func (s *Supervisor) run(f *flight, provider providers.Provider, prompt string, messages []types.Message, opts providers.StreamOptions) {
	responses, err := provider.Stream(f.ctx, &flightSink{supervisor: s, flight: f}, messages, opts)
	canceled := f.ctx.Err() != nil || errors.Is(err, context.Canceled)

	s.mu.Lock()
	current := s.active == f
	if current {
		s.active = nil
	}
	s.mu.Unlock()
	if !current {
		// Superseded mid-flight: a newer stream owns the hub now.
		f.cancel()
		return
	}

	// Commit only turns that produced assistant output, so an aborted or
	// failed stream never leaves an orphan user message behind.
	if len(responses) > 0 {
		s.session.AppendUser(prompt)
		s.session.AppendResponses(responses)
	}

	if err != nil && !canceled {
		// Surfaced to subscribers as a terminal error event and otherwise
		// swallowed; the daemon keeps running.
		s.logger.Warn("stream_error", logging.F("req_id", f.id), logging.F("error", err))
		s.hub.Broadcast(types.ErrorEvent(f.id, err.Error()))
	}
	s.hub.Broadcast(types.EndEvent(f.id))
	s.hub.EndStream(f.id)
	f.cancel()
	s.logger.Info("stream_end",
		logging.F("req_id", f.id),
		logging.F("responses", len(responses)),
		logging.F("canceled", canceled),
	)
}

// Abort cancels the active stream, if any, and rejects every pending
// tool confirmation. Idempotent.
func (s *Supervisor) Abort() {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active != nil {
		active.cancel()
	}
	s.gate.RejectAll()
}

// Active reports whether a stream is in flight and not yet cancelled.
func (s *Supervisor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.ctx.Err() == nil
}

// Subscribe attaches a passive listener to the event bus.
func (s *Supervisor) Subscribe(replay bool) (<-chan types.StreamEvent, func()) {
	return s.hub.Subscribe(replay)
}

type flightSink struct {
	supervisor *Supervisor
	flight     *flight
}

// Emit forwards an event to subscribers unless the flight has been
// superseded or cancelled; stale events are dropped here.
func (k *flightSink) Emit(event types.StreamEvent) {
	k.supervisor.mu.Lock()
	current := k.supervisor.active == k.flight && k.flight.ctx.Err() == nil
	k.supervisor.mu.Unlock()
	if !current {
		return
	}
	event.RequestID = k.flight.id
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	k.supervisor.hub.Broadcast(event)
}
