package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"overseer/internal/config"
	"overseer/internal/gate"
	"overseer/internal/logging"
	"overseer/internal/providers"
	"overseer/internal/session"
	"overseer/internal/types"
)

// fakeProvider blocks until released (or the context dies), emitting
// scripted events on demand.
type fakeProvider struct {
	mu        sync.Mutex
	sink      providers.EventSink
	release   chan struct{}
	responses []types.Message
	err       error
	started   chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		release: make(chan struct{}),
		started: make(chan struct{}, 8),
	}
}

func (p *fakeProvider) ID() string { return "fake" }

func (p *fakeProvider) Stream(ctx context.Context, sink providers.EventSink, messages []types.Message, opts providers.StreamOptions) ([]types.Message, error) {
	p.mu.Lock()
	p.sink = sink
	p.mu.Unlock()
	p.started <- struct{}{}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.release:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.responses, p.err
}

func (p *fakeProvider) emit(event types.StreamEvent) {
	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()
	sink.Emit(event)
}

type fakeResolver struct{ provider providers.Provider }

func (r *fakeResolver) Resolve(string) (providers.Provider, error) { return r.provider, nil }

func newTestSupervisor(t *testing.T, provider providers.Provider) (*Supervisor, *session.Store) {
	t.Helper()
	registry := providers.NewRegistry(map[string]config.ProviderConfig{
		"anthropic": {DefaultModel: "sonnet"},
	})
	sess := session.New(nil, nil, logging.Nop())
	g := gate.New(logging.Nop())
	return NewSupervisor(sess, registry, &fakeResolver{provider: provider}, g, t.TempDir(), logging.Nop()), sess
}

func waitStarted(t *testing.T, p *fakeProvider) {
	t.Helper()
	select {
	case <-p.started:
	case <-time.After(time.Second):
		t.Fatal("provider never started")
	}
}

func drainUntilEnd(t *testing.T, ch <-chan types.StreamEvent) []types.StreamEvent {
	t.Helper()
	var out []types.StreamEvent
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-ch:
			out = append(out, event)
			if event.Type == types.EventTypeEnd {
				return out
			}
		case <-deadline:
			t.Fatalf("no terminal event, got %d events", len(out))
		}
	}
}

func TestCompletedStreamCommitsHistory(t *testing.T) {
	provider := newFakeProvider()
	provider.responses = []types.Message{types.AssistantMessage("done")}
	s, sess := newTestSupervisor(t, provider)

	ch, cancel := s.Subscribe(false)
	defer cancel()
	// Nothing active yet: the subscriber gets an immediate terminal marker.
	first := <-ch
	require.Equal(t, types.EventTypeEnd, first.Type)

	reqID, err := s.Submit(ChatRequest{Prompt: "add a button", ProviderID: "anthropic"})
	require.NoError(t, err)
	require.NotEmpty(t, reqID)
	waitStarted(t, provider)
	require.True(t, s.Active())

	provider.emit(types.StreamEvent{Type: types.EventTypeDelta, Delta: "do"})
	close(provider.release)

	events := drainUntilEnd(t, ch)
	require.Equal(t, types.EventTypeDelta, events[0].Type)
	require.Equal(t, reqID, events[0].RequestID)

	require.Eventually(t, func() bool { return !s.Active() }, time.Second, 5*time.Millisecond)
	history := sess.History()
	require.Len(t, history, 2)
	require.Equal(t, types.RoleUser, history[0].Role)
	require.Equal(t, types.RoleAssistant, history[1].Role)
}

func TestNewRequestSupersedesAndDropsLateEvents(t *testing.T) {
	first := newFakeProvider()
	s, _ := newTestSupervisor(t, first)

	_, err := s.Submit(ChatRequest{Prompt: "first", ProviderID: "anthropic"})
	require.NoError(t, err)
	waitStarted(t, first)
	s.mu.Lock()
	firstSink := &flightSink{supervisor: s, flight: s.active}
	s.mu.Unlock()

	ch, cancel := s.Subscribe(false)
	defer cancel()

	secondID, err := s.Submit(ChatRequest{Prompt: "second", ProviderID: "anthropic"})
	require.NoError(t, err)
	waitStarted(t, first)

	// Late event from the superseded flight must not be delivered.
	firstSink.Emit(types.StreamEvent{Type: types.EventTypeDelta, Delta: "stale"})
	first.emit(types.StreamEvent{Type: types.EventTypeDelta, Delta: "fresh"})
	close(first.release)

	events := drainUntilEnd(t, ch)
	for _, event := range events {
		require.NotEqual(t, "stale", event.Delta)
		if event.RequestID != "" {
			require.Equal(t, secondID, event.RequestID)
		}
	}
}

func TestAbortedStreamSkipsCommit(t *testing.T) {
	provider := newFakeProvider()
	s, sess := newTestSupervisor(t, provider)

	ch, cancel := s.Subscribe(false)
	defer cancel()
	<-ch // initial terminal marker

	_, err := s.Submit(ChatRequest{Prompt: "never lands", ProviderID: "anthropic"})
	require.NoError(t, err)
	waitStarted(t, provider)

	s.Abort()
	drainUntilEnd(t, ch)

	require.Empty(t, sess.History())
	require.False(t, s.Active())
	// Idempotent.
	s.Abort()
}

func TestProviderErrorSurfacedAsTerminalErrorEvent(t *testing.T) {
	provider := newFakeProvider()
	provider.err = errors.New("rate limited")
	s, sess := newTestSupervisor(t, provider)

	ch, cancel := s.Subscribe(false)
	defer cancel()
	<-ch

	_, err := s.Submit(ChatRequest{Prompt: "boom", ProviderID: "anthropic"})
	require.NoError(t, err)
	waitStarted(t, provider)
	close(provider.release)

	events := drainUntilEnd(t, ch)
	require.GreaterOrEqual(t, len(events), 2)
	require.Equal(t, types.EventTypeError, events[len(events)-2].Type)
	require.Contains(t, events[len(events)-2].Error, "rate limited")
	require.Empty(t, sess.History())
}

func TestReconnectReplaysCurrentStream(t *testing.T) {
	provider := newFakeProvider()
	provider.responses = []types.Message{types.AssistantMessage("ok")}
	s, _ := newTestSupervisor(t, provider)

	_, err := s.Submit(ChatRequest{Prompt: "replay me", ProviderID: "anthropic"})
	require.NoError(t, err)
	waitStarted(t, provider)
	provider.emit(types.StreamEvent{Type: types.EventTypeDelta, Delta: "early"})

	// Give the broadcast a moment to land in the replay buffer.
	require.Eventually(t, func() bool {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		return len(s.hub.replay) == 1
	}, time.Second, 5*time.Millisecond)

	ch, cancel := s.Subscribe(true)
	defer cancel()
	close(provider.release)

	events := drainUntilEnd(t, ch)
	require.Equal(t, "early", events[0].Delta)
}

func TestContextBlocksArePrepended(t *testing.T) {
	provider := newFakeProvider()
	provider.responses = []types.Message{types.AssistantMessage("ok")}
	s, sess := newTestSupervisor(t, provider)

	_, err := s.Submit(ChatRequest{Prompt: "fix it", Context: "<selected>App.tsx</selected>", ProviderID: "anthropic"})
	require.NoError(t, err)
	waitStarted(t, provider)
	close(provider.release)

	require.Eventually(t, func() bool { return len(sess.History()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "<selected>App.tsx</selected>\n\nfix it", sess.History()[0].Content)
}
