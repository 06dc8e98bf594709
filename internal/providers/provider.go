package providers

import (
	"context"
	"fmt"

	"overseer/internal/types"
)

// EventSink receives events as a provider emits them. Implementations
// must be safe to call from the provider's goroutine and must tolerate
// calls after the stream has been superseded (such calls are dropped).
type EventSink interface {
	Emit(event types.StreamEvent)
}

// ConfirmFunc asks the user to approve a risky tool call. It blocks
// until a decision exists; timeout and cancellation both read as denial.
type ConfirmFunc func(ctx context.Context, confirmation *types.Confirmation) bool

// StreamOptions carries per-request settings into an adapter. The
// context passed to Stream carries cancellation; the adapter must stop
// emitting and return promptly once it is done.
type StreamOptions struct {
	ModelID    string
	WorkingDir string
	Confirm    ConfirmFunc
}

// Provider adapts one LLM backend. Stream sends the message history,
// pushes emitted events into sink, and returns the response messages of
// the completed turn. An aborted turn returns ctx.Err().
type Provider interface {
	ID() string
	Stream(ctx context.Context, sink EventSink, messages []types.Message, opts StreamOptions) ([]types.Message, error)
}

// Resolver maps a provider id to a usable adapter.
type Resolver interface {
	Resolve(providerID string) (Provider, error)
}

// RegistryResolver resolves command-backed adapters from registry
// descriptors.
type RegistryResolver struct {
	registry *Registry
}

func NewRegistryResolver(registry *Registry) *RegistryResolver {
	return &RegistryResolver{registry: registry}
}

func (r *RegistryResolver) Resolve(providerID string) (Provider, error) {
	d, ok := r.registry.Get(providerID)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerID)
	}
	if d.Command == "" {
		return nil, fmt.Errorf("provider %q has no command configured", d.ID)
	}
	return newCommandProvider(d), nil
}
