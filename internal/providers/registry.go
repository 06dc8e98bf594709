package providers

import (
	"fmt"
	"sort"
	"strings"

	"overseer/internal/config"
)

// Descriptor is the daemon's view of one LLM provider backend. The
// StatefulExternal flag marks backends that keep their own conversation
// state outside the caller's transcript (see the session reset policy).
type Descriptor struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	Command          string   `json:"command,omitempty"`
	DefaultModel     string   `json:"default_model,omitempty"`
	Models           []string `json:"models,omitempty"`
	StatefulExternal bool     `json:"stateful_external"`
}

type Registry struct {
	descriptors map[string]Descriptor
}

func NewRegistry(cfg map[string]config.ProviderConfig) *Registry {
	descriptors := make(map[string]Descriptor, len(cfg))
	for id, pc := range cfg {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		label := strings.TrimSpace(pc.Label)
		if label == "" {
			label = id
		}
		descriptors[id] = Descriptor{
			ID:               id,
			Label:            label,
			Command:          strings.TrimSpace(pc.Command),
			DefaultModel:     strings.TrimSpace(pc.DefaultModel),
			Models:           append([]string{}, pc.Models...),
			StatefulExternal: pc.StatefulExternal,
		}
	}
	return &Registry{descriptors: descriptors}
}

func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.descriptors[strings.ToLower(strings.TrimSpace(id))]
	return d, ok
}

func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StatefulExternal reports the reset policy flag for a provider id.
// Unknown ids are treated as ordinary providers.
func (r *Registry) StatefulExternal(id string) bool {
	d, ok := r.Get(id)
	return ok && d.StatefulExternal
}

// ResolveModel picks the model to use for a request: the explicit model
// if given, otherwise the provider's configured default.
func (r *Registry) ResolveModel(providerID, modelID string) (string, error) {
	d, ok := r.Get(providerID)
	if !ok {
		return "", fmt.Errorf("unknown provider %q", providerID)
	}
	modelID = strings.TrimSpace(modelID)
	if modelID != "" {
		return modelID, nil
	}
	if d.DefaultModel != "" {
		return d.DefaultModel, nil
	}
	return "", nil
}
