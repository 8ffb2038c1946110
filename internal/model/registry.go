package model

import (
	"sort"
	"strings"
	"sync"

	"github.com/flynn-ai/unichat/internal/config"
	"github.com/flynn-ai/unichat/internal/errors"
)

// Registry maps model names to their provider and per-model policy.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Spec)}
}

// DefaultRegistry returns a registry seeded with the built-in model table.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range defaultModels() {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a model.
func (r *Registry) Register(s Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[s.Name] = s
}

// Lookup resolves a model name. Unknown names fail fast so no request is
// ever built for a model nothing can serve.
func (r *Registry) Lookup(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.models[name]
	if !ok {
		return Spec{}, errors.NewBuilder(errors.KindUnsupported, "model not supported: "+name).
			WithSuggestion("Add it under [[models]] in the config file").
			WithContext("model", name).
			Build()
	}
	return s, nil
}

// Names returns all registered model names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByKind returns the sorted model names served by one provider.
func (r *Registry) ByKind(k Kind) []string {
	var names []string
	for _, name := range r.Names() {
		if s, _ := r.Lookup(name); s.Kind == k {
			names = append(names, name)
		}
	}
	return names
}

// Apply registers configured models on top of the current table. An entry
// naming an existing model without a provider inherits that model's kind.
func (r *Registry) Apply(entries []config.ModelEntry) error {
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return errors.New(errors.KindUnsupported, "model entry without a name")
		}

		spec, err := r.Lookup(name)
		if err != nil {
			spec = Spec{Name: name}
		}
		if e.Provider != "" {
			kind, err := ParseKind(e.Provider)
			if err != nil {
				return err
			}
			spec.Kind = kind
		}
		if spec.Kind == "" {
			return errors.Unsupported("model %q has no provider", name)
		}
		if e.MaxTokens > 0 {
			spec.MaxTokens = e.MaxTokens
		}
		if e.SystemMode != "" {
			mode, err := ParseSystemMode(e.SystemMode)
			if err != nil {
				return err
			}
			spec.SystemMode = mode
		}
		if e.NoTools {
			spec.NoTools = true
		}
		if e.Temperature != nil {
			t := *e.Temperature
			spec.FixedTemperature = &t
		}
		if e.Reasoning {
			spec.Reasoning = true
		}
		r.Register(spec)
	}
	return nil
}

// ============================================================
// Built-in model table
// ============================================================

func defaultModels() []Spec {
	var specs []Spec
	add := func(kind Kind, maxTokens int, names ...string) {
		for _, n := range names {
			specs = append(specs, Spec{Name: n, Kind: kind, MaxTokens: maxTokens})
		}
	}

	add(KindAnthropic, 8192,
		"claude-3-5-sonnet-20241022", "claude-3-5-sonnet-latest",
		"claude-3-5-haiku-20241022", "claude-3-5-haiku-latest")
	add(KindAnthropic, 64000,
		"claude-3-7-sonnet-20250219", "claude-3-7-sonnet-latest",
		"claude-sonnet-4-20250514", "claude-sonnet-4-5")
	add(KindAnthropic, 32000, "claude-opus-4-20250514", "claude-opus-4-1")
	add(KindAnthropic, 4096, "claude-3-opus-20240229", "claude-3-haiku-20240307")

	add(KindOpenAI, 0, "gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini", "gpt-4.1-nano", "gpt-4-turbo")
	add(KindMistral, 0, "mistral-large-latest", "mistral-small-latest", "codestral-latest", "pixtral-large-latest")
	add(KindGrok, 0, "grok-2-latest", "grok-3", "grok-3-mini", "grok-4")
	add(KindGemini, 0, "gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.5-pro", "gemini-1.5-pro")
	add(KindDeepSeek, 0, "deepseek-chat", "deepseek-reasoner")
	add(KindAlibaba, 0, "qwen-max", "qwen-plus", "qwen-turbo")

	one := 1.0
	reasoning := func(name string, mode SystemMode, noTools bool) Spec {
		return Spec{
			Name:             name,
			Kind:             KindOpenAI,
			SystemMode:       mode,
			NoTools:          noTools,
			FixedTemperature: &one,
			Reasoning:        true,
		}
	}
	specs = append(specs,
		reasoning("o1-mini", SystemMerge, true),
		reasoning("o1-preview", SystemMerge, true),
		reasoning("o1", SystemRelabel, false),
		reasoning("o3-mini", SystemRelabel, false),
		reasoning("o3", SystemRelabel, false),
	)

	return specs
}
