package agent

import (
	"fmt"
	"sort"

	"promptsmith/pkg/core/llm"
)

// Config mirrors the model catalog file: one globally active provider plus a
// catalog of selectable models, each pinned to a provider.
type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Models         map[string]ModelConfig `yaml:"models"`
}

type ModelConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"` // upstream model identifier
	Description string `yaml:"description"`
	Default     bool   `yaml:"default"`
}

// ModelInfo is the catalog entry shape exposed over the config API.
type ModelInfo struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

type Manager struct {
	config    Config
	providers map[string]llm.Provider
}

func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"openai":    &llm.OpenAIProvider{},
			"gemini":    &llm.GeminiProvider{},
			"deepseek":  &llm.DeepSeekProvider{},
			"qwen":      &llm.QwenProvider{},
			"anthropic": &llm.AnthropicProvider{},
		},
	}
}

// GetProviderByName retrieves a provider instance by its specific name (e.g. "deepseek", "gemini")
func (m *Manager) GetProviderByName(name string) llm.Provider {
	if p, ok := m.providers[name]; ok {
		return p
	}
	fmt.Printf("[WARNING] Provider '%s' not registered\n", name)
	return nil
}

// Resolve maps a catalog model ID to its provider plus the per-call options
// that select the upstream model. An empty or unknown ID falls back to the
// catalog default, then to the globally active provider with its defaults.
func (m *Manager) Resolve(modelID string) (llm.Provider, map[string]interface{}, error) {
	requested := modelID != ""
	if !requested {
		modelID = m.defaultModelID()
	}

	if mc, ok := m.config.Models[modelID]; ok {
		p := m.GetProviderByName(mc.Provider)
		if p == nil {
			return nil, nil, fmt.Errorf("model %s references unknown provider %s", modelID, mc.Provider)
		}
		opts := map[string]interface{}{}
		if mc.Model != "" {
			opts["model"] = mc.Model
		}
		return p, opts, nil
	}
	if requested {
		return nil, nil, fmt.Errorf("unknown model: %s", modelID)
	}
	if len(m.config.Models) == 0 {
		return nil, nil, fmt.Errorf("model catalog is empty")
	}

	// catalog has models but none marked default and none on the active
	// provider; fall back to the active provider with its own defaults
	p := m.GetProviderByName(m.config.ActiveProvider)
	if p == nil {
		return nil, nil, fmt.Errorf("active provider %s not registered", m.config.ActiveProvider)
	}
	return p, map[string]interface{}{}, nil
}

func (m *Manager) defaultModelID() string {
	for id, mc := range m.config.Models {
		if mc.Default {
			return id
		}
	}
	// deterministic fallback: first model of the active provider
	ids := make([]string, 0, len(m.config.Models))
	for id := range m.config.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if m.config.Models[id].Provider == m.config.ActiveProvider {
			return id
		}
	}
	return ""
}

// ListModels returns the catalog sorted by ID for the config endpoint.
func (m *Manager) ListModels() []ModelInfo {
	out := make([]ModelInfo, 0, len(m.config.Models))
	for id, mc := range m.config.Models {
		out = append(out, ModelInfo{
			ID:          id,
			Provider:    mc.Provider,
			Description: mc.Description,
			Default:     mc.Default,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	fmt.Printf("Global provider set to: %s\n", newProvider)
	return nil
}

func (m *Manager) GetActiveProvider() string {
	return m.config.ActiveProvider
}
