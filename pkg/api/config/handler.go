// Package config exposes the model catalog and the provider switch.
package config

import (
	"encoding/json"
	"net/http"

	"promptsmith/pkg/core/agent"
	"promptsmith/pkg/core/prompt"
)

// Handler serves the configuration endpoints.
type Handler struct {
	manager *agent.Manager
}

// NewHandler creates a new config handler.
func NewHandler(mgr *agent.Manager) *Handler {
	return &Handler{manager: mgr}
}

// HandleGet serves GET /api/config: the active provider plus the catalog.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"active_provider": h.manager.GetActiveProvider(),
		"models":          h.manager.ListModels(),
	})
}

// HandlePrompts serves GET /api/config/prompts: the loaded stage instruction
// overrides. Without a category it lists the registered IDs; with ?category=
// it returns the full templates of that category.
func (h *Handler) HandlePrompts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reg := prompt.Get()
	w.Header().Set("Content-Type", "application/json")
	if category := r.URL.Query().Get("category"); category != "" {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"category": category,
			"prompts":  reg.ListByCategory(category),
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":   reg.Count(),
		"prompts": reg.ListPrompts(),
	})
}

// HandleSwitch serves POST /api/config/switch: change the global provider.
func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Provider == "" {
		http.Error(w, "provider is required", http.StatusBadRequest)
		return
	}

	if err := h.manager.SetGlobalProvider(req.Provider); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"active_provider": h.manager.GetActiveProvider(),
	})
}
