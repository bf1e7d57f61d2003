package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"promptsmith/pkg/core/agent"
	"promptsmith/pkg/core/prompt"
)

func newTestHandler() *Handler {
	return NewHandler(agent.NewManager(agent.Config{
		ActiveProvider: "deepseek",
		Models: map[string]agent.ModelConfig{
			"deepseek-chat": {Provider: "deepseek", Model: "deepseek-chat", Default: true},
		},
	}))
}

func TestHandleGetReturnsCatalog(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()

	h.HandleGet(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		ActiveProvider string            `json:"active_provider"`
		Models         []agent.ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.ActiveProvider != "deepseek" || len(body.Models) != 1 {
		t.Errorf("unexpected catalog: %+v", body)
	}
}

func TestHandlePromptsListsOverrides(t *testing.T) {
	reg := prompt.Get()
	reg.Clear()
	defer reg.Clear()
	if err := reg.Register(&prompt.PromptTemplate{ID: "interview.system", Category: "interview", SystemPrompt: "访谈指令"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := newTestHandler()
	rec := httptest.NewRecorder()
	h.HandlePrompts(rec, httptest.NewRequest(http.MethodGet, "/api/config/prompts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Count   int      `json:"count"`
		Prompts []string `json:"prompts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Count != 1 || len(body.Prompts) != 1 || body.Prompts[0] != "interview.system" {
		t.Errorf("unexpected listing: %+v", body)
	}

	rec = httptest.NewRecorder()
	h.HandlePrompts(rec, httptest.NewRequest(http.MethodGet, "/api/config/prompts?category=interview", nil))
	var byCategory struct {
		Category string                  `json:"category"`
		Prompts  []prompt.PromptTemplate `json:"prompts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&byCategory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byCategory.Prompts) != 1 || byCategory.Prompts[0].SystemPrompt != "访谈指令" {
		t.Errorf("unexpected category listing: %+v", byCategory)
	}

	rec = httptest.NewRecorder()
	h.HandlePrompts(rec, httptest.NewRequest(http.MethodPost, "/api/config/prompts", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
