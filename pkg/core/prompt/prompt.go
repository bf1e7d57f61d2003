// Package prompt provides a centralized prompt library for LLM interactions.
// Stage instructions ship with built-in defaults; JSON files loaded at runtime
// can override any of them without code changes.
package prompt

// PromptTemplate represents a reusable prompt with metadata
type PromptTemplate struct {
	ID           string `json:"id"`            // Unique identifier (e.g., "interview.system")
	Name         string `json:"name"`          // Human-readable name
	Category     string `json:"category"`      // Category (interview, variant, critique, ...)
	Description  string `json:"description"`   // Description of prompt purpose
	SystemPrompt string `json:"system_prompt"` // The system prompt content
	Version      string `json:"version"`       // Version for tracking changes
}
