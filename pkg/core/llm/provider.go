// Package llm wraps the supported language-model backends behind one Provider
// interface and layers the timeout/retry/structured-output discipline that
// every orchestration call goes through on top of it.
package llm

import (
	"context"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}
