package llm

import (
	"context"
	"fmt"
	"os"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	Model string
}

func (p *AnthropicProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		apiKey = val
	}
	if apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY_MISSING: Please set ANTHROPIC_API_KEY env var")
	}

	model := p.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	client := anthropic.NewClient(apiKey)
	resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		System:    systemPrompt,
		MaxTokens: 8192,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("ANTHROPIC_API_ERROR: %w", err)
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return "", fmt.Errorf("ANTHROPIC_EMPTY_RESPONSE: no text content returned")
	}

	return text, nil
}

func (p *AnthropicProvider) AdaptInstructions(raw string) string {
	// Claude follows XML-tagged instructions closely; no rewrite needed.
	return raw
}
