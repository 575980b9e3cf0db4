package repositories

import "context"

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// Generate takes a system instruction and a prompt and returns the model's reply
	Generate(ctx context.Context, request GenerateRequest) (string, error)
}

// GenerateRequest is a single-shot generation request
type GenerateRequest struct {
	SystemInstruction string `json:"system_instruction"`
	Prompt            string `json:"prompt"`
}
