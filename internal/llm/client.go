package llm

import "context"

// Instruction is one prompt for the model: a system message describing the
// task and a user message carrying the actual content.
type Instruction struct {
	System string
	User   string
}

// Client defines the outbound boundary to one model provider. The API key is
// supplied per call so credential rotation stays outside the provider.
type Client interface {
	// Complete sends one instruction and returns the completion text.
	Complete(ctx context.Context, inst Instruction, apiKey string) (string, error)
	// Name returns the provider backend name for logging.
	Name() string
}
