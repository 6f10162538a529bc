package client

import (
	"fmt"

	"codebase-consultant/internal/config"
	"codebase-consultant/internal/llm"
)

// NewProvider creates the provider client selected by configuration.
// IMPORTANT: The returned client is safe for concurrent use from multiple
// goroutines. Credentials travel per call, so one instance serves the whole
// key pool.
func NewProvider(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Backend {
	case config.BackendOpenAI:
		return NewOpenAIProvider(cfg.LLM.Model, cfg.LLM.Endpoint, cfg.LLM.Timeout, cfg.LLM.MaxConcurrent), nil
	case config.BackendGenAI:
		return NewGenAIProvider(cfg.LLM.Model, cfg.LLM.Timeout, cfg.LLM.MaxConcurrent), nil
	case config.BackendLangChain:
		return NewLangChainProvider(cfg.LLM.Model, cfg.LLM.Endpoint, cfg.LLM.Timeout, cfg.LLM.MaxConcurrent), nil
	default:
		return nil, fmt.Errorf("unknown llm backend: %q", cfg.LLM.Backend)
	}
}
