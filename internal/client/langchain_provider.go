package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codebase-consultant/internal/llm"
	"codebase-consultant/internal/types"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// LangChainProvider implements llm.Client through LangChainGo's OpenAI
// binding. The binding fixes the token at construction, so one LLM instance
// is kept per credential.
type LangChainProvider struct {
	model    string
	endpoint string
	timeout  time.Duration
	sem      chan struct{}

	mu      sync.Mutex
	clients map[string]*lcopenai.LLM
}

// NewLangChainProvider creates a provider for the given model and endpoint.
// maxConcurrency bounds in-flight requests; 0 means unlimited.
func NewLangChainProvider(model, endpoint string, timeout time.Duration, maxConcurrency int) *LangChainProvider {
	var sem chan struct{}
	if maxConcurrency > 0 {
		sem = make(chan struct{}, maxConcurrency)
	}

	return &LangChainProvider{
		model:    model,
		endpoint: endpoint,
		timeout:  timeout,
		sem:      sem,
		clients:  make(map[string]*lcopenai.LLM),
	}
}

// Name returns the backend and model name
func (p *LangChainProvider) Name() string {
	return "langchain-" + p.model
}

func (p *LangChainProvider) clientFor(apiKey string) (*lcopenai.LLM, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[apiKey]; ok {
		return c, nil
	}
	c, err := lcopenai.New(
		lcopenai.WithModel(p.model),
		lcopenai.WithBaseURL(p.endpoint),
		lcopenai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("create langchain llm: %w", err)
	}
	p.clients[apiKey] = c
	return c, nil
}

// Complete sends one chat request using the given credential.
func (p *LangChainProvider) Complete(ctx context.Context, inst llm.Instruction, apiKey string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if p.sem != nil {
		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	cl, err := p.clientFor(apiKey)
	if err != nil {
		return "", err
	}

	var messages []llms.MessageContent
	if inst.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, inst.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, inst.User))

	resp, err := cl.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("langchain request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", types.ErrNoContent
	}
	return resp.Choices[0].Content, nil
}
