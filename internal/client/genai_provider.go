package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"codebase-consultant/internal/llm"
	"codebase-consultant/internal/types"

	"google.golang.org/genai"
)

// GenAIProvider implements llm.Client on the native Gemini API. The SDK binds
// one credential per client, so rotation keeps a small cache of clients keyed
// by API key.
type GenAIProvider struct {
	model   string
	timeout time.Duration
	sem     chan struct{}

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewGenAIProvider creates a provider for the given model.
// maxConcurrency bounds in-flight requests; 0 means unlimited.
func NewGenAIProvider(model string, timeout time.Duration, maxConcurrency int) *GenAIProvider {
	var sem chan struct{}
	if maxConcurrency > 0 {
		sem = make(chan struct{}, maxConcurrency)
	}

	return &GenAIProvider{
		model:   model,
		timeout: timeout,
		sem:     sem,
		clients: make(map[string]*genai.Client),
	}
}

// Name returns the backend and model name
func (p *GenAIProvider) Name() string {
	return "genai-" + p.model
}

func (p *GenAIProvider) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	p.clients[apiKey] = c
	return c, nil
}

// Complete sends one generate-content request using the given credential.
func (p *GenAIProvider) Complete(ctx context.Context, inst llm.Instruction, apiKey string) (string, error) {
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

	client, err := p.clientFor(ctx, apiKey)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	if inst.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: inst.System}},
		}
	}
	contents := []*genai.Content{genai.NewContentFromText(inst.User, genai.RoleUser)}

	result, err := client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", wrapGenAIError(err)
	}
	if result == nil || result.Text() == "" {
		return "", types.ErrNoContent
	}
	return result.Text(), nil
}

// wrapGenAIError surfaces the HTTP status and message the API reported.
func wrapGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &types.TransportError{Status: apiErr.Code, Detail: apiErr.Message, Err: err}
	}
	return fmt.Errorf("genai request: %w", err)
}
