package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codebase-consultant/internal/llm"
	"codebase-consultant/internal/types"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

// OpenAIProvider implements llm.Client against any OpenAI-compatible endpoint.
// The shared client carries the base URL; the credential travels with each
// request, so key rotation never rebuilds clients.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	sem     chan struct{}
}

// NewOpenAIProvider creates a provider for the given model and endpoint.
// maxConcurrency bounds in-flight requests; 0 means unlimited.
func NewOpenAIProvider(model, endpoint string, timeout time.Duration, maxConcurrency int) *OpenAIProvider {
	client := openai.NewClient(
		option.WithBaseURL(endpoint),
	)

	var sem chan struct{}
	if maxConcurrency > 0 {
		sem = make(chan struct{}, maxConcurrency)
	}

	return &OpenAIProvider{
		client:  &client,
		model:   model,
		timeout: timeout,
		sem:     sem,
	}
}

// Name returns the backend and model name
func (p *OpenAIProvider) Name() string {
	return "openai-" + p.model
}

// Complete sends one chat completion request using the given credential.
func (p *OpenAIProvider) Complete(ctx context.Context, inst llm.Instruction, apiKey string) (string, error) {
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

	var messages []openai.ChatCompletionMessageParamUnion
	if inst.System != "" {
		messages = append(messages, openai.SystemMessage(inst.System))
	}
	messages = append(messages, openai.UserMessage(inst.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	}

	resp, err := p.client.Chat.Completions.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		return "", wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", types.ErrNoContent
	}
	return resp.Choices[0].Message.Content, nil
}

// wrapOpenAIError surfaces the HTTP status and the endpoint's own message.
func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		detail := gjson.Get(apiErr.RawJSON(), "error.message").String()
		return &types.TransportError{Status: apiErr.StatusCode, Detail: detail, Err: err}
	}
	return fmt.Errorf("openai request: %w", err)
}
