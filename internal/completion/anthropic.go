package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/resilience"
	"github.com/crosslogic/fieldmap-cli/pkg/anthropic"
)

// ProviderClaude names the anthropic-backed adapter in config, usage
// accounting, and cost rates.
const ProviderClaude = "claude"

type anthropicInvoker struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic adapts the anthropic tool-use client to the port's Invoker
// contract. Compose with NewPort for rate limiting and usage accounting.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64) Invoker {
	return &anthropicInvoker{client: client, model: model, maxTokens: maxTokens}
}

func (a *anthropicInvoker) Provider() string { return ProviderClaude }

func (a *anthropicInvoker) Complete(ctx context.Context, task Task) (json.RawMessage, model.TokenUsage, error) {
	resp, err := a.client.ToolCall(ctx, anthropic.ToolRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    task.System,
		Prompt:    task.Prompt,
		Tool: anthropic.ToolSpec{
			Name:        task.Name,
			Description: "Emit the structured result.",
			Properties:  task.Schema.Properties,
			Required:    task.Schema.Required,
		},
	})
	if err != nil {
		return nil, model.TokenUsage{}, classifyAnthropicErr(err)
	}

	u := model.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	return resp.Input, u, nil
}

func classifyAnthropicErr(err error) error {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			ra := retryAfterHeader(apierr.Response)
			return &RateLimitedError{Err: resilience.NewRateLimitError(err, ra), RetryAfter: ra}
		case resilience.IsTransientHTTPStatus(apierr.StatusCode):
			return &UnavailableError{Err: resilience.NewTransientError(err, apierr.StatusCode)}
		default:
			return err
		}
	}
	if resilience.IsTransient(err) {
		return &UnavailableError{Err: err}
	}
	return err
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := time.ParseDuration(resp.Header.Get("Retry-After") + "s")
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}
