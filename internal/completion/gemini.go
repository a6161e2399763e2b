package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/resilience"
	"github.com/crosslogic/fieldmap-cli/pkg/gemini"
)

// ProviderGemini names the genai-backed adapter in config, usage accounting,
// and cost rates.
const ProviderGemini = "gemini"

type geminiInvoker struct {
	client gemini.Client
	model  string
}

// NewGemini adapts the gemini JSON-mode client to the port's Invoker
// contract.
func NewGemini(client gemini.Client, model string) Invoker {
	return &geminiInvoker{client: client, model: model}
}

func (g *geminiInvoker) Provider() string { return ProviderGemini }

func (g *geminiInvoker) Complete(ctx context.Context, task Task) (json.RawMessage, model.TokenUsage, error) {
	resp, err := g.client.GenerateJSON(ctx, gemini.JSONRequest{
		Model:      g.model,
		System:     task.System,
		Prompt:     task.Prompt,
		Properties: task.Schema.Properties,
		Required:   task.Schema.Required,
	})
	if err != nil {
		return nil, model.TokenUsage{}, classifyGeminiErr(err)
	}

	u := model.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	return resp.Raw, u, nil
}

func classifyGeminiErr(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		switch {
		case apierr.Code == http.StatusTooManyRequests:
			return &RateLimitedError{Err: resilience.NewRateLimitError(err, 0)}
		case resilience.IsTransientHTTPStatus(apierr.Code):
			return &UnavailableError{Err: resilience.NewTransientError(err, apierr.Code)}
		default:
			return err
		}
	}
	if resilience.IsTransient(err) {
		return &UnavailableError{Err: err}
	}
	return err
}
