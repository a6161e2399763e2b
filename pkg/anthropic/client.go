package anthropic

import (
	"context"
	"encoding/json"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the Anthropic operations used by the resolution pipeline.
// Structured output is obtained through forced tool use: the model must call
// the supplied tool, and the tool input is returned as raw JSON.
type Client interface {
	ToolCall(ctx context.Context, req ToolRequest) (*ToolResponse, error)
}

// ToolSpec describes the single tool the model is forced to call.
type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// ToolRequest is a structured-output completion request.
type ToolRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Prompt      string
	Tool        ToolSpec
	Temperature *float64
}

// ToolResponse carries the tool input produced by the model.
type ToolResponse struct {
	Input      json.RawMessage
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption of one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{client: sdk.NewClient(all...)}
}

func (c *sdkClient) ToolCall(ctx context.Context, req ToolRequest) (*ToolResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
		Tools: []sdk.ToolUnionParam{{
			OfTool: &sdk.ToolParam{
				Name:        req.Tool.Name,
				Description: sdk.String(req.Tool.Description),
				InputSchema: sdk.ToolInputSchemaParam{
					Properties: req.Tool.Properties,
					Required:   req.Tool.Required,
				},
			},
		}},
		ToolChoice: sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: req.Tool.Name},
		},
	}

	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: tool call")
	}

	resp := &ToolResponse{
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}

	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == req.Tool.Name {
			resp.Input = json.RawMessage(block.Input)
			break
		}
	}

	if resp.Input == nil {
		return nil, eris.Errorf("anthropic: no tool_use block for %q in response", req.Tool.Name)
	}

	return resp, nil
}
