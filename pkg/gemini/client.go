package gemini

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Client defines the Gemini operations used by the resolution pipeline.
// Structured output is obtained through JSON response mode with an attached
// response schema.
type Client interface {
	GenerateJSON(ctx context.Context, req JSONRequest) (*JSONResponse, error)
	Embed(ctx context.Context, text string) ([]float32, int64, error)
}

// DefaultEmbedModel is used when no embedding model is configured.
const DefaultEmbedModel = "gemini-embedding-001"

// JSONRequest is a structured-output completion request. Schema is a JSON
// Schema object description ("properties" keyed map plus "required").
type JSONRequest struct {
	Model       string
	System      string
	Prompt      string
	Properties  map[string]any
	Required    []string
	Temperature *float32
}

// JSONResponse carries the raw JSON produced by the model.
type JSONResponse struct {
	Raw   json.RawMessage
	Usage TokenUsage
}

// TokenUsage tracks token consumption of one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

type genaiClient struct {
	client     *genai.Client
	embedModel string
}

// Option configures the client.
type Option func(*genaiClient)

// WithEmbedModel overrides the embedding model.
func WithEmbedModel(model string) Option {
	return func(c *genaiClient) {
		if model != "" {
			c.embedModel = model
		}
	}
}

// NewClient creates a Gemini client against the public Gemini API.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	gc := &genaiClient{client: c, embedModel: DefaultEmbedModel}
	for _, opt := range opts {
		opt(gc)
	}
	return gc, nil
}

// Embed generates a semantic-similarity embedding for one text and reports
// the token count of the call when the API provides it.
func (c *genaiClient) Embed(ctx context.Context, text string) ([]float32, int64, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, 0, eris.Wrap(err, "gemini: embed content")
	}
	if len(result.Embeddings) == 0 {
		return nil, 0, eris.New("gemini: no embeddings returned")
	}

	emb := result.Embeddings[0]
	return emb.Values, c.embedTokens(ctx, emb, contents), nil
}

// embedTokens reports the token count of one embedding call. Per-embedding
// statistics are populated on the Vertex backend only; the public Gemini API
// needs a countTokens round trip instead. Counting failures degrade to zero
// rather than failing the embedding.
func (c *genaiClient) embedTokens(ctx context.Context, emb *genai.ContentEmbedding, contents []*genai.Content) int64 {
	if emb.Statistics != nil && emb.Statistics.TokenCount > 0 {
		return int64(emb.Statistics.TokenCount)
	}

	count, err := c.client.Models.CountTokens(ctx, c.embedModel, contents, nil)
	if err != nil {
		return 0
	}
	return int64(count.TotalTokens)
}

func (c *genaiClient) GenerateJSON(ctx context.Context, req JSONRequest) (*JSONResponse, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: convertProperties(req.Properties),
			Required:   req.Required,
		},
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Temperature)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	text := result.Text()
	if text == "" {
		return nil, eris.New("gemini: empty response")
	}

	resp := &JSONResponse{Raw: json.RawMessage(text)}
	if result.UsageMetadata != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	return resp, nil
}

// convertProperties maps a plain JSON Schema properties object onto the
// genai schema types. Only the subset used by the resolution schemas is
// supported: object, array, string, number, integer, boolean, enum.
func convertProperties(props map[string]any) map[string]*genai.Schema {
	out := make(map[string]*genai.Schema, len(props))
	for name, raw := range props {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[name] = convertSchema(m)
	}
	return out
}

func convertSchema(m map[string]any) *genai.Schema {
	s := &genai.Schema{}

	switch t, _ := m["type"].(string); t {
	case "object":
		s.Type = genai.TypeObject
		if sub, ok := m["properties"].(map[string]any); ok {
			s.Properties = convertProperties(sub)
		}
		if req, ok := m["required"].([]string); ok {
			s.Required = req
		} else if reqAny, ok := m["required"].([]any); ok {
			for _, r := range reqAny {
				if str, ok := r.(string); ok {
					s.Required = append(s.Required, str)
				}
			}
		}
	case "array":
		s.Type = genai.TypeArray
		if items, ok := m["items"].(map[string]any); ok {
			s.Items = convertSchema(items)
		}
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	default:
		s.Type = genai.TypeString
	}

	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	if enum, ok := m["enum"].([]string); ok {
		s.Enum = enum
	}

	return s
}
