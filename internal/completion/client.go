package completion

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crosslogic/fieldmap-cli/internal/model"
	"github.com/crosslogic/fieldmap-cli/internal/usage"
)

// Task is one schema-constrained completion handed to a provider adapter.
type Task struct {
	Name   string
	System string
	Prompt string
	Schema Schema
}

// Invoker is the provider-specific half of the port: run one task, return the
// raw structured output and token usage. Adapters classify their own
// transport errors into the port error types.
type Invoker interface {
	Provider() string
	Complete(ctx context.Context, task Task) (json.RawMessage, model.TokenUsage, error)
}

// client implements Port over an Invoker, adding rate limiting, usage
// notification, and schema validation with one corrective retry.
type client struct {
	inv      Invoker
	limiter  *rate.Limiter
	observer usage.Observer
}

// NewPort wraps a provider adapter into the Port contract. rps bounds
// sustained request throughput toward the provider; observer may be nil.
func NewPort(inv Invoker, rps float64, burst int, observer usage.Observer) Port {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &client{
		inv:      inv,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		observer: observer,
	}
}

func (c *client) SelectViews(ctx context.Context, req SelectViewsRequest) ([]ViewSelection, error) {
	task := Task{
		Name:   "select_views",
		System: selectViewsSystem,
		Prompt: buildSelectViewsPrompt(req),
		Schema: selectViewsSchema(),
	}
	return run(c, ctx, task, decodeViewSelections)
}

func (c *client) MapFields(ctx context.Context, req MapFieldsRequest) ([]FieldMapping, error) {
	task := Task{
		Name:   "map_fields",
		System: mapFieldsSystem,
		Prompt: buildMapFieldsPrompt(req),
		Schema: mapFieldsSchema(),
	}
	return run(c, ctx, task, decodeFieldMappings)
}

// run executes one task: rate-limit, invoke, validate. A validation failure
// gets exactly one corrective follow-up before settling as SchemaError.
func run[T any](c *client, ctx context.Context, task Task, decode func(json.RawMessage) (T, error)) (T, error) {
	var zero T

	raw, err := c.invoke(ctx, task)
	if err != nil {
		return zero, err
	}

	out, decodeErr := decode(raw)
	if decodeErr == nil {
		return out, nil
	}

	zap.L().Warn("completion response failed validation, retrying with corrective prompt",
		zap.String("task", task.Name),
		zap.String("provider", c.inv.Provider()),
		zap.Error(decodeErr))

	task.Prompt = correctivePrompt(task.Prompt, decodeErr)
	raw, err = c.invoke(ctx, task)
	if err != nil {
		return zero, err
	}

	out, decodeErr = decode(raw)
	if decodeErr != nil {
		return zero, &SchemaError{Err: decodeErr, Raw: raw}
	}
	return out, nil
}

func (c *client) invoke(ctx context.Context, task Task) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		// Wait also fails upfront when the context deadline cannot cover the
		// limiter delay; surface the context error so the task settles as
		// timeout, not as a provider outage.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if _, ok := ctx.Deadline(); ok {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}

	raw, u, err := c.inv.Complete(ctx, task)
	if err != nil {
		return nil, err
	}
	usage.Notify(c.observer, c.inv.Provider(), u)
	return raw, nil
}
