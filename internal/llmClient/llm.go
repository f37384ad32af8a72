// Package llmclient wraps the LLM generation backends the distillation
// services call into. Implementations only focus on the API call itself;
// cross-cutting concerns (retries, logging) are applied via Middleware.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

// LLMClient generates a JSON document from a prompt plus a JSON input blob.
type LLMClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Middleware wraps an LLMClient with additional behavior.
type Middleware func(LLMClient) LLMClient

// Chain applies middlewares left to right; the first wraps closest to the
// base client.
func Chain(base LLMClient, mws ...Middleware) LLMClient {
	out := base
	for _, mw := range mws {
		out = mw(out)
	}
	return out
}
