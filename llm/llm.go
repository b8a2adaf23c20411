package llm

import (
	"context"

	"github.com/sweetpotato0/adaptive-rag/message"
)

// Client defines the interface for LLM providers. Every grading, routing,
// rewriting, and generation step in the pipeline goes through exactly one
// blocking Generate call.
type Client interface {
	// Generate generates a response from the LLM
	Generate(ctx context.Context, messages []*message.Message) (*message.Message, error)

	// SetTemperature updates the temperature setting for generation
	SetTemperature(temp float64)

	// SetMaxTokens updates the maximum tokens limit for generation
	SetMaxTokens(max int64)

	// SetModel updates the model to use for generation
	SetModel(model string)
}
