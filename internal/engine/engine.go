// Package engine abstracts the external reasoning call: given a prompt and a
// model, produce text. The deliberation gateway layers personas, evidence,
// and timeouts on top of this contract.
package engine

import "context"

// Options are per-call generation parameters.
type Options struct {
	Temperature     float32
	MaxTokens       int
	SafetyThreshold string
}

// Engine is the opaque reasoning call. Implementations map their failure
// modes onto the domain error taxonomy.
type Engine interface {
	// Generate produces text for the prompt. The returned string is the raw
	// model output, which may carry a trailing metadata block.
	Generate(ctx context.Context, prompt, model string, opts Options) (string, error)

	// Name identifies the engine, recorded as the model/source identifier
	// on responses.
	Name() string
}
