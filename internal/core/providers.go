package core

import "context"

// Generator produces a reply from a system prompt and a user prompt. Failures
// here surface to the chat caller.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// Extractor asks the model to mine candidate memory fragments from a
// role-prefixed transcript. The raw output is sanity-checked downstream, never
// trusted.
type Extractor interface {
	Extract(ctx context.Context, transcript string) ([]RawFragment, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
