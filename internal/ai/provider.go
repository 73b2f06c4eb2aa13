package ai

import "context"

// Provider is a text-generation backend. Implementations must honor ctx
// deadlines; callers treat any error as a cue to fall back locally, so
// providers never need retry logic of their own.
type Provider interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}
