package providers

import (
	"context"
	"errors"
)

// ErrModelUnavailable is returned when the language-model call fails or times
// out. Callers recover with deterministic fallbacks, never raw error text.
var ErrModelUnavailable = errors.New("language model unavailable")

// LLMProvider is the text-in/text-out language model port used by both stages
// of the ask pipeline.
type LLMProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
