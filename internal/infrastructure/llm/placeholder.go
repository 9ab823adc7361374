package llm

import (
	"context"
	"strings"

	"ReadingRoom/internal/ports"
)

// Placeholder echoes a bounded excerpt of the prompt. It keeps the pipeline
// runnable without API credentials.
type Placeholder struct {
	MaxRunes int
}

var _ ports.TextGenerator = Placeholder{}

// Generate returns the prompt body after its instruction line, truncated.
func (p Placeholder) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body := prompt
	if _, rest, ok := strings.Cut(prompt, "\n\n"); ok {
		body = rest
	}
	body = strings.TrimSpace(body)

	limit := p.MaxRunes
	if limit <= 0 {
		limit = 4000
	}
	if r := []rune(body); len(r) > limit {
		body = string(r[:limit])
	}
	return body, nil
}
