package usecase

import (
	"context"
	"fmt"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/ports"
)

const (
	reportPrompt  = "Generate a detailed report based on the following text:\n\n"
	summaryPrompt = "Provide a bullet-point summary for the following detailed report:\n\n"
	scriptPrompt  = "Convert the following detailed report into a video script for a 5-minute faceless YouTube video:\n\n"
)

// ContentPipeline chains text -> report, report -> summary and report -> script.
type ContentPipeline struct {
	generator ports.TextGenerator
}

// NewContentPipeline wires the text generator used for every stage.
func NewContentPipeline(generator ports.TextGenerator) *ContentPipeline {
	return &ContentPipeline{generator: generator}
}

// Run executes the chain. Any stage failure discards the whole result.
func (c *ContentPipeline) Run(ctx context.Context, text string) (domain.Content, error) {
	if c.generator == nil {
		return domain.Content{}, fmt.Errorf("%w: text generator is not configured", domain.ErrGeneration)
	}

	report, err := c.stage(ctx, "report", reportPrompt+text)
	if err != nil {
		return domain.Content{}, err
	}

	summary, err := c.stage(ctx, "summary", summaryPrompt+report)
	if err != nil {
		return domain.Content{}, err
	}

	script, err := c.stage(ctx, "script", scriptPrompt+report)
	if err != nil {
		return domain.Content{}, err
	}

	return domain.Content{Report: report, Summary: summary, VideoScript: script}, nil
}

func (c *ContentPipeline) stage(ctx context.Context, name, prompt string) (string, error) {
	out, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrGeneration, name, err)
	}
	return out, nil
}
