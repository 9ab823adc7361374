package usecase

import (
	"fmt"
	"strings"
)

const (
	// DefaultPromptCount is the number of image prompts produced per document.
	DefaultPromptCount = 60

	imagePromptTemplate = "Generate an image that illustrates: %s"
	fallbackSegment     = "the subject of the source document"
)

// SegmentPrompts splits a script on periods into exactly n image prompts.
// Short scripts repeat their last segment; long ones are truncated. A script
// with no segments at all is padded with a generic placeholder.
func SegmentPrompts(script string, n int) []string {
	if n <= 0 {
		return nil
	}

	segments := make([]string, 0, n)
	for _, part := range strings.Split(script, ".") {
		if len(segments) == n {
			break
		}
		if s := strings.TrimSpace(part); s != "" {
			segments = append(segments, s)
		}
	}

	if len(segments) == 0 {
		segments = append(segments, fallbackSegment)
	}
	for last := segments[len(segments)-1]; len(segments) < n; {
		segments = append(segments, last)
	}

	prompts := make([]string, n)
	for i, s := range segments {
		prompts[i] = fmt.Sprintf(imagePromptTemplate, s)
	}
	return prompts
}
