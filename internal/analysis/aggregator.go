package analysis

import (
	"fmt"
	"strings"

	"github.com/viab/viab-backend/internal/providers"
)

const (
	additionalFilesHeading = "## ADDITIONAL FILES ANALYSIS"
	projectSummaryHeading  = "## COMPLETE PROJECT SUMMARY"
)

// BatchOutput is the outcome of one executed batch. Failed batches carry an
// error and an empty content string.
type BatchOutput struct {
	Index   int
	Files   int
	Content string
	Err     error
}

// Aggregate merges per-batch outputs, in order, into the final consolidated
// artifact. A single successful batch passes through unchanged. Multiple
// batches are joined with a separating heading and closed with a synthesized
// project summary section. Failed batches are kept in place as explicit
// placeholders so the record stays complete and order-correct.
func Aggregate(outputs []BatchOutput, totalFiles int) (string, error) {
	if len(outputs) == 0 {
		return "", ErrEmptyResult
	}

	if len(outputs) == 1 {
		content := sectionContent(outputs[0])
		if strings.TrimSpace(content) == "" {
			return "", ErrEmptyResult
		}
		return content, nil
	}

	var b strings.Builder
	for i, out := range outputs {
		if i > 0 {
			b.WriteString("\n\n")
			b.WriteString(additionalFilesHeading)
			b.WriteString("\n\n")
		}
		b.WriteString(sectionContent(out))
	}

	b.WriteString("\n\n")
	b.WriteString(projectSummaryHeading)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf(
		"This project consists of %d files analyzed in %d batches above.",
		totalFiles, len(outputs)))

	result := b.String()
	if allBlank(outputs) {
		return "", ErrEmptyResult
	}
	return result, nil
}

func sectionContent(out BatchOutput) string {
	if out.Err != nil {
		return fmt.Sprintf("**Batch %d analysis unavailable:** %v", out.Index, out.Err)
	}
	return out.Content
}

func allBlank(outputs []BatchOutput) bool {
	for _, out := range outputs {
		if out.Err == nil && strings.TrimSpace(out.Content) != "" {
			return false
		}
	}
	return true
}

// Drain fully consumes a streamed completion into one string. The HTTP
// surface replies synchronously, so every streaming response is drained
// before returning; true incremental consumers read the channel directly.
func Drain(chunks <-chan providers.StreamChunk) (string, error) {
	var b strings.Builder
	for chunk := range chunks {
		if chunk.Error != "" {
			return b.String(), fmt.Errorf("stream error: %s", chunk.Error)
		}
		if chunk.Delta != "" {
			b.WriteString(chunk.Delta)
		}
	}
	return b.String(), nil
}
