// Package compact provides a Transformer that keeps oversized chunks from
// flooding the operator console.
package compact

import (
	"fmt"
	"unicode/utf8"

	"github.com/sonnes/logsink/core"
)

// Config controls the compact transformer behavior. Zero fields disable the
// corresponding limit.
type Config struct {
	// MaxLines is the number of lines printed per chunk before the rest is
	// collapsed into a summary line.
	MaxLines int
	// MaxLineWidth truncates individual lines to this many runes.
	MaxLineWidth int
}

// Compactor collapses long chunks and truncates wide lines.
type Compactor struct {
	maxLines int
	maxWidth int
}

// New creates a Compactor from the given config.
func New(cfg Config) *Compactor {
	return &Compactor{maxLines: cfg.MaxLines, maxWidth: cfg.MaxLineWidth}
}

// Transform implements core.Transformer.
func (c *Compactor) Transform(ch *core.Chunk) error {
	if c.maxWidth > 0 {
		for i := range ch.Lines {
			ch.Lines[i] = truncate(ch.Lines[i], c.maxWidth)
		}
	}
	// The summary line is appended after truncation so it is never cut.
	if c.maxLines > 0 && len(ch.Lines) > c.maxLines {
		hidden := len(ch.Lines) - c.maxLines
		lines := make([]string, 0, c.maxLines+1)
		lines = append(lines, ch.Lines[:c.maxLines]...)
		ch.Lines = append(lines, lineSummary("more", hidden))
	}
	return nil
}

// lineSummary returns a summary like "[more: 245 lines]" or "[more: 1 line]".
func lineSummary(label string, n int) string {
	if n == 1 {
		return fmt.Sprintf("[%s: 1 line]", label)
	}
	return fmt.Sprintf("[%s: %d lines]", label, n)
}

// truncate shortens s to width runes, appending an ellipsis when cut.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width]) + "…"
}
