// Package console prints receiver events for the operator watching the
// process: the start banner, session lifecycle and every received line.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes operator-facing console lines. It is safe for concurrent
// use; the lines of one chunk are written without interleaving.
type Printer struct {
	// Plain disables ANSI styling, for pipes and log files.
	Plain bool

	mu sync.Mutex
	w  io.Writer
}

// New creates a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Banner prints how to start a session against baseURL.
func (p *Printer) Banner(baseURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "Create a session with\n\n  %s\n\n", p.render(styleCommand, "curl -XPOST "+baseURL+"/sessions"))
}

// Created reports a new session.
func (p *Printer) Created(id string) {
	p.event(styleSession, "created session", id)
}

// Lines prints every line of a received chunk. Only the prefix is styled;
// the text is written verbatim.
func (p *Printer) Lines(lines []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(p.w, p.render(styleLinePrefix, "line:")+" "+line)
	}
}

// Done reports a session that finished cleanly.
func (p *Printer) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.render(styleDone, "done."))
}

// Failed reports a session that finished with the sender's error message.
func (p *Printer) Failed(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.render(styleError, "error:")+" "+msg)
}

// Expired reports a session removed by the idle sweeper.
func (p *Printer) Expired(id string) {
	p.event(styleError, "expired session", id)
}

func (p *Printer) event(style lipgloss.Style, label, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.render(style, label)+" "+p.render(styleID, id))
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if p.Plain {
		return s
	}
	return style.Render(s)
}
