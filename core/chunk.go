// Package core defines the wire and state types shared by the receiver and
// the shipping client: sessions, chunk payloads and the continue response.
package core

import "time"

// Session tracks one sender's progress through its chunk stream.
type Session struct {
	ID           string    `json:"id"`
	NextSequence int       `json:"next_sequence"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}

// Chunk is the body of a chunk submission. Either Lines is set, or Done is
// true with an optional Error. Lines sent alongside Done are ignored.
type Chunk struct {
	Lines []string `json:"lines"`
	Done  bool     `json:"done,omitempty"`
	Error string   `json:"error,omitempty"`
}

// IsTerminal reports whether the chunk ends the session.
func (c *Chunk) IsTerminal() bool {
	return c.Done
}

// ContinueResponse is returned for every accepted non-terminal chunk.
type ContinueResponse struct {
	Continue string `json:"continue"`
}
