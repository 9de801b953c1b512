package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkDecode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		terminal bool
		lines    []string
		errMsg   string
	}{
		{"lines", `{"lines":["a","b"]}`, false, []string{"a", "b"}, ""},
		{"done", `{"done":true}`, true, nil, ""},
		{"done with error", `{"done":true,"error":"boom"}`, true, nil, "boom"},
		{"done with lines and null error", `{"lines":["done"],"done":true,"error":null}`, true, []string{"done"}, ""},
		{"empty object", `{}`, false, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Chunk
			require.NoError(t, json.Unmarshal([]byte(tt.body), &c))
			assert.Equal(t, tt.terminal, c.IsTerminal())
			assert.Equal(t, tt.lines, c.Lines)
			assert.Equal(t, tt.errMsg, c.Error)
		})
	}
}

func TestChain(t *testing.T) {
	upper := TransformerFunc(func(c *Chunk) error {
		for i := range c.Lines {
			c.Lines[i] = strings.ToUpper(c.Lines[i])
		}
		return nil
	})
	suffix := TransformerFunc(func(c *Chunk) error {
		c.Lines = append(c.Lines, "end")
		return nil
	})

	c := &Chunk{Lines: []string{"a", "b"}}
	require.NoError(t, Chain(c, upper, nil, suffix))
	assert.Equal(t, []string{"A", "B", "end"}, c.Lines)
}

func TestChainStopsAtFirstError(t *testing.T) {
	errBoom := errors.New("boom")
	called := false
	failing := TransformerFunc(func(*Chunk) error { return errBoom })
	after := TransformerFunc(func(*Chunk) error {
		called = true
		return nil
	})

	err := Chain(&Chunk{}, failing, after)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, called)
}
