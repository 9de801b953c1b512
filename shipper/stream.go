package shipper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"
)

const maxLineBytes = 1 << 20

type scanned struct {
	line string
	err  error
}

// Ship opens a session, sends every line read from r in batches, and closes
// the session. A read error is sent as the session's error and returned.
func (c *Client) Ship(ctx context.Context, r io.Reader) error {
	if err := c.Open(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := scanLines(ctx, r)

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]string, 0, c.cfg.BatchLines)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.Send(ctx, batch); err != nil {
			return err
		}
		batch = make([]string, 0, c.cfg.BatchLines)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		case s, ok := <-lines:
			if !ok {
				if err := flush(); err != nil {
					return err
				}
				return c.Close(ctx, nil)
			}
			if s.err != nil {
				if err := flush(); err != nil {
					return err
				}
				readErr := fmt.Errorf("read input: %w", s.err)
				if err := c.Close(ctx, readErr); err != nil {
					return err
				}
				return readErr
			}
			batch = append(batch, s.line)
			if len(batch) >= c.cfg.BatchLines {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}

// scanLines streams lines from r until EOF or the first read error, which is
// delivered as the final value before the channel closes.
func scanLines(ctx context.Context, r io.Reader) <-chan scanned {
	out := make(chan scanned)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case out <- scanned{line: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case out <- scanned{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}
