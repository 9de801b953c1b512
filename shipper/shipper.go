// Package shipper sends log lines to a logsink receiver. It opens a session,
// posts each chunk to the URL returned by the previous response, and retries
// transport failures and server errors with exponential backoff.
package shipper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/sonnes/logsink/core"
)

// Defaults applied to zero Config fields.
const (
	DefaultBatchLines     = 100
	DefaultFlushInterval  = 200 * time.Millisecond
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	DefaultMaxElapsed     = 2 * time.Minute
)

const maxResponseBytes = 1 << 20

// ErrNotOpen is returned when a chunk is sent before Open or after Close.
var ErrNotOpen = errors.New("shipper: no open session")

// Config controls batching and retry behavior. Zero fields take defaults.
type Config struct {
	// URL is the receiver's session collection, e.g. "http://127.0.0.1:8080/sessions".
	URL string
	// BatchLines is the maximum number of lines per chunk.
	BatchLines int
	// FlushInterval bounds how long a partial batch waits before it is sent.
	FlushInterval time.Duration

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxElapsed bounds the total retry time for a single request.
	MaxElapsed time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchLines <= 0 {
		c.BatchLines = DefaultBatchLines
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = DefaultMaxElapsed
	}
	return c
}

// StatusError reports a response status the client did not expect.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, strings.TrimSpace(e.Body))
}

// Client ships chunks for a single session. It is not safe for concurrent use.
type Client struct {
	HTTPClient *http.Client
	Logger     *log.Logger

	cfg  Config
	next string
}

// New creates a Client for the receiver at cfg.URL.
func New(cfg Config) *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		Logger:     log.Default(),
		cfg:        cfg.withDefaults(),
	}
}

// NextURL returns the URL the next chunk will be posted to, or "" when no
// session is open.
func (c *Client) NextURL() string {
	return c.next
}

// Open creates a session on the receiver.
func (c *Client) Open(ctx context.Context) error {
	resp, err := c.post(ctx, c.cfg.URL, nil, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	next := resp.header.Get("Location")
	if next == "" {
		next = strings.TrimSpace(string(resp.body))
	}
	if next == "" {
		return fmt.Errorf("open session: response from %s has no location", c.cfg.URL)
	}
	c.next = next
	c.logger().Debug("opened session", "url", next)
	return nil
}

// Send posts one chunk of lines and advances to the returned continue URL.
func (c *Client) Send(ctx context.Context, lines []string) error {
	if c.next == "" {
		return ErrNotOpen
	}
	if lines == nil {
		lines = []string{}
	}
	body, err := json.Marshal(core.Chunk{Lines: lines})
	if err != nil {
		return fmt.Errorf("encode chunk: %w", err)
	}
	resp, err := c.post(ctx, c.next, body, http.StatusOK)
	if err != nil {
		return fmt.Errorf("send chunk: %w", err)
	}
	var cont core.ContinueResponse
	if err := json.Unmarshal(resp.body, &cont); err != nil {
		return fmt.Errorf("decode continue response from %s: %w", c.next, err)
	}
	if cont.Continue == "" {
		return fmt.Errorf("decode continue response from %s: missing continue URL", c.next)
	}
	c.logger().Debug("sent chunk", "lines", len(lines), "next", cont.Continue)
	c.next = cont.Continue
	return nil
}

// Close sends the terminal marker. A non-nil cause is reported to the
// receiver as the session's error.
func (c *Client) Close(ctx context.Context, cause error) error {
	if c.next == "" {
		return ErrNotOpen
	}
	chunk := core.Chunk{Done: true}
	if cause != nil {
		chunk.Error = cause.Error()
	}
	body, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("encode done marker: %w", err)
	}
	if _, err := c.post(ctx, c.next, body, http.StatusOK); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	c.next = ""
	return nil
}

type response struct {
	header http.Header
	body   []byte
}

// post retries transport errors and 5xx responses. Any other status that is
// not want fails immediately.
func (c *Client) post(ctx context.Context, url string, body []byte, want int) (response, error) {
	op := func() (response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return response{}, backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient().Do(req)
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return response{}, err
		}
		if resp.StatusCode == want {
			return response{header: resp.Header, body: data}, nil
		}
		statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(data)}
		if resp.StatusCode >= http.StatusInternalServerError {
			return response{}, statusErr
		}
		return response{}, backoff.Permanent(statusErr)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxElapsedTime(c.cfg.MaxElapsed),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.logger().Warn("backing off before retrying", "url", url, "delay", delay, "error", err)
		}),
	)
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.Multiplier = 2
	return b
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}
