package server

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sonnes/logsink/core"
	"github.com/sonnes/logsink/session"
)

const sessionsPath = "/sessions"

var (
	errNotObject    = errors.New("body is not a JSON object")
	errTrailingData = errors.New("unexpected data after JSON value")
)

// Handler returns the HTTP routes. Routing works on the raw request path,
// without the cleaning and redirects of http.ServeMux, and methods other
// than POST get 404 rather than 405 so unknown requests look the same
// regardless of path.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.route)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == sessionsPath && r.URL.RawQuery == "":
		s.handleCreate(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, sessionsPath+"/"):
		s.handleSubmit(w, r)
	default:
		writeText(w, http.StatusNotFound, "Not found\n")
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, _ *http.Request) {
	sess := s.Sessions.Create()
	location := s.chunkURL(sess.ID, sess.NextSequence)
	w.Header().Set("Location", location)
	writeText(w, http.StatusCreated, location)
	s.Console.Created(sess.ID)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, seq := parseChunkPath(r.URL.Path)

	// Reject unknown sessions and stale sequences before reading the body.
	if err := s.Sessions.Check(id, seq); err != nil {
		writeSessionError(w, err)
		return
	}

	body := &readErrRecorder{r: http.MaxBytesReader(w, r.Body, s.maxBodyBytes())}
	chunk, err := decodeChunk(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(body.err, &tooLarge) {
			s.logger().Warn("body too large, sending 413", "session_id", id, "limit", tooLarge.Limit)
			writeText(w, http.StatusRequestEntityTooLarge, "Request too large\n")
			return
		}
		s.logger().Warn("bad JSON, sending 400", "session_id", id, "error", err)
		writeText(w, http.StatusBadRequest, "Bad JSON\n")
		return
	}

	if err := core.Chain(chunk, s.Transformers...); err != nil {
		s.logger().Error("transform chunk", "session_id", id, "error", err)
		writeText(w, http.StatusInternalServerError, "Internal error\n")
		return
	}

	if chunk.IsTerminal() {
		if err := s.Sessions.Finish(id, seq); err != nil {
			writeSessionError(w, err)
			return
		}
		if chunk.Error != "" {
			s.Console.Failed(chunk.Error)
		} else {
			s.Console.Done()
		}
		writeText(w, http.StatusOK, "Done.\n")
		return
	}

	sess, err := s.Sessions.Advance(id, seq)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.Console.Lines(chunk.Lines)

	out, err := json.Marshal(core.ContinueResponse{Continue: s.chunkURL(sess.ID, sess.NextSequence)})
	if err != nil {
		s.logger().Error("encode continue response", "session_id", id, "error", err)
		writeText(w, http.StatusInternalServerError, "Internal error\n")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) chunkURL(id string, seq int) string {
	return s.BaseURL + sessionsPath + "/" + id + "/" + strconv.Itoa(seq)
}

// parseChunkPath splits "/sessions/{id}/{seq}". A missing or non-numeric
// sequence yields -1, which never matches a session.
func parseChunkPath(path string) (id string, seq int) {
	rest := strings.TrimPrefix(path, sessionsPath+"/")
	id, rest, _ = strings.Cut(rest, "/")
	raw, _, _ := strings.Cut(rest, "/")
	seq, err := strconv.Atoi(raw)
	if err != nil {
		return id, -1
	}
	return id, seq
}

// decodeChunk parses exactly one JSON object from body. Anything but
// whitespace after the object is rejected.
func decodeChunk(body io.Reader) (*core.Chunk, error) {
	dec := json.NewDecoder(body)
	var chunk *core.Chunk
	if err := dec.Decode(&chunk); err != nil {
		return nil, err
	}
	if chunk == nil {
		return nil, errNotObject
	}

	rest := bufio.NewReader(io.MultiReader(dec.Buffered(), body))
	for {
		b, err := rest.ReadByte()
		if errors.Is(err, io.EOF) {
			return chunk, nil
		}
		if err != nil {
			return nil, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
		default:
			return nil, errTrailingData
		}
	}
}

// readErrRecorder keeps the last non-EOF read error so callers can inspect
// it after a decoder has wrapped or replaced it.
type readErrRecorder struct {
	r   io.Reader
	err error
}

func (rr *readErrRecorder) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		rr.err = err
	}
	return n, err
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeText(w, http.StatusNotFound, "Not found\n")
	case errors.Is(err, session.ErrBadSequence):
		writeText(w, http.StatusBadRequest, "Bad sequence\n")
	default:
		writeText(w, http.StatusInternalServerError, "Internal error\n")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
