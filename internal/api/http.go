package api

import (
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// Server wraps a kv.Store and exposes HTTP endpoints for KV operations.
type Server struct {
	Store  kv.Store
	Logger hclog.Logger
}

// NewServer creates a new HTTP server with the given store.
// A nil logger discards output.
func NewServer(store kv.Store, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		Store:  store,
		Logger: logger,
	}
}

// RegisterRoutes registers all HTTP handlers on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /data/{key}", s.handleGet)
	mux.HandleFunc("PUT /data/{key}", s.handlePut)
}

// Handler returns the routes wrapped with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return Recover(s.Logger, AccessLog(s.Logger, mux))
}

// handleGet handles GET /data/{key}.
// Returns the value as plain text, 404 if the key is absent.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		s.writeError(w, r, kv.ErrEmptyKey)
		return
	}

	value, err := s.Store.Get(key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeText(w, http.StatusOK, value)
}

// handlePut handles PUT /data/{key} with the raw value as the body.
// Echoes the stored value back on success.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		s.writeError(w, r, kv.ErrEmptyKey)
		return
	}

	// The body is read in full before the store is touched so the lock is
	// never held across network I/O.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.Logger.Debug("failed to read request body", "key", key, "error", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if !utf8.Valid(body) {
		s.writeError(w, r, kv.ErrInvalidEncoding)
		return
	}
	value := string(body)

	if err := s.Store.Set(key, value); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Logger.Info("setting data", "key", key, "bytes", len(value))

	writeText(w, http.StatusOK, value)
}

// StatusFor maps an error from the kv taxonomy to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, kv.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, kv.ErrInvalidEncoding), errors.Is(err, kv.ErrEmptyKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		// Internal details stay in the log.
		http.Error(w, "internal server error", code)
		return
	}
	http.Error(w, err.Error(), code)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, body)
}
