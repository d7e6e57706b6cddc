package session

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/zombor/study-scan/internal/scanning"
)

// Server exposes a Session over HTTP
type Server struct {
	session   *Session
	storage   scanning.Storage
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(session *Session, storage scanning.Storage, basicAuth BasicAuth) *Server {
	return NewServerWithMux(session, storage, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(session *Session, storage scanning.Storage, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		session:   session,
		storage:   storage,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials. Both fields are always compared
// in constant time.
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password))
	return userOK&passOK == 1
}

// corsMiddleware adds CORS headers and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Study Scan"`)
			corsError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/session/synthesis", s.requireAuth(s.handleGetSynthesis))
	s.mux.HandleFunc("POST /api/session/synthesis/dismiss", s.requireAuth(s.handleDismissSynthesis))
	s.mux.HandleFunc("POST /api/session/synthesis", s.requireAuth(s.handleRequestSynthesis))
	s.mux.HandleFunc("POST /api/session/scan", s.requireAuth(s.handleRequestScan))
	s.mux.HandleFunc("POST /api/session/cancel", s.requireAuth(s.handleCancel))
	s.mux.HandleFunc("POST /api/session/asset", s.requireAuth(s.handleReceiveAsset))
	s.mux.HandleFunc("POST /api/session/reset", s.requireAuth(s.handleReset))
	s.mux.HandleFunc("GET /api/session", s.requireAuth(s.handleGetSession))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
