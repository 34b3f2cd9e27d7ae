package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"themind/auth"
	"themind/game"
)

// Options carries the transport settings that come from configuration.
type Options struct {
	CSRFKey     []byte
	CSRFSecure  bool
	ActionRate  float64
	ActionBurst int
}

type Server struct {
	router   *mux.Router
	handlers *Handlers
}

func NewServer(authService *auth.Service, lobby *game.Lobby, engine *game.Engine, opts Options) *Server {
	router := mux.NewRouter()
	handlers := NewHandlers(authService, lobby, engine)

	server := &Server{
		router:   router,
		handlers: handlers,
	}

	server.setupRoutes(authService, opts)
	return server
}

func (s *Server) setupRoutes(authService *auth.Service, opts Options) {
	s.router.Use(LoggingMiddleware)
	s.router.Use(SecurityHeadersMiddleware)
	s.router.Use(plaintextMiddleware)
	s.router.Use(csrfMiddleware(opts.CSRFKey, opts.CSRFSecure))

	loginLimiter := NewRateLimiter(5.0/60.0, 5)
	registerLimiter := NewRateLimiter(3.0/60.0, 3)
	actionLimiter := NewRateLimiter(rate.Limit(opts.ActionRate), opts.ActionBurst)

	// Public routes
	s.router.Handle("/api/auth/register", registerLimiter.Middleware(http.HandlerFunc(s.handlers.Register))).Methods("POST")
	s.router.Handle("/api/auth/login", loginLimiter.Middleware(http.HandlerFunc(s.handlers.Login))).Methods("POST")
	s.router.HandleFunc("/api/csrf", s.handlers.CSRFToken).Methods("GET")

	// Protected routes
	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(AuthMiddleware(authService))

	protected.HandleFunc("/auth/logout", s.handlers.Logout).Methods("POST")
	protected.HandleFunc("/auth/me", s.handlers.Me).Methods("GET")
	protected.HandleFunc("/matches", s.handlers.ListMatches).Methods("GET")
	protected.HandleFunc("/matches", s.handlers.CreateMatch).Methods("POST")
	protected.HandleFunc("/matches/{matchId:[0-9]+}/join", s.handlers.JoinMatch).Methods("POST")
	protected.HandleFunc("/matches/{matchId:[0-9]+}/state", s.handlers.State).Methods("GET")
	protected.HandleFunc("/matches/{matchId:[0-9]+}/scores", s.handlers.Scores).Methods("GET")
	protected.HandleFunc("/matches/{matchId:[0-9]+}/log", s.handlers.Log).Methods("GET")

	actions := protected.PathPrefix("/matches/{matchId:[0-9]+}").Subrouter()
	actions.Use(actionLimiter.UserMiddleware)
	actions.HandleFunc("/play", s.handlers.PlayCard).Methods("POST")
	actions.HandleFunc("/shuriken", s.handlers.UseShuriken).Methods("POST")
	actions.HandleFunc("/admin", s.handlers.Admin).Methods("POST")

	// JSON 404 for anything else under /api.
	s.router.PathPrefix("/api/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, envelope{Error: game.Code(game.ErrNotFound), Message: "not found"})
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) GetHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
