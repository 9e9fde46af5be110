package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"StockSimDesk/internal/collector"
	"StockSimDesk/internal/gateway"
	"StockSimDesk/internal/recorder"
	"StockSimDesk/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// CallStats reports gateway call statistics. *recorder.SQLiteRecorder satisfies it.
type CallStats interface {
	CallSummaries(since time.Time) ([]recorder.CallSummary, error)
}

// Config holds server configuration
type Config struct {
	Addr           string
	AllowedOrigins []string
	Log            zerolog.Logger
	Collector      *collector.Collector
	Sessions       *session.Manager
	TrendMonths    int             // default window of /finance/trend
	Stats          CallStats       // optional
	BaseContext    context.Context // cancelled on process shutdown; nil means Background
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	col      *collector.Collector
	backend  collector.Backend
	sessions *session.Manager
	stats    CallStats
	base     context.Context
	months   int
	started  time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		col:      cfg.Collector,
		backend:  cfg.Collector.Backend,
		sessions: cfg.Sessions,
		stats:    cfg.Stats,
		base:     cfg.BaseContext,
		months:   cfg.TrendMonths,
		started:  time.Now(),
	}

	if s.base == nil {
		s.base = context.Background()
	}

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats/calls", s.handleCallStats)

		r.Route("/session", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/", s.handleSession)
		})
		r.Route("/account", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/otp", s.handleSendOTP)
			r.Post("/reset-password", s.handleResetPassword)
			r.With(s.requireSession).Post("/upgrade", s.handleUpgrade)
		})

		r.Get("/quotes/{symbol}", s.handleQuote)
		r.Get("/quotes/{symbol}/history", s.handleQuoteHistory)
		r.Get("/quotes/{symbol}/insight", s.handleQuoteInsight)
		r.Post("/prices/refresh", s.handleRefreshPrices)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/portfolio", s.handlePortfolio)
			r.Get("/holdings", s.handleHoldings)
			r.Get("/history", s.handleHistory)
			r.Delete("/history/{id}", s.handleDeleteHistory)
			r.Get("/trades/recent", s.handleRecentTrades)
			r.Post("/orders", s.handlePlaceOrder)

			r.Post("/wallet/deposit", s.handleDeposit)
			r.Post("/wallet/adjust", s.handleAdjust)
			r.Get("/wallet/deposits", s.handleDeposits)

			r.Get("/notifications", s.handleNotifications)
			r.Post("/notifications/read", s.handleMarkRead)

			r.Route("/finance", func(r chi.Router) {
				r.Get("/", s.handleFinance)
				r.Get("/trend", s.handleTrend)
				r.Get("/summary", s.handleFinanceSummary)
				r.Post("/transactions", s.handleAddEntry)
				r.Put("/transactions/{id}", s.handleUpdateEntry)
				r.Delete("/transactions/{id}", s.handleDeleteEntry)
				r.Post("/sync", s.handleGmailSync)
				r.Get("/gmail", s.handleGmailStatus)
				r.Get("/gmail/auth-url", s.handleGmailAuthURL)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

type sessionKey struct{}

// requireSession rejects requests without a signed-in user and stores the session in the context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Current()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// callCtx is the context handed to backend calls. It ends only on shutdown, so a
// client disconnect never aborts a call that is already in flight.
func (s *Server) callCtx() context.Context {
	return s.base
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return sess
}

// badRequest is a malformed request detected by the server itself.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

// statusFor maps an operation error onto an HTTP status.
func statusFor(err error) int {
	var br *badRequest
	switch {
	case errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized
	case errors.As(err, &br), collector.IsInput(err), errors.Is(err, session.ErrInvalid):
		return http.StatusBadRequest
	case gateway.IsBackend(err):
		return http.StatusUnprocessableEntity
	case gateway.IsConnection(err), gateway.IsParse(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ge *gateway.Error
	if errors.As(err, &ge) {
		body.Kind = ge.Kind.String()
		if ge.Kind == gateway.KindBackend && ge.Message != "" {
			body.Error = ge.Message
		}
	}
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg("request failed")
	}
	s.writeJSON(w, r, status, body)
}

// writeJSON encodes v before writing the status so an unencodable value becomes a 500.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg("encode response")
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorBody{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// decodeBody reads a JSON request body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &badRequest{msg: "invalid request body: " + err.Error()}
	}
	return nil
}
