// Package api exposes the ledger's commit interface over HTTP for a UI
// layer.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Veraticus/the-budget-must-balance/internal/extraction"
	"github.com/Veraticus/the-budget-must-balance/internal/service"
)

// maxAudioBytes caps multipart uploads on POST /voice.
const maxAudioBytes = 25 << 20

// ErrorResponse is the JSON body of every 4xx/5xx response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Server holds the HTTP handlers.
type Server struct {
	ledger  service.Ledger
	session *extraction.Session
	logger  *slog.Logger
}

// NewServer creates a server. session may be nil, in which case the voice
// endpoints answer 503.
func NewServer(ledger service.Ledger, session *extraction.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ledger: ledger, session: session, logger: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/summary", s.handleSummary)

	r.Route("/incomes", func(r chi.Router) {
		r.Get("/", s.listIncomes)
		r.Post("/", s.createIncome)
		r.Patch("/{id}", s.updateIncome)
		r.Delete("/{id}", s.deleteIncome)
	})

	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", s.listExpenses)
		r.Post("/", s.createExpense)
		r.Patch("/{id}", s.updateExpense)
		r.Delete("/{id}", s.deleteExpense)
	})

	r.Post("/voice", s.handleVoice)
	r.Get("/voice/state", s.handleVoiceState)
	r.Post("/voice/cancel", s.handleVoiceCancel)
	r.Post("/utterances", s.handleUtterance)

	return r
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}
