package server

import (
	"errors"
	"net/http"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/intake"
	"github.com/MeKo-Tech/cardscan/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	service     *intake.Service
	rateLimiter *RateLimiter
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	version     string
}

// RateLimitConfig holds per-client request quotas.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Version     string
	RateLimit   RateLimitConfig
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Engine  string `json:"engine"`
	Store   bool   `json:"store"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// CardResponse is returned when a card was processed or loaded.
type CardResponse struct {
	Success bool           `json:"success"`
	ID      uint           `json:"id,omitempty"`
	Record  card.Record    `json:"record"`
	Result  *intake.Result `json:"result,omitempty"`
	Card    *store.Card    `json:"card,omitempty"`
}

// CardListResponse is returned by GET /cards.
type CardListResponse struct {
	Cards  []store.Card `json:"cards"`
	Count  int          `json:"count"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a card server on top of svc.
func NewServer(config Config, svc *intake.Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("server requires an intake service")
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 10
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	s := &Server{
		service:     svc,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		version:     config.Version,
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/cards", s.corsMiddleware(s.rateLimitMiddleware(s.cardsHandler)))
	mux.HandleFunc("/cards/{id}", s.corsMiddleware(s.cardHandler))
	mux.HandleFunc("/extract", s.corsMiddleware(s.rateLimitMiddleware(s.extractHandler)))
	mux.HandleFunc("/ws", s.rateLimitMiddleware(s.cardWebSocketHandler))
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
