package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/intake"
	"github.com/MeKo-Tech/cardscan/internal/store"
)

const (
	uploadField      = "card"
	defaultListLimit = 50
	maxListLimit     = 500
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Engine:  s.service.Engine().Name(),
		Store:   s.service.Store() != nil,
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// cardsHandler accepts uploads on POST and lists stored cards on GET.
func (s *Server) cardsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.uploadCardHandler(w, r)
	case http.MethodGet:
		s.listCardsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// uploadCardHandler runs a multipart card upload through intake.
func (s *Server) uploadCardHandler(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if statusForError(err) == http.StatusRequestEntityTooLarge {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.writeErrorResponse(w, "No card file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := s.service.Process(ctx, intake.Upload{Filename: header.Filename, Body: file})
	cardProcessingDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())
	if err != nil {
		cardRequestsTotal.WithLabelValues("upload", "error").Inc()
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}
	cardRequestsTotal.WithLabelValues("upload", "success").Inc()

	s.writeJSON(w, http.StatusCreated, CardResponse{
		Success: true,
		ID:      res.ID,
		Record:  res.Record,
		Result:  &res,
	})
}

// listCardsHandler returns stored cards, newest first.
func (s *Server) listCardsHandler(w http.ResponseWriter, r *http.Request) {
	st := s.service.Store()
	if st == nil {
		s.writeErrorResponse(w, "Card storage is disabled", http.StatusServiceUnavailable)
		return
	}

	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit < 1 {
		s.writeErrorResponse(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxListLimit)
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.writeErrorResponse(w, "Invalid offset", http.StatusBadRequest)
		return
	}

	cards, err := st.List(r.Context(), limit, offset)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if cards == nil {
		cards = []store.Card{}
	}
	s.writeJSON(w, http.StatusOK, CardListResponse{Cards: cards, Count: len(cards), Limit: limit, Offset: offset})
}

// cardHandler returns a single stored card.
func (s *Server) cardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := s.service.Store()
	if st == nil {
		s.writeErrorResponse(w, "Card storage is disabled", http.StatusServiceUnavailable)
		return
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		s.writeErrorResponse(w, "Invalid card id", http.StatusBadRequest)
		return
	}

	c, err := st.Get(r.Context(), uint(id))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, CardResponse{Success: true, ID: c.ID, Record: c.Record(), Card: &c})
}

// extractHandler runs the extractor on raw JSON fragments.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	rec, err := s.service.Extractor().ExtractRaw(ctx, r.Body)
	cardProcessingDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	if err != nil {
		cardRequestsTotal.WithLabelValues("extract", "error").Inc()
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}
	cardRequestsTotal.WithLabelValues("extract", "success").Inc()
	s.writeJSON(w, http.StatusOK, CardResponse{Success: true, Record: rec})
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeoutSec > 0 {
		return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	}
	return context.WithCancel(r.Context())
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	var invalid *card.InvalidInputError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &invalid), errors.Is(err, intake.ErrUnsupportedFile):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}
