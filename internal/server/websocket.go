package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/intake"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketCardRequest is a card processing request sent over WebSocket.
// Type "image" carries file bytes (base64 in JSON); type "fragments" carries
// raw OCR fragments.
type WebSocketCardRequest struct {
	Type      string          `json:"type"`
	Image     []byte          `json:"image,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	Fragments json.RawMessage `json:"fragments,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketCardResponse reports progress and results of a request.
type WebSocketCardResponse struct {
	Type      string  `json:"type"`
	Status    string  `json:"status"` // "processing", "completed", "error"
	Progress  float64 `json:"progress,omitempty"`
	Result    any     `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorType string  `json:"error_type,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

// cardWebSocketHandler handles WebSocket connections for interactive extraction.
func (s *Server) cardWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r, conn)
}

func (s *Server) handleWebSocketConnection(r *http.Request, conn *websocket.Conn) {
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024 * 2)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(r, conn, data)
		}
	}
}

// handleWebSocketMessage processes one request. Writes happen on the reading
// goroutine only, except for pings which gorilla allows concurrently.
func (s *Server) handleWebSocketMessage(r *http.Request, conn WebSocketConnWriter, data []byte) {
	var req WebSocketCardRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)
	s.sendWebSocketResponse(conn, WebSocketCardResponse{
		Type:      "card_response",
		Status:    "processing",
		RequestID: requestID,
	})

	switch req.Type {
	case "image":
		s.processWebSocketImage(r, conn, req, requestID)
	case "fragments":
		s.processWebSocketFragments(r, conn, req, requestID)
	default:
		s.sendWebSocketError(conn, requestID, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

func (s *Server) processWebSocketImage(r *http.Request, conn WebSocketConnWriter, req WebSocketCardRequest, requestID string) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	if req.Filename == "" {
		req.Filename = "card.png"
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := s.service.Process(ctx, intake.Upload{Filename: req.Filename, Body: bytes.NewReader(req.Image)})
	cardProcessingDuration.WithLabelValues("websocket_image").Observe(time.Since(start).Seconds())
	if err != nil {
		cardRequestsTotal.WithLabelValues("websocket_image", "error").Inc()
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
		return
	}
	cardRequestsTotal.WithLabelValues("websocket_image", "success").Inc()

	s.sendWebSocketResponse(conn, WebSocketCardResponse{
		Type:      "card_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    res,
		RequestID: requestID,
	})
}

func (s *Server) processWebSocketFragments(r *http.Request, conn WebSocketConnWriter, req WebSocketCardRequest, requestID string) {
	if len(req.Fragments) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No fragments provided")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	rec, err := s.service.Extractor().ExtractRaw(ctx, bytes.NewReader(req.Fragments))
	cardProcessingDuration.WithLabelValues("websocket_fragments").Observe(time.Since(start).Seconds())
	if err != nil {
		cardRequestsTotal.WithLabelValues("websocket_fragments", "error").Inc()
		s.sendWebSocketError(conn, requestID, "invalid_request", err.Error())
		return
	}
	cardRequestsTotal.WithLabelValues("websocket_fragments", "success").Inc()

	s.sendWebSocketResponse(conn, WebSocketCardResponse{
		Type:      "card_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    rec,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketCardResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketCardResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
