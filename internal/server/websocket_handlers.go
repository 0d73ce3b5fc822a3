package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.corsOrigin == "*" || s.corsOrigin == "" || r.Header.Get("Origin") == "" ||
				r.Header.Get("Origin") == s.corsOrigin
		},
	}
}

// scanWebSocketHandler scans a stream of camera frames. Every binary message
// is an encoded image and is answered with one text message holding either
// a ScanResponse or an ErrorResponse.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn)
}

func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			case <-stop:
				return
			case <-s.done:
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		s.handleWebSocketMessage(conn, messageType, data)
	}
}

// handleWebSocketMessage answers one client message.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, messageType int, data []byte) {
	if messageType != websocket.BinaryMessage {
		scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketMessage(conn, ErrorResponse{ErrorMessage: "expected a binary image frame"})
		return
	}

	res, err := s.scanBytes(data)
	if err != nil {
		label := "error"
		var re *requestError
		if errors.As(err, &re) && re.status == http.StatusUnprocessableEntity {
			label = "not_found"
		}
		scanRequestsTotal.WithLabelValues("websocket", label).Inc()
		s.logger.Debug("websocket frame not decoded", "error", err)
		s.sendWebSocketMessage(conn, ErrorResponse{ErrorMessage: err.Error()})
		return
	}

	scanRequestsTotal.WithLabelValues("websocket", "success").Inc()
	s.sendWebSocketMessage(conn, scanResponse(res))
}

// sendWebSocketMessage sends v as a JSON text message.
func (s *Server) sendWebSocketMessage(conn WebSocketConnWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn("failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
