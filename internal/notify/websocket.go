package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/scry-classroom/internal/config"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service/auth"
)

const maxClientMessageBytes = 512

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error)
}

// WebSocketHandler upgrades authenticated requests to websocket connections
// that receive the caller's events as JSON text frames.
type WebSocketHandler struct {
	hub          *Hub
	tokens       TokenValidator
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pongWait     time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewWebSocketHandler creates the handler.
func NewWebSocketHandler(hub *Hub, tokens TokenValidator, cfg config.NotifyConfig, logger *slog.Logger) *WebSocketHandler {
	if hub == nil {
		panic("hub cannot be nil")
	}
	if tokens == nil {
		panic("tokens cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	write := cfg.WriteTimeout
	if write <= 0 {
		write = 10 * time.Second
	}
	return &WebSocketHandler{
		hub:          hub,
		tokens:       tokens,
		upgrader:     websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		pingInterval: ping,
		pongWait:     2 * ping,
		writeTimeout: write,
		logger:       logger.With(slog.String("component", "websocket_handler")),
	}
}

// ServeHTTP implements http.Handler.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		log.Debug("websocket authentication failed", slog.String("error", err.Error()))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := h.hub.Register(claims.UserID)
	log.Info("websocket connected", slog.String("user_id", claims.UserID.String()))

	go h.writePump(ws, conn, log)
	h.readPump(ws, conn)
	log.Info("websocket disconnected", slog.String("user_id", claims.UserID.String()))
}

// readPump discards client messages and returns when the peer goes away.
func (h *WebSocketHandler) readPump(ws *websocket.Conn, conn *Conn) {
	defer func() {
		h.hub.Unregister(conn)
		_ = ws.Close()
	}()

	ws.SetReadLimit(maxClientMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) writePump(ws *websocket.Conn, conn *Conn, log *slog.Logger) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case ev, ok := <-conn.Events():
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteJSON(ev); err != nil {
				log.Debug("websocket write failed", slog.String("error", err.Error()))
				h.hub.Unregister(conn)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Unregister(conn)
				return
			}
		}
	}
}

// bearerToken reads the token from the Authorization header, falling back to
// the access_token query parameter that browsers must use for websockets.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
