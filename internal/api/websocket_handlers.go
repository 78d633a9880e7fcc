package api

import (
	"net/http"

	"lockbox/internal/auth"
	"lockbox/internal/websocket"

	"go.uber.org/zap"
)

// ServeWsHandler upgrades to a websocket that receives the caller's events.
// Browsers cannot set headers on the handshake, so the token comes in the
// query string.
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, "token query parameter required", http.StatusUnauthorized)
		return
	}

	claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
	if err != nil {
		s.logger.Debug("ws connection attempt with invalid token", zap.Error(err))
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(s.wsHub, conn, claims.UserID)
	if !s.wsHub.Add(client) {
		conn.Close()
		return
	}

	go client.ReadPump()
	go client.WritePump()
}
