package api

import (
	"net/http"

	"lite-drive/internal/auth"
	"lite-drive/internal/websocket"
)

// ServeWsHandler upgrades the connection and subscribes it to the file
// events of the token's user. Browsers cannot set headers on a websocket
// handshake, so the token comes from the query string or the login cookie.
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		if cookie, err := r.Cookie(accessTokenCookie); err == nil {
			tokenString = cookie.Value
		}
	}
	if tokenString == "" {
		s.logger.Debug("websocket connection attempt without token", "ip", clientIP(r))
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
	if err != nil {
		s.logger.Debug("websocket connection attempt with invalid token", "ip", clientIP(r), "error", err)
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(s.wsHub, conn, claims.UserID)
	if !s.wsHub.Attach(client) {
		conn.Close()
		return
	}

	go client.ReadPump()
	go client.WritePump()
}
