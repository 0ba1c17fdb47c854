package httpserver

import (
	"net/http"
	"time"

	"github.com/blackmichael/karma-feed/internal/leaderboard"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// handleLeaderboardStream upgrades to a WebSocket, sends the current
// leaderboard snapshot and then every new one until the peer goes away.
func (s *Server) handleLeaderboardStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	updates := s.board.Subscribe()
	defer s.board.Unsubscribe(updates)

	s.logger.Info("leaderboard stream opened", "remote_addr", r.RemoteAddr)

	// The peer never sends data; reading only drives pong and close
	// handling.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeSnapshot(conn, s.board.Snapshot()); err != nil {
		s.logger.Warn("leaderboard stream write failed", "error", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			s.logger.Info("leaderboard stream closed", "remote_addr", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshot(conn, snap); err != nil {
				s.logger.Warn("leaderboard stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap leaderboard.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
