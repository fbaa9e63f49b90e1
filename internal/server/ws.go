package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleWS streams hub updates to one client. A slow client only ever sees
// the newest update.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	id, updates := s.deps.Hub.Subscribe()
	defer s.deps.Hub.Unsubscribe(id)

	s.logger.Debug("websocket client connected", "id", id, "remote", r.RemoteAddr)

	// Drain reads so control frames are processed and a client close is seen.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			s.logger.Debug("websocket client disconnected", "id", id)
			return
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(time.Second),
				)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteJSON(u); err != nil {
				s.logger.Debug("websocket write failed", "id", id, "err", err)
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("websocket ping failed", "id", id, "err", err)
				return
			}
		}
	}
}
