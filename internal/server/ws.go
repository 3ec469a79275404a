package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"price-monitor/internal/stream"
)

const (
	wsPingInterval = 45 * time.Second
	wsReadTimeout  = 90 * time.Second
	wsWriteTimeout = 10 * time.Second
)

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// handleWS streams hub messages to one client as JSON. A slow client loses
// messages instead of stalling the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	out := make(chan stream.Message, s.buffer)
	done := make(chan struct{})

	// forward from the hub subscription into the client buffer
	go func() {
		for {
			select {
			case msg, ok := <-sub.C():
				if !ok {
					close(out)
					return
				}
				select {
				case out <- msg:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	// writer
	go func() {
		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()
		for {
			select {
			case msg, ok := <-out:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(wsWriteTimeout))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			case <-done:
				return
			}
		}
	}()

	s.log.Debug().Str("subscriber", sub.ID).Msg("Websocket client connected")

	// reader: only keeps the deadline fresh and notices the close
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	s.log.Debug().Str("subscriber", sub.ID).Msg("Websocket client disconnected")
}
