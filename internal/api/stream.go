package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linchengweiii/crypto-dashboard/internal/stream"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served to local browsers on any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamHandler upgrades to a WebSocket, sends the current market and
// portfolio state, then forwards every published event.
func streamHandler(svc Service, events Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		id, ch, cancel := events.Subscribe()
		defer cancel()
		log := slog.With("subscriber", id)
		log.Debug("stream opened")

		// Reader: handles pongs and notices the client going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			conn.SetReadLimit(512)
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(e stream.Event) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				log.Debug("stream write failed", "error", err)
				return false
			}
			return true
		}

		if !send(stream.Event{Type: stream.EventMarket, At: time.Now(), Data: svc.Market("")}) {
			return
		}
		if pv, err := svc.Portfolio(r.Context()); err == nil {
			if !send(stream.Event{Type: stream.EventPortfolio, At: time.Now(), Data: pv}) {
				return
			}
		} else {
			send(stream.Event{Type: stream.EventError, At: time.Now(), Message: err.Error()})
		}

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-closed:
				log.Debug("stream closed by client")
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				if !send(e) {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
