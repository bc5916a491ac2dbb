package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// The daemon binds to loopback; any local UI may subscribe.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StateFeed streams session snapshots over a websocket. One message per
// published snapshot; slow readers see coalesced state, never a backlog.
func (h Handlers) StateFeed(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		snapshots, cancel := h.Session.Watch()
		defer cancel()

		// Drain reads so close frames and pongs are processed. Client
		// messages carry no meaning on this feed.
		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// Current state first so a fresh UI renders immediately.
		if err := writeSnapshot(conn, h.Session.Snapshot()); err != nil {
			return
		}

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case <-readerDone:
				return
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				if err := writeSnapshot(conn, snap); err != nil {
					return
				}
			case <-ping.C:
				deadline := time.Now().Add(wsWriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}
