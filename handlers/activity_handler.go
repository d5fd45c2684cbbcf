package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"societyAdminAPI/internal/audit"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// ActivityHandler streams audit entries to the console as they are recorded.
type ActivityHandler struct {
	feed     *audit.Feed
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewActivityHandler(feed *audit.Feed, allowedOrigins []string, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		logger: orNop(logger),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if a == "*" || a == origin || a == u.Host {
				return true
			}
		}
		return false
	}
}

func (h *ActivityHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("activity stream upgrade failed", zap.Error(err))
		return
	}

	entries, unsubscribe := h.feed.Subscribe()
	done := make(chan struct{})

	go h.readPump(conn, done)
	h.writePump(conn, entries, done)

	unsubscribe()
	conn.Close()
}

// readPump only services control frames; the stream is one-way.
func (h *ActivityHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ActivityHandler) writePump(conn *websocket.Conn, entries <-chan audit.Entry, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e, ok := <-entries:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Debug("activity stream write failed", zap.Error(err))
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
