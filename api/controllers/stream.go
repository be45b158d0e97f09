package controllers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/rosterhub-backend/api/responses"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	defaultPing    = 30 * time.Second
	defaultBuffer  = 32
	readLimitBytes = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NotificationStream upgrades to a websocket and pushes every notification inserted for
// the caller while the connection is open. A client that falls SendBuffer events behind
// is disconnected and is expected to refresh.
func NotificationStream(cfg config.RealtimeConfig, subscriber realtime.Subscriber, logg *logger.Logger) http.HandlerFunc {
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = defaultPing
	}
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := requireOwner(w, r, subscriber != nil, logg)
		if !ok {
			return
		}

		send := make(chan realtime.Event, buffer)
		overflow := make(chan struct{})
		var once sync.Once
		sub, err := subscriber.Subscribe(ownerID, func(item notifications.Item) {
			select {
			case send <- realtime.Event{Type: realtime.EventInserted, Data: item}:
			default:
				once.Do(func() { close(overflow) })
			}
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer sub.Unsubscribe()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied to the client.
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "notification stream upgrade failed")
			return
		}
		defer conn.Close()

		ctx := logg.WithUserID(r.Context(), ownerID)
		logg.Debug(ctx, "notification stream opened")

		closed := make(chan struct{})
		go readPump(conn, ping, closed)

		ticker := time.NewTicker(ping)
		defer ticker.Stop()

		for {
			select {
			case event := <-send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(event); err != nil {
					logg.Debug(ctx, "notification stream write failed")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-overflow:
				logg.Warn(ctx, "notification stream client too slow, closing")
				closeWith(conn, websocket.ClosePolicyViolation, "send buffer full")
				return
			case <-closed:
				logg.Debug(ctx, "notification stream closed by client")
				return
			case <-r.Context().Done():
				closeWith(conn, websocket.CloseGoingAway, "server shutting down")
				return
			}
		}
	}
}

// readPump drains control frames so pongs extend the read deadline.
func readPump(conn *websocket.Conn, ping time.Duration, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(readLimitBytes)
	_ = conn.SetReadDeadline(time.Now().Add(2 * ping))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * ping))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
