package httpgateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/rosterhub-backend/internal/center"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

const (
	streamPath     = notificationsPath + "/stream"
	pongWait       = 90 * time.Second
	closeWriteWait = time.Second
)

// Stream is the websocket Channel for the client's owner. Each Subscribe opens its own
// connection; Close tears down any still open.
type Stream struct {
	client *Client
	dialer *websocket.Dialer
	logg   *logger.Logger

	mu    sync.Mutex
	conns map[*streamSubscription]struct{}
}

var _ center.Channel = (*Stream)(nil)

// NewStream builds a Channel over the client's base URL and token.
func NewStream(client *Client, logg *logger.Logger) *Stream {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Stream{
		client: client,
		dialer: websocket.DefaultDialer,
		logg:   logg,
		conns:  make(map[*streamSubscription]struct{}),
	}
}

func (s *Stream) Subscribe(ctx context.Context, onInsert func(notifications.Item)) (realtime.Subscription, error) {
	if onInsert == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback required")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.client.token)
	conn, resp, err := s.dialer.DialContext(ctx, websocketURL(s.client.baseURL)+streamPath, header)
	if err != nil {
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= http.StatusBadRequest {
				return nil, decodeError(resp)
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dial notification stream")
	}

	sub := &streamSubscription{stream: s, conn: conn, done: make(chan struct{})}
	s.mu.Lock()
	s.conns[sub] = struct{}{}
	s.mu.Unlock()

	go sub.read(onInsert)
	return sub, nil
}

// Close ends every open subscription.
func (s *Stream) Close() error {
	s.mu.Lock()
	subs := make([]*streamSubscription, 0, len(s.conns))
	for sub := range s.conns {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return nil
}

type streamSubscription struct {
	stream *Stream
	conn   *websocket.Conn
	once   sync.Once
	done   chan struct{}
}

func (s *streamSubscription) Unsubscribe() {
	s.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		_ = s.conn.Close()
		s.stream.mu.Lock()
		delete(s.stream.conns, s)
		s.stream.mu.Unlock()
	})
}

func (s *streamSubscription) read(onInsert func(notifications.Item)) {
	defer close(s.done)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPingHandler(func(data string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(closeWriteWait))
	})

	for {
		var event realtime.Event
		if err := s.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.stream.logg.Warn(s.stream.logg.WithField(context.Background(), "error", err.Error()), "notification stream dropped")
			}
			s.Unsubscribe()
			return
		}
		if event.Type != realtime.EventInserted {
			continue
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		onInsert(event.Data)
	}
}

func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
