package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campuseats-dev/campuseats/pkg/metrics"
)

// Read-loop tuning. The backend pings on its own schedule; the deadline
// just bounds how long a dead connection lingers.
const (
	readDeadline = 90 * time.Second
	pongWait     = 90 * time.Second
)

// Socket consumes the backend's realtime notification stream and merges
// every event into a Feed.
type Socket struct {
	conn     *websocket.Conn
	feed     *Feed
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onStatus func(connected bool)
	done     chan struct{}
}

// SocketOption configures a Socket.
type SocketOption func(*Socket)

// WithSocketLogger sets the logger. Defaults to slog.Default().
func WithSocketLogger(logger *slog.Logger) SocketOption {
	return func(s *Socket) {
		s.logger = logger
	}
}

// WithSocketMetrics attaches the metrics bundle.
func WithSocketMetrics(m *metrics.Metrics) SocketOption {
	return func(s *Socket) {
		s.metrics = m
	}
}

// OnStatus sets a callback for connect/disconnect transitions.
func OnStatus(fn func(connected bool)) SocketOption {
	return func(s *Socket) {
		s.onStatus = fn
	}
}

// Dial connects to the realtime channel, authenticating with the bearer
// token as a query parameter (the backend's contract), and starts the
// read loop. The caller owns the returned Socket and must Close it.
func Dial(ctx context.Context, wsURL, token string, feed *Feed, opts ...SocketOption) (*Socket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	s := &Socket{
		conn:   conn,
		feed:   feed,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if s.onStatus != nil {
		s.onStatus(true)
	}
	go s.readLoop()
	return s, nil
}

// Close shuts the connection down. The read loop exits and the status
// callback fires once with connected=false.
func (s *Socket) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}

// readLoop reads messages until the connection dies. Malformed frames are
// logged and skipped; the stream is opaque JSON and the backend may add
// event types the client doesn't know.
func (s *Socket) readLoop() {
	defer close(s.done)
	defer func() {
		if s.onStatus != nil {
			s.onStatus(false)
		}
	}()

	for {
		s.conn.SetReadDeadline(time.Now().Add(readDeadline))

		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logger.Warn("notify: read error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn("notify: malformed message", "error", err)
			continue
		}

		s.metrics.IncSocketMessage()
		s.feed.Push(msg)
	}
}
