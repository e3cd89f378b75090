package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"concord/internal/cache"
	"concord/internal/domain"
	"concord/internal/event"
	"concord/internal/observability/metrics"
	"concord/internal/service"
)

const (
	// Outbound queue depth. A slow client sheds its oldest payloads rather
	// than backing up the pub/sub reader.
	queueDepth = 10

	pingInterval  = 60 * time.Second
	pongGrace     = 50 * time.Second
	heartbeatPoll = 10 * time.Second
	writeWait     = 10 * time.Second

	maxFrameSize = 1 << 16
)

// session is one open socket: a reader, a writer, a heartbeat and a fan-out
// task, torn down together when any of them fails.
type session struct {
	gw   *Gateway
	conn *websocket.Conn
	user *domain.User

	// sub is read only by the fan-out task; the reader takes the mutex
	// briefly to change the topic set.
	subMu  sync.Mutex
	sub    *cache.Subscription
	topics map[string]struct{}

	queue    chan []byte
	lastSeen atomic.Int64

	closeOnce sync.Once
	cancel    context.CancelFunc
}

func newSession(gw *Gateway, conn *websocket.Conn, user *domain.User) *session {
	return &session{
		gw:     gw,
		conn:   conn,
		user:   user,
		topics: make(map[string]struct{}),
		queue:  make(chan []byte, queueDepth),
	}
}

// run blocks until the socket closes.
func (s *session) run(parent context.Context, initialTopics []string) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	s.cancel = cancel
	s.sub = s.gw.pubsub.Subscribe(ctx)
	s.lastSeen.Store(time.Now().UnixNano())

	defer func() {
		s.close()
		metrics.SocketConnections.Dec()
		s.gw.connections.Add(-1)
	}()

	for _, topic := range initialTopics {
		if err := s.sub.Add(ctx, topic); err == nil {
			s.topics[topic] = struct{}{}
		}
	}

	go s.writePump(ctx)
	go s.fanout(ctx)
	go s.heartbeat(ctx)
	s.readPump(ctx)
}

// close transitions the socket to its terminal state exactly once: all
// tasks cancelled, all topics dropped.
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.subMu.Lock()
		_ = s.sub.Close()
		s.subMu.Unlock()
		_ = s.conn.Close()
	})
}

// enqueue never blocks. On overflow the oldest queued payload is replaced
// by a slow-client notice and the new payload is shed.
func (s *session) enqueue(payload []byte) {
	select {
	case s.queue <- payload:
		return
	default:
	}
	metrics.SocketDroppedTotal.Inc()
	select {
	case <-s.queue:
	default:
	}
	slow, _ := json.Marshal(event.NewError("slow client"))
	select {
	case s.queue <- slow:
	default:
	}
}

func (s *session) sendEvent(env event.Envelope) {
	buf, err := json.Marshal(env)
	if err != nil {
		return
	}
	metrics.SocketEventsTotal.WithLabelValues(env.Event, "out").Inc()
	s.enqueue(buf)
}

func (s *session) readPump(ctx context.Context) {
	defer s.close()
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetPongHandler(func(string) error {
		s.lastSeen.Store(time.Now().UnixNano())
		return nil
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.lastSeen.Store(time.Now().UnixNano())

		var env event.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendEvent(event.NewError("malformed frame"))
			continue
		}
		metrics.SocketEventsTotal.WithLabelValues(env.Event, "in").Inc()
		s.dispatch(ctx, env)
	}
}

func (s *session) writePump(ctx context.Context) {
	defer s.close()
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-s.queue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// heartbeat pings every minute and polls for liveness every ten seconds.
// Five polls past the grace window with no traffic from the peer closes
// the socket.
func (s *session) heartbeat(ctx context.Context) {
	defer s.close()
	poll := time.NewTicker(heartbeatPoll)
	ping := time.NewTicker(pingInterval)
	defer poll.Stop()
	defer ping.Stop()

	misses := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			idle := time.Since(time.Unix(0, s.lastSeen.Load()))
			if idle > pongGrace {
				misses++
				if misses >= 5 {
					return
				}
			} else {
				misses = 0
			}
		}
	}
}

// fanout drains the pub/sub subscription into the outbound queue.
func (s *session) fanout(ctx context.Context) {
	defer s.close()
	events := s.sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			s.enqueue([]byte(msg.Payload))
		}
	}
}

func (s *session) dispatch(ctx context.Context, env event.Envelope) {
	switch env.Event {
	case event.MessageSend:
		var in event.SendEntity
		if err := json.Unmarshal(env.Entity, &in); err != nil {
			s.sendEvent(event.NewError("malformed entity"))
			return
		}
		if _, err := s.gw.msgs.Send(ctx, s.user.ID, in.ChannelUUID, in.Text, in.ReplyTo); err != nil {
			s.reportError(err)
		}
	case event.MessageEdit:
		var in event.EditEntity
		if err := json.Unmarshal(env.Entity, &in); err != nil {
			s.sendEvent(event.NewError("malformed entity"))
			return
		}
		if err := s.gw.msgs.Edit(ctx, s.user.ID, in.ChannelUUID, in.UUID, in.Text); err != nil {
			s.reportError(err)
		}
	case event.MessageDelete:
		var in event.DeleteEntity
		if err := json.Unmarshal(env.Entity, &in); err != nil {
			s.sendEvent(event.NewError("malformed entity"))
			return
		}
		if err := s.gw.msgs.Delete(ctx, s.user.ID, in.ChannelUUID, in.UUID); err != nil {
			s.reportError(err)
		}
	case event.ChannelSubscribe:
		s.subscribe(ctx, env.Entity)
	case event.ChannelUnsubscribe:
		s.unsubscribe(ctx, env.Entity)
	default:
		s.sendEvent(event.NewError("unknown event"))
	}
}

// reportError turns a domain failure into an Error frame on this socket.
// Author-mismatch failures already went out on the channel topic.
func (s *session) reportError(err error) {
	if errors.Is(err, service.ErrNotAllowed) {
		return
	}
	s.gw.log.Debug("socket event rejected",
		slog.String("user_id", s.user.ID.String()), slog.String("error", err.Error()))
	s.sendEvent(event.NewError(err.Error()))
}

func (s *session) subscribe(ctx context.Context, entity json.RawMessage) {
	var raw string
	if err := json.Unmarshal(entity, &raw); err != nil {
		s.sendEvent(event.NewError("malformed entity"))
		return
	}
	channelID, err := uuid.Parse(raw)
	if err != nil {
		s.sendEvent(event.NewError("malformed channel uuid"))
		return
	}
	topic := channelID.String()

	s.subMu.Lock()
	_, already := s.topics[topic]
	s.subMu.Unlock()
	if already {
		return
	}
	if err := s.gw.perms.CheckChannelAccess(ctx, s.user.ID, channelID); err != nil {
		s.reportError(err)
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.topics[topic]; ok {
		return
	}
	if err := s.sub.Add(ctx, topic); err != nil {
		s.gw.log.Error("topic subscribe failed", slog.String("topic", topic), slog.String("error", err.Error()))
		return
	}
	s.topics[topic] = struct{}{}
}

func (s *session) unsubscribe(ctx context.Context, entity json.RawMessage) {
	var raw string
	if err := json.Unmarshal(entity, &raw); err != nil {
		s.sendEvent(event.NewError("malformed entity"))
		return
	}
	channelID, err := uuid.Parse(raw)
	if err != nil {
		s.sendEvent(event.NewError("malformed channel uuid"))
		return
	}
	topic := channelID.String()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.topics[topic]; !ok {
		return
	}
	if err := s.sub.Remove(ctx, topic); err != nil {
		return
	}
	delete(s.topics, topic)
}
