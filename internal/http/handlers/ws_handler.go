package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/case-conductor/backend/internal/auth"
	"github.com/case-conductor/backend/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WSHub fans test execution events out to websocket clients. It either
// relays a broker subscription or, without a broker, is itself the
// services' publisher.
type WSHub struct {
	secret     string
	subscriber events.Subscriber
	log        *zap.Logger
	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
}

const (
	// wsSendBuffer is how many events a client may lag behind before it
	// is disconnected.
	wsSendBuffer = 32
	wsWriteWait  = 10 * time.Second
)

// wsConn is the part of a websocket connection the hub writes through.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// wsClient owns one connection. Only its writer goroutine writes to conn;
// publishers hand events over through send and never block on the peer.
type wsClient struct {
	conn wsConn
	sub  subscription
	send chan []byte
	done chan struct{}
}

// subscription narrows the feed of one connection. Zero filters receive
// every event.
type subscription struct {
	userID uuid.UUID
	runID  string
	cycle  string
}

// matches reports whether event concerns the followed run or cycle.
// Events without the filtered key are dropped for filtered clients.
func (s subscription) matches(event events.Event) bool {
	if s.runID != "" && fmt.Sprint(event.Payload["run_id"]) != s.runID {
		return false
	}
	if s.cycle != "" && fmt.Sprint(event.Payload["cycle_id"]) != s.cycle {
		return false
	}
	return true
}

func NewWSHub(secret string, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		secret:     secret,
		subscriber: subscriber,
		log:        log,
		clients:    make(map[*wsClient]struct{}),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	if h.subscriber == nil {
		return nil
	}
	return h.subscriber.Subscribe(ctx, events.StreamTestExecution, h.broadcast)
}

// Publish delivers event to the connected clients directly.
func (h *WSHub) Publish(_ context.Context, stream string, event events.Event) error {
	if stream != events.StreamTestExecution {
		return fmt.Errorf("unknown stream %s", stream)
	}
	h.broadcast(event.Stamped())
	return nil
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.String("type", event.Type), zap.Error(err))
		return
	}

	var lagging []*wsClient
	h.mu.RLock()
	for cl := range h.clients {
		if !cl.sub.matches(event) {
			continue
		}
		select {
		case cl.send <- data:
		default:
			lagging = append(lagging, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range lagging {
		h.log.Warn("ws client too slow, disconnecting", zap.String("user_id", cl.sub.userID.String()))
		h.evict(cl)
	}
}

// register adds conn to the feed and starts its writer.
func (h *WSHub) register(conn wsConn, sub subscription) *wsClient {
	cl := &wsClient{
		conn: conn,
		sub:  sub,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	go h.writeLoop(cl)
	return cl
}

// evict removes cl and closes its connection. Safe to call repeatedly.
func (h *WSHub) evict(cl *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	if ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
	if ok {
		_ = cl.conn.Close()
	}
}

func (h *WSHub) writeLoop(cl *wsClient) {
	defer close(cl.done)
	for data := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed", zap.String("user_id", cl.sub.userID.String()), zap.Error(err))
			h.evict(cl)
			return
		}
	}
}

// Clients returns the number of open connections.
func (h *WSHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleWS serves /ws?token=...[&testRunId=...][&testCycleId=...].
func (h *WSHub) HandleWS(conn *websocket.Conn) {
	defer conn.Close()

	// Browsers cannot set headers on the upgrade request
	claims, err := auth.ParseJWT(h.secret, conn.Query("token"))
	if err != nil {
		_ = conn.WriteJSON(fiber.Map{"error": "missing or invalid token"})
		return
	}

	sub := subscription{userID: claims.UserID}
	for key, dst := range map[string]*string{"testRunId": &sub.runID, "testCycleId": &sub.cycle} {
		v := conn.Query(key)
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": "invalid " + key})
			return
		}
		*dst = id.String()
	}

	cl := h.register(conn, sub)
	h.log.Debug("ws connected", zap.String("user_id", sub.userID.String()), zap.String("run_id", sub.runID))

	// The connection is released when this handler returns, so the writer
	// must have stopped by then.
	defer func() {
		h.evict(cl)
		<-cl.done
	}()

	// Drain client frames until the peer goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
