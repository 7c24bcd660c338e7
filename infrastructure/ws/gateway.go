package ws

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/sink"
	"context"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	stderrors "errors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const disconnectTimeout = 5 * time.Second

type Options struct {
	SinkBufferSize int
	Overflow       sink.OverflowPolicy
	MaxFrameBytes  int64
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// Gateway turns an authenticated websocket connection into a coordinator session.
// The reader submits every text frame, a writer goroutine drains the connection outbox.
type Gateway struct {
	log         *slog.Logger
	coordinator contract.ICoordinator
	verifier    contract.IdentityVerifier
	upgrader    websocket.Upgrader
	options     Options
}

func NewGateway(log *slog.Logger, coordinator contract.ICoordinator, verifier contract.IdentityVerifier, options Options) *Gateway {
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = 10 * time.Second
	}
	return &Gateway{
		log:         log,
		coordinator: coordinator,
		verifier:    verifier,
		options:     options,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS serves GET /api/ws/{user_id}/{room_id}.
// The credential is verified before the upgrade, a rejected attempt never reaches the coordinator.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, err := g.verifier.Verify(r.Context(), auth.ExtractCredential(r))
	if err != nil {
		g.log.Debug("Websocket authentication refused", "remote", r.RemoteAddr, "error", err)
		http.Error(w, errors.ErrAuthentication.Error(), http.StatusUnauthorized)
		return
	}
	pathUserID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if pathUserID != userID {
		http.Error(w, "user id does not match the token", http.StatusForbidden)
		return
	}
	roomID, err := uuid.Parse(chi.URLParam(r, "room_id"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the client
		g.log.Warn("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := r.Context()
	outbox := sink.NewOutbox(g.options.SinkBufferSize, g.options.Overflow)
	if err := g.coordinator.Connect(ctx, userID, roomID, outbox); err != nil {
		g.log.Warn("Connection refused by the coordinator", "user_id", userID, "room_id", roomID, "error", err)
		g.closeWith(conn, websocket.CloseTryAgainLater, err.Error())
		return
	}
	g.log.Info("Websocket connected", "user_id", userID, "room_id", roomID)

	writerDone := make(chan struct{})
	go g.writeLoop(conn, outbox, writerDone)

	g.readLoop(ctx, conn, userID, roomID)

	// Disconnect matches this outbox, so it can't remove a session that replaced this one
	disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()
	if err := g.coordinator.Disconnect(disconnectCtx, userID, roomID, outbox); err != nil {
		g.log.Warn("Disconnect failed", "user_id", userID, "room_id", roomID, "error", err)
	}
	outbox.Close()
	<-writerDone
	g.log.Info("Websocket disconnected", "user_id", userID, "room_id", roomID, "dropped", outbox.Dropped())
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, userID, roomID uuid.UUID) {
	if g.options.MaxFrameBytes > 0 {
		conn.SetReadLimit(g.options.MaxFrameBytes)
	}
	if g.options.PingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * g.options.PingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * g.options.PingInterval))
		})
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				g.log.Debug("Websocket read ended", "user_id", userID, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			g.log.Warn("Protocol violation, binary frame received", "user_id", userID, "room_id", roomID)
			g.closeWith(conn, websocket.CloseUnsupportedData, errors.ErrProtocolViolation.Error())
			return
		}
		// Text frames must carry UTF-8, the library leaves that check to us
		if !utf8.Valid(data) {
			g.log.Warn("Protocol violation, invalid UTF-8 text frame", "user_id", userID, "room_id", roomID)
			g.closeWith(conn, websocket.CloseInvalidFramePayloadData, errors.ErrProtocolViolation.Error())
			return
		}
		if err := g.coordinator.Submit(ctx, domain.ClientMessage{
			UserID:  userID,
			RoomID:  roomID,
			Content: string(data),
		}); err != nil {
			if !stderrors.Is(err, context.Canceled) {
				g.log.Warn("Message not submitted", "user_id", userID, "error", err)
			}
			g.closeWith(conn, websocket.CloseGoingAway, err.Error())
			return
		}
	}
}

// writeLoop is the only goroutine writing data frames on the connection.
// Once the outbox closes (eviction, overflow, shutdown or reader exit) it closes the connection,
// which also ends the read loop.
func (g *Gateway) writeLoop(conn *websocket.Conn, outbox *sink.Outbox, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if g.options.PingInterval > 0 {
		ticker := time.NewTicker(g.options.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case payload := <-outbox.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(g.options.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				g.log.Debug("Websocket write failed", "error", err)
				outbox.Close()
				_ = conn.Close()
				return
			}
		case <-tick:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(g.options.WriteTimeout)); err != nil {
				outbox.Close()
				_ = conn.Close()
				return
			}
		case <-outbox.Done():
			if outbox.Overflowed() {
				g.closeWith(conn, websocket.CloseTryAgainLater, errors.ErrSinkFull.Error())
			} else {
				g.closeWith(conn, websocket.CloseNormalClosure, "")
			}
			_ = conn.Close()
			return
		}
	}
}

func (g *Gateway) closeWith(conn *websocket.Conn, code int, text string) {
	message := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(g.options.WriteTimeout))
}
