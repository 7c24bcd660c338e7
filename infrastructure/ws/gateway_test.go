package ws

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/runtime"
	"chat-relay/sink"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// tokenVerifier accepts "token-<uuid>" credentials.
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, credential string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimPrefix(credential, "token-"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", errors.ErrAuthentication, err)
	}
	return id, nil
}

type harness struct {
	server      *httptest.Server
	coordinator *runtime.Coordinator
	store       *mocks.MockMessageStore
}

func newHarness(t *testing.T, options Options) *harness {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	store := mocks.NewMockMessageStore(gomock.NewController(t))
	coordinator := runtime.NewCoordinator(log, store, nil, runtime.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = coordinator.Run(ctx)
		close(stopped)
	}()

	gateway := NewGateway(log, coordinator, tokenVerifier{}, options)
	router := chi.NewRouter()
	router.Get("/api/ws/{user_id}/{room_id}", gateway.HandleWS)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-stopped
	})
	return &harness{server: server, coordinator: coordinator, store: store}
}

func (h *harness) dial(t *testing.T, userID, roomID uuid.UUID, credential string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + fmt.Sprintf("/api/ws/%s/%s", userID, roomID)
	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func (h *harness) waitSessions(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, err := h.coordinator.Snapshot(context.Background())
		return err == nil && s.Sessions == n
	}, 2*time.Second, 10*time.Millisecond)
}

func defaultOptions() Options {
	return Options{SinkBufferSize: 16, Overflow: sink.DropNewest, MaxFrameBytes: 1024, WriteTimeout: time.Second}
}

func TestGateway_Rejects_Before_Upgrade(t *testing.T) {
	h := newHarness(t, defaultOptions())
	alice, room := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		pathUser   string
		pathRoom   string
		credential string
		status     int
	}{
		{"missing credential", alice.String(), room.String(), "", http.StatusUnauthorized},
		{"invalid credential", alice.String(), room.String(), "garbage", http.StatusUnauthorized},
		{"subject mismatch", uuid.NewString(), room.String(), "token-" + alice.String(), http.StatusForbidden},
		{"invalid room id", alice.String(), "lobby", "token-" + alice.String(), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/ws/" + tt.pathUser + "/" + tt.pathRoom
			header := http.Header{}
			if tt.credential != "" {
				header.Set("Authorization", "Bearer "+tt.credential)
			}

			conn, resp, err := websocket.DefaultDialer.Dial(url, header)

			req.ErrorIs(err, websocket.ErrBadHandshake)
			req.Nil(conn)
			req.Equal(tt.status, resp.StatusCode)
		})
	}

	// Then the coordinator never saw a session
	s, err := h.coordinator.Snapshot(context.Background())
	require.NoError(t, err)
	require.Zero(t, s.Sessions)
}

func TestGateway_Broadcasts_To_The_Room(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultOptions())
	alice, bob, room := uuid.New(), uuid.New(), uuid.New()

	h.store.EXPECT().InsertMessage(gomock.Any(), room, alice, "hello").
		DoAndReturn(func(_ context.Context, roomID, userID uuid.UUID, content string) (domain.Message, error) {
			return domain.Message{ID: uuid.New(), RoomID: roomID, UserID: userID, Content: content, CreatedAt: time.Now().UTC()}, nil
		}).Times(1)

	// Given A and B connected, B through the query parameter
	aliceConn, _, err := h.dial(t, alice, room, "token-"+alice.String())
	req.NoError(err)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + fmt.Sprintf("/api/ws/%s/%s?access_token=token-%s", bob, room, bob)
	bobConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	defer func() { _ = bobConn.Close() }()
	h.waitSessions(t, 2)

	// When A sends a text frame
	req.NoError(aliceConn.WriteMessage(websocket.TextMessage, []byte("hello")))

	// Then both receive the stored record
	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
		messageType, data, err := conn.ReadMessage()
		req.NoError(err)
		req.Equal(websocket.TextMessage, messageType)

		var m domain.Message
		req.NoError(json.Unmarshal(data, &m))
		req.Equal("hello", m.Content)
		req.Equal(alice, m.UserID)
		req.Equal(room, m.RoomID)
	}
}

func TestGateway_Binary_Frame_Closes_The_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultOptions())
	alice, room := uuid.New(), uuid.New()

	conn, _, err := h.dial(t, alice, room, "token-"+alice.String())
	req.NoError(err)
	h.waitSessions(t, 1)

	// When a binary frame is sent
	req.NoError(conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))

	// Then the server closes with "unsupported data"
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseUnsupportedData), "got %v", err)

	// And the session is gone
	h.waitSessions(t, 0)
}

func TestGateway_Invalid_UTF8_Text_Frame_Closes_The_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultOptions())
	alice, room := uuid.New(), uuid.New()

	conn, _, err := h.dial(t, alice, room, "token-"+alice.String())
	req.NoError(err)
	h.waitSessions(t, 1)

	// When a text frame carries a byte that isn't UTF-8
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte{'h', 0xff, 'i'}))

	// Then the server closes with "invalid payload data" and nothing reaches the store
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseInvalidFramePayloadData), "got %v", err)
	h.waitSessions(t, 0)
}

func TestGateway_Client_Close_Disconnects(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultOptions())
	alice, room := uuid.New(), uuid.New()

	conn, _, err := h.dial(t, alice, room, "token-"+alice.String())
	req.NoError(err)
	h.waitSessions(t, 1)

	req.NoError(conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second)))
	req.NoError(conn.Close())

	h.waitSessions(t, 0)
}

func TestGateway_Reconnect_Closes_The_Previous_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultOptions())
	alice, room := uuid.New(), uuid.New()

	first, _, err := h.dial(t, alice, room, "token-"+alice.String())
	req.NoError(err)
	h.waitSessions(t, 1)

	// When the same user connects again
	_, _, err = h.dial(t, alice, room, "token-"+alice.String())
	req.NoError(err)

	// Then the first connection is closed normally
	req.NoError(first.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err = first.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	// And the second session survives the late cleanup of the first one
	time.Sleep(50 * time.Millisecond)
	h.waitSessions(t, 1)
}

func TestGateway_Oversized_Frame_Closes_The_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultOptions())
	alice, room := uuid.New(), uuid.New()

	conn, _, err := h.dial(t, alice, room, "token-"+alice.String())
	req.NoError(err)
	h.waitSessions(t, 1)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 4096))))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseMessageTooBig), "got %v", err)
	h.waitSessions(t, 0)
}
