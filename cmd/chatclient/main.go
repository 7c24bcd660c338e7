package main

import (
	"bufio"
	"chat-relay/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Token         string `env:"CHAT_TOKEN,required=true"`
	UserID        string `env:"CHAT_USER_ID,required=true"`
	RoomID        string `env:"CHAT_ROOM_ID,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

// inbound covers every frame the server pushes, messages carry no type.
type inbound struct {
	Type      domain.FrameType     `json:"type"`
	Event     domain.PresenceEvent `json:"event"`
	UserID    string               `json:"user_id"`
	Content   string               `json:"content"`
	Reason    string               `json:"reason"`
	CreatedAt time.Time            `json:"created_at"`
	At        time.Time            `json:"at"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run dials the room, prints what the server pushes and sends every stdin line as a message.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoint := url.URL{
		Scheme: "ws",
		Host:   config.ServerAddress,
		Path:   fmt.Sprintf("/api/ws/%s/%s", config.UserID, config.RoomID),
	}
	header := http.Header{"Authorization": []string{"Bearer " + config.Token}}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return exitRuntime, fmt.Errorf("could not join %s: %s", endpoint.String(), resp.Status)
		}
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(
		fmt.Sprintf(">>> Connected to room %s (Ctrl+C to quit)", config.RoomID)))

	readErr := make(chan error, 1)
	go func() { readErr <- receive(conn) }()
	go send(ctx, conn)

	select {
	case <-ctx.Done():
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return exitOK, nil
	case err := <-readErr:
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
			log.Info("Server closed the session", "reason", closeErr.Text)
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection lost: %w", err)
	}
}

func receive(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var frame inbound
		if err := json.Unmarshal(data, &frame); err != nil {
			color.Red.Printf("unreadable frame: %s\n", string(data))
			continue
		}
		fmt.Println(render(frame))
	}
}

func render(frame inbound) string {
	switch frame.Type {
	case domain.ErrorFrameType:
		return color.Red.Sprintf("! not delivered %q: %s", frame.Content, frame.Reason)
	case domain.PresenceFrameType:
		return color.Yellow.Sprintf("[%s] %s %s", frame.At.Local().Format(time.TimeOnly), short(frame.UserID), frame.Event)
	default:
		return fmt.Sprintf("%s %s: %s",
			color.Gray.Sprintf("[%s]", frame.CreatedAt.Local().Format(time.TimeOnly)),
			color.Cyan.Sprint(short(frame.UserID)),
			frame.Content)
	}
}

func send(ctx context.Context, conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
