package internal

import (
	"chat-relay/errors"
	"chat-relay/runtime"
	"chat-relay/sink"
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type StoreDriver string

const (
	BadgerDriver   StoreDriver = "badger"
	PostgresDriver StoreDriver = "postgres"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=168h"`

	StoreDriver    string `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,default=./data/bluge"`
	DatabaseURL    string `env:"DATABASE_URL"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	InboxSize            int           `env:"INBOX_SIZE,default=1024"`
	SinkBufferSize       int           `env:"SINK_BUFFER_SIZE,default=64"`
	SinkOverflow         string        `env:"SINK_OVERFLOW,default=drop_newest"`
	PersistTimeout       time.Duration `env:"PERSIST_TIMEOUT,default=5s"`
	RoomOrdering         string        `env:"ROOM_ORDERING,default=completion"`
	NotifyPersistFailure bool          `env:"NOTIFY_PERSIST_FAILURE,default=false"`
	PresenceEvents       bool          `env:"PRESENCE_EVENTS,default=false"`

	RejectEmptyContent bool   `env:"REJECT_EMPTY_CONTENT,default=false"`
	MaxContentLength   int    `env:"MAX_CONTENT_LENGTH,default=0"`
	CensoredWordsDir   string `env:"CENSORED_WORDS_DIR"`
	CensorCharacter    string `env:"CENSOR_CHARACTER,default=*"`

	MaxFrameBytes int64         `env:"MAX_FRAME_BYTES,default=65536"`
	PingInterval  time.Duration `env:"PING_INTERVAL,default=30s"`
	WriteTimeout  time.Duration `env:"WRITE_TIMEOUT,default=10s"`

	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=1m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads an optional .env file then the environment, variables already set win.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks the values the environment parser can't.
func (c Config) Validate() error {
	if _, err := c.Driver(); err != nil {
		return err
	}
	if _, err := c.Overflow(); err != nil {
		return err
	}
	if _, err := c.Ordering(); err != nil {
		return err
	}
	if _, err := CharacterRune(c.CensorCharacter); err != nil {
		return err
	}
	if driver, _ := c.Driver(); driver == PostgresDriver && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required with STORE_DRIVER=%s", PostgresDriver)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Driver() (StoreDriver, error) {
	switch d := StoreDriver(strings.ToLower(strings.TrimSpace(c.StoreDriver))); d {
	case BadgerDriver, PostgresDriver:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownDriver, c.StoreDriver)
	}
}

func (c Config) Overflow() (sink.OverflowPolicy, error) {
	return sink.ParseOverflowPolicy(c.SinkOverflow)
}

func (c Config) Ordering() (runtime.Ordering, error) {
	return runtime.ParseOrdering(c.RoomOrdering)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSOR_CHARACTER must be a single character, got %q", str)
	}
	return r[0], nil
}
