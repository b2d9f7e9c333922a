package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Settings struct {
	Port     int    `env:"PORT,default=8000"`
	BasePath string `env:"BASE_PATH,default=/"`

	JWTSecret      string `env:"JWT_SECRET,required=true"`
	JWTAudience    string `env:"JWT_AUDIENCE,default=restaurant"`
	APIKeys        string `env:"API_KEYS"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	LogEncoding string `env:"LOG_ENCODING,default=json"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	StoreDriver     string `env:"STORE_DRIVER,default=postgres"`
	DatabaseURL     string `env:"DATABASE_URL"`
	MongoDBURI      string `env:"MONGODB_URI"`
	MongoDBDatabase string `env:"MONGODB_DATABASE,default=restaurant"`

	AMQPURL string `env:"AMQP_URL"`

	SendQueueSize int           `env:"SEND_QUEUE_SIZE,default=64"`
	MaxFrameSize  int64         `env:"MAX_FRAME_SIZE,default=4096"`
	AuthTimeout   time.Duration `env:"AUTH_TIMEOUT,default=10s"`
	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	PingInterval  time.Duration `env:"PING_INTERVAL,default=25s"`
	WriteTimeout  time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	ErrorFrames   bool          `env:"ERROR_FRAMES,default=false"`
}

// Validate rejects timing and sizing values the websocket transport cannot
// run with.
func (s Settings) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"AUTH_TIMEOUT", s.AuthTimeout},
		{"IDLE_TIMEOUT", s.IdleTimeout},
		{"PING_INTERVAL", s.PingInterval},
		{"WRITE_TIMEOUT", s.WriteTimeout},
	}

	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if s.PingInterval >= s.IdleTimeout {
		return errors.New("PING_INTERVAL must be shorter than IDLE_TIMEOUT")
	}

	if s.MaxFrameSize <= 0 {
		return fmt.Errorf("MAX_FRAME_SIZE must be positive, got %d", s.MaxFrameSize)
	}

	if s.SendQueueSize <= 0 {
		return fmt.Errorf("SEND_QUEUE_SIZE must be positive, got %d", s.SendQueueSize)
	}

	return nil
}

func splitList(value string) []string {
	return lo.Compact(lo.Map(strings.Split(value, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}
