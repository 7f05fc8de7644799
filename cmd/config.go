package cmd

import "time"

// Config carries all startup settings, read from the environment by cmd/app.
type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	// BusBackend selects the event bus implementation:
	// "memory", "redis" or "amqp".
	BusBackend string
	RedisAddr  string
	AmqpURL    string

	LocationBroadcastInterval time.Duration
	ChatGracePeriod           time.Duration
	OrderRetention            time.Duration
}
