package redis

import "time"

// Config describes how to reach the broker.
// ConnectionURL supplies credentials, database and TLS settings; Dialer.Dial
// replaces its host and port.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // ConnectionURL is the URL of the broker, e.g. "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"1"`             // RetryAttempts is the number of connection attempts before giving up.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`            // RetryInterval is the pause between connection attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`          // ConnectTimeout bounds the whole connection procedure.
}

// DefaultConfig returns the configuration used when none is supplied.
// A single attempt: failing to connect is reported immediately.
func DefaultConfig() Config {
	return Config{
		ConnectionURL:  "redis://localhost:6379/0",
		RetryAttempts:  1,
		RetryInterval:  time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}
