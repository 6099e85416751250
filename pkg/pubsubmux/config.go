package pubsubmux

import (
	"errors"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/pubsubmux/pkg/redis"
)

// Config holds the broker address and manager tuning.
type Config struct {
	Host string `env:"PUBSUB_HOST" envDefault:"localhost"`
	Port int    `env:"PUBSUB_PORT" envDefault:"6379"`

	// HandshakeAttempts is the number of beacons published before New gives up.
	HandshakeAttempts int `env:"PUBSUB_HANDSHAKE_ATTEMPTS" envDefault:"20"`

	// HandshakeInterval is how long each beacon waits for its acknowledgement.
	HandshakeInterval time.Duration `env:"PUBSUB_HANDSHAKE_INTERVAL" envDefault:"100ms"`

	// SubscribeTimeout bounds how long the first Subscribe on a channel waits
	// for the broker to confirm the physical subscription.
	SubscribeTimeout time.Duration `env:"PUBSUB_SUBSCRIBE_TIMEOUT" envDefault:"5s"`

	// DispatchConcurrency caps parallel handlers per message; 0 means no cap.
	DispatchConcurrency int `env:"PUBSUB_DISPATCH_CONCURRENCY" envDefault:"0"`

	// SentinelPrefix namespaces the handshake channel. Callers cannot
	// subscribe under it.
	SentinelPrefix string `env:"PUBSUB_SENTINEL_PREFIX" envDefault:"pubsubmux:sentinel:"`

	// IDLimit bounds subscriber ids per channel; 0 means the full uint32 space.
	IDLimit uint32 `env:"PUBSUB_ID_LIMIT" envDefault:"0"`

	Redis redis.Config
}

// DefaultConfig returns the configuration used by New before options apply.
func DefaultConfig() Config {
	return Config{
		Host:              "localhost",
		Port:              6379,
		HandshakeAttempts: 20,
		HandshakeInterval: 100 * time.Millisecond,
		SubscribeTimeout:  5 * time.Second,
		SentinelPrefix:    "pubsubmux:sentinel:",
		Redis:             redis.DefaultConfig(),
	}
}

var dotenvLoaded sync.Once

// LoadConfig reads Config from the environment. An optional .env file in
// the working directory is loaded first.
func LoadConfig() (Config, error) {
	dotenvLoaded.Do(func() {
		// A missing .env file is fine.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Host == "":
		return errors.Join(ErrInvalidConfig, errors.New("host is empty"))
	case c.Port <= 0 || c.Port > 65535:
		return errors.Join(ErrInvalidConfig, errors.New("port out of range"))
	case c.HandshakeAttempts < 1:
		return errors.Join(ErrInvalidConfig, errors.New("handshake attempts must be positive"))
	case c.HandshakeInterval <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("handshake interval must be positive"))
	case c.SubscribeTimeout <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("subscribe timeout must be positive"))
	case c.DispatchConcurrency < 0:
		return errors.Join(ErrInvalidConfig, errors.New("dispatch concurrency is negative"))
	case c.SentinelPrefix == "":
		return errors.Join(ErrInvalidConfig, errors.New("sentinel prefix is empty"))
	}
	return nil
}
