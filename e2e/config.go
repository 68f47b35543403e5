package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_ADDR points the suite at an already running server
	// (ws://host:port/ws/chat). Empty spins an in-process engine instead.
	ServerAddr string `envconfig:"E2E_SERVER_ADDR"`
	// E2E_JWT_SECRET must match the target server when ServerAddr is set.
	JWTSecret string `envconfig:"E2E_JWT_SECRET" default:"e2e-secret"`
	// E2E_TYPING_QUIET shortens the typing expiry for the in-process engine.
	TypingQuiet time.Duration `envconfig:"E2E_TYPING_QUIET" default:"150ms"`
	WaitTimeout time.Duration `envconfig:"E2E_WAIT_TIMEOUT" default:"3s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
