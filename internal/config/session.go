package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// SessionConfig is read by the spawned authoritative servers. The lobby
// provisioner sets SESSION_PORT and SESSION_MAX_PLAYERS on launch.
type SessionConfig struct {
	Host          string        `env:"SESSION_HOST" envDefault:"0.0.0.0"`
	Port          int           `env:"SESSION_PORT" envDefault:"9001"`
	MaxPlayers    int           `env:"SESSION_MAX_PLAYERS" envDefault:"4"`
	TickMS        int           `env:"SESSION_TICK_MS" envDefault:"33"`
	TurnTimeout   time.Duration `env:"SESSION_TURN_TIMEOUT" envDefault:"60s"`
	JoinWait      time.Duration `env:"SESSION_JOIN_WAIT" envDefault:"30s"`
	BoardSize     int           `env:"SESSION_BOARD_SIZE" envDefault:"15"`
	MaxFrameBytes int           `env:"SESSION_MAX_FRAME_BYTES" envDefault:"65536"`
	SessionID     string        `env:"SESSION_ID"`
	RoomID        string        `env:"SESSION_ROOM_ID"`
}

func LoadSession() (SessionConfig, error) {
	var cfg SessionConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c SessionConfig) TickInterval() time.Duration {
	if c.TickMS <= 0 {
		return 33 * time.Millisecond
	}
	return time.Duration(c.TickMS) * time.Millisecond
}
