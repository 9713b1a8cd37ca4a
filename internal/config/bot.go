package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	LobbyURL string `env:"LOBBY_URL" envDefault:"http://localhost:6000"`
	Username string `env:"BOT_USERNAME" envDefault:"bot"`
	Password string `env:"BOT_PASSWORD" envDefault:"bot"`
	Game     string `env:"BOT_GAME" envDefault:"gomoku"`
	RoomID   string `env:"BOT_ROOM_ID"`
	Start    bool   `env:"BOT_START" envDefault:"false"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
