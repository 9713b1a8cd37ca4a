package config

import "github.com/caarlos0/env/v11"

type LobbyConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":6000"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	StoreDir     string `env:"STORE_DIR" envDefault:"./data"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"./data/lobby.db"`
	PostgresDSN  string `env:"POSTGRES_DSN"`

	GamesDir      string `env:"GAMES_DIR" envDefault:"./uploaded_games"`
	BindHost      string `env:"SESSION_BIND_HOST" envDefault:"0.0.0.0"`
	AdvertiseHost string `env:"SESSION_ADVERTISE_HOST" envDefault:"127.0.0.1"`
	RequireLogin  bool   `env:"REQUIRE_LOGIN" envDefault:"false"`
	EventBuffer   int    `env:"LOBBY_EVENT_BUFFER" envDefault:"500"`
}

func LoadLobby() (LobbyConfig, error) {
	var cfg LobbyConfig
	err := env.Parse(&cfg)
	return cfg, err
}
