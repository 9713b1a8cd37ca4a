package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Lobby LobbyConfig
	Log   LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog("lobby")
	if err != nil {
		return AppConfig{}, err
	}
	lobbyCfg, err := LoadLobby()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Lobby: lobbyCfg,
		Log:   logCfg,
	}, nil
}

// LoadDotenv loads variables from the given .env files (default ".env")
// without overriding the process environment. Missing files are ignored.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
