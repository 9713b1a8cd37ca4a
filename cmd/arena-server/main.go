package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"peer-arcade/internal/arena"
	"peer-arcade/internal/config"
	"peer-arcade/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog("arena-server")
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	// The launcher's --host/--port/--max_players flags carry the same values
	// as SESSION_*; only the environment is read.
	cfg, err := config.LoadSession()
	if err != nil {
		log.Fatal().Err(err).Msg("load session config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("listen failed")
	}

	game := arena.NewGame(arena.Options{
		MaxPlayers: cfg.MaxPlayers,
		MaxFrame:   cfg.MaxFrameBytes,
		Tick:       cfg.TickInterval(),
		SessionID:  cfg.SessionID,
	})
	go func() {
		if err := game.Session().Serve(ctx, ln); err != nil {
			log.Error().Err(err).Msg("accept failed")
			game.Session().Shutdown("server error")
		}
	}()

	log.Info().
		Str("addr", addr).
		Str("session_id", cfg.SessionID).
		Str("room_id", cfg.RoomID).
		Int("max_players", cfg.MaxPlayers).
		Msg("arena session listening")
	game.Run(ctx)
	log.Info().Str("session_id", cfg.SessionID).Msg("arena session finished")
}
