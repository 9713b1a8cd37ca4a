package main

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"peer-arcade/internal/accounts"
	"peer-arcade/internal/client"
	"peer-arcade/internal/config"
	"peer-arcade/internal/logging"
	"peer-arcade/internal/protocol"
	"peer-arcade/internal/rooms"

	"github.com/rs/zerolog/log"
)

const arenaStep = 5.0

func main() {
	logCfg, err := config.LoadLog("arcade-bot")
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lc := client.NewLobby(cfg.LobbyURL, nil)
	if err := enter(ctx, lc, cfg); err != nil {
		log.Fatal().Err(err).Str("user", cfg.Username).Msg("lobby login failed")
	}
	defer func() {
		_, _ = lc.LeaveRoom(context.Background(), cfg.Username)
		_ = lc.Logout(context.Background(), cfg.Username)
	}()

	room, err := pickRoom(ctx, lc, cfg)
	if err != nil {
		log.Error().Err(err).Msg("room setup failed")
		return
	}
	log.Info().Str("room_id", room.RoomID).Str("game", room.GameName).Str("host", room.Host).Msg("in room")

	if cfg.Start && room.Host == cfg.Username {
		if err := startWhenReady(ctx, lc, cfg.Username, room.RoomID); err != nil {
			log.Error().Err(err).Msg("start room failed")
			return
		}
	}
	room, err = lc.WaitRunning(ctx, room.RoomID, time.Second)
	if err != nil {
		log.Error().Err(err).Msg("wait for session failed")
		return
	}

	addr := net.JoinHostPort(*room.HostAddr, strconv.Itoa(*room.HostPort))
	sess, err := client.Dial(ctx, addr, cfg.Username)
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("join session failed")
		return
	}
	defer sess.Close()
	log.Info().Str("addr", addr).Int("player_id", sess.PlayerID()).Msg("joined session")

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	go func() {
		<-ctx.Done()
		_ = sess.Close()
	}()
	switch room.GameName {
	case "gomoku":
		playGomoku(sess, rnd)
	default:
		playArena(sess, rnd)
	}
}

func enter(ctx context.Context, lc *client.Lobby, cfg config.BotConfig) error {
	err := lc.Register(ctx, cfg.Username, cfg.Password)
	var apiErr *client.APIError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Code == accounts.ErrUserExists.Error()) {
		return err
	}
	return lc.Login(ctx, cfg.Username, cfg.Password)
}

func pickRoom(ctx context.Context, lc *client.Lobby, cfg config.BotConfig) (rooms.Room, error) {
	if cfg.RoomID != "" {
		return lc.JoinRoom(ctx, cfg.Username, cfg.RoomID)
	}
	created, err := lc.CreateRoom(ctx, cfg.Username, cfg.Game)
	if err != nil {
		return rooms.Room{}, err
	}
	return created.Room, nil
}

// startWhenReady waits for a second player before starting the session.
func startWhenReady(ctx context.Context, lc *client.Lobby, user, roomID string) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		room, err := lc.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if len(room.Players) >= 2 {
			res, err := lc.StartRoom(ctx, user, roomID)
			if err != nil {
				return err
			}
			log.Info().Str("room_id", roomID).Str("host_addr", res.HostAddr).Int("host_port", res.HostPort).Msg("room started")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func playGomoku(sess *client.Session, rnd *rand.Rand) {
	var board [][]int
	for {
		env, ok := sess.Next()
		if !ok {
			return
		}
		switch env.Type {
		case protocol.TypeUpdate:
			var u protocol.Update
			if err := env.Decode(&u); err == nil && u.Board != nil {
				board = u.Board
			}
		case protocol.TypePrompt:
			x, y := pickCell(rnd, board, sess.Welcome.BoardSize)
			if err := sess.Send(protocol.Place{X: x, Y: y}); err != nil {
				return
			}
		case protocol.TypeGameEnd, protocol.TypeShutdown:
			logEnd(env)
			return
		}
	}
}

// pickCell returns a random empty cell, or the centre before any board has
// been seen.
func pickCell(rnd *rand.Rand, board [][]int, size int) (int, int) {
	if len(board) == 0 {
		return size / 2, size / 2
	}
	var free [][2]int
	for y, row := range board {
		for x, v := range row {
			if v == 0 {
				free = append(free, [2]int{x, y})
			}
		}
	}
	if len(free) == 0 {
		return 0, 0
	}
	c := free[rnd.Intn(len(free))]
	return c[0], c[1]
}

func playArena(sess *client.Session, rnd *rand.Rand) {
	self := strconv.Itoa(sess.PlayerID())
	for {
		env, ok := sess.Next()
		if !ok {
			return
		}
		switch env.Type {
		case protocol.TypeUpdate:
			var u protocol.Update
			if err := env.Decode(&u); err != nil {
				continue
			}
			me, ok := u.Players[self]
			if !ok {
				continue
			}
			if err := sess.Send(protocol.Move{DX: arenaStep * float64(rnd.Intn(3)-1), DY: arenaStep * float64(rnd.Intn(3)-1)}); err != nil {
				return
			}
			if tx, ty, found := nearestEnemy(me, self, u.Players); found {
				if err := sess.Send(protocol.Shoot{MX: tx, MY: ty}); err != nil {
					return
				}
			}
		case protocol.TypeDead, protocol.TypeGameEnd, protocol.TypeShutdown:
			logEnd(env)
			return
		}
	}
}

func nearestEnemy(me protocol.PlayerView, self string, players map[string]protocol.PlayerView) (float64, float64, bool) {
	best := math.MaxFloat64
	var tx, ty float64
	found := false
	for id, p := range players {
		if id == self || p.Team == me.Team {
			continue
		}
		if d := math.Hypot(p.X-me.X, p.Y-me.Y); d < best {
			best, tx, ty, found = d, p.X, p.Y, true
		}
	}
	return tx, ty, found
}

func logEnd(env protocol.Envelope) {
	log.Info().Str("type", string(env.Type)).Str("data", string(env.Data)).Msg("session ended")
}
