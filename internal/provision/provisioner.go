// Package provision turns a waiting room into a running session: it picks
// a port, launches the game's authoritative server and records where
// players can reach it.
package provision

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"sync"

	"peer-arcade/internal/rooms"

	"github.com/rs/zerolog/log"
)

var (
	metricLaunchesTotal   = expvar.NewInt("provision_launches_total")
	metricLaunchFailures  = expvar.NewInt("provision_launch_failures_total")
	metricSessionsRunning = expvar.NewInt("provision_sessions_running")
)

// Resolver maps a game version to its server executable.
type Resolver interface {
	Entrypoint(game, version string) (string, error)
}

// Registry is the part of the room registry the provisioner writes.
type Registry interface {
	Get(id string) (rooms.Room, error)
	MarkRunning(ctx context.Context, id, addr string, port int) (rooms.Room, error)
	MarkFinished(ctx context.Context, id string) error
}

type Options struct {
	// BindHost is where the session server listens; AdvertiseHost is what
	// clients are told to dial.
	BindHost      string
	AdvertiseHost string
}

type Result struct {
	RoomID    string `json:"room_id"`
	SessionID string `json:"session_id"`
	HostAddr  string `json:"host_addr"`
	HostPort  int    `json:"host_port"`
	Version   string `json:"version"`
}

type Provisioner struct {
	registry Registry
	resolve  Resolver
	launcher Launcher
	opts     Options
	wg       sync.WaitGroup
}

func New(registry Registry, resolve Resolver, launcher Launcher, opts Options) *Provisioner {
	if opts.BindHost == "" {
		opts.BindHost = "0.0.0.0"
	}
	if opts.AdvertiseHost == "" {
		opts.AdvertiseHost = "127.0.0.1"
	}
	return &Provisioner{registry: registry, resolve: resolve, launcher: launcher, opts: opts}
}

// Start launches the session server for roomID. There is no supervision
// beyond reaping: when the process exits the room is marked finished.
func (p *Provisioner) Start(ctx context.Context, roomID string) (Result, error) {
	room, err := p.registry.Get(roomID)
	if err != nil {
		return Result{}, err
	}
	if room.Status == rooms.StatusRunning {
		return Result{}, rooms.ErrRoomRunning
	}
	path, err := p.resolve.Entrypoint(room.GameName, room.Version)
	if err != nil {
		return Result{}, err
	}
	port, err := FreePort(p.opts.BindHost)
	if err != nil {
		metricLaunchFailures.Add(1)
		return Result{}, fmt.Errorf("allocate port: %w", err)
	}
	sessionID := newSessionID()
	proc, err := p.launcher.Launch(ctx, Spec{
		Path:       path,
		RoomID:     room.RoomID,
		SessionID:  sessionID,
		Game:       room.GameName,
		Version:    room.Version,
		Host:       p.opts.BindHost,
		Port:       port,
		MaxPlayers: room.MaxPlayers,
	})
	if err != nil {
		metricLaunchFailures.Add(1)
		log.Error().Err(err).Str("room_id", roomID).Str("path", path).Msg("session_launch_failed")
		return Result{}, err
	}
	if _, err := p.registry.MarkRunning(ctx, roomID, p.opts.AdvertiseHost, port); err != nil {
		_ = proc.Kill()
		_ = proc.Wait()
		return Result{}, err
	}
	metricLaunchesTotal.Add(1)
	metricSessionsRunning.Add(1)
	log.Info().
		Str("room_id", roomID).
		Str("session_id", sessionID).
		Str("game", room.GameName).
		Str("version", room.Version).
		Int("port", port).
		Int("pid", proc.Pid()).
		Msg("session_started")

	p.wg.Add(1)
	go p.reap(roomID, sessionID, proc)

	return Result{
		RoomID:    roomID,
		SessionID: sessionID,
		HostAddr:  p.opts.AdvertiseHost,
		HostPort:  port,
		Version:   room.Version,
	}, nil
}

func (p *Provisioner) reap(roomID, sessionID string, proc Process) {
	defer p.wg.Done()
	err := proc.Wait()
	metricSessionsRunning.Add(-1)
	ev := log.Info()
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		ev = log.Warn().Int("exit_code", exitErr.ExitCode())
	} else if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("room_id", roomID).Str("session_id", sessionID).Msg("session_exited")
	if err := p.registry.MarkFinished(context.Background(), roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("mark_finished_failed")
	}
}

// Wait blocks until every launched session has exited and been reaped.
func (p *Provisioner) Wait() {
	p.wg.Wait()
}
