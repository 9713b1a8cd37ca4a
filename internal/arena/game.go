package arena

import (
	"context"
	"expvar"
	"math/rand"
	"time"

	"peer-arcade/internal/protocol"
	"peer-arcade/internal/session"

	"github.com/rs/zerolog/log"
)

var (
	metricTicksTotal    = expvar.NewInt("arena_ticks_total")
	metricTickOverruns  = expvar.NewInt("arena_tick_overruns_total")
	metricEliminations  = expvar.NewInt("arena_eliminations_total")
	metricShotsAccepted = expvar.NewInt("arena_shots_total")
)

const DefaultTick = 33 * time.Millisecond

type Options struct {
	MaxPlayers int
	MaxFrame   int
	Tick       time.Duration
	SessionID  string
	Rand       *rand.Rand
	Now        func() time.Time
}

// Game binds a World to a session: inbound moves and shots are applied as
// they arrive, and a driving loop steps and broadcasts every tick.
type Game struct {
	s      *session.Session
	world  *World
	tick   time.Duration
	joined int
}

func NewGame(opts Options) *Game {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	g := &Game{world: NewWorld(opts.Rand, opts.Now), tick: opts.Tick}
	g.s = session.New(session.Options{
		Mode:       session.ModeStream,
		MaxPlayers: opts.MaxPlayers,
		MaxFrame:   opts.MaxFrame,
		Welcome: func(p *session.Participant) protocol.Welcome {
			return protocol.Welcome{SessionID: opts.SessionID, MapW: MapW, MapH: MapH}
		},
	}, g)
	return g
}

func (g *Game) Session() *session.Session {
	return g.s
}

// Run drives the tick loop until the match ends or ctx is cancelled.
func (g *Game) Run(ctx context.Context) {
	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			g.s.Shutdown("server stopping")
			return
		case <-g.s.Done():
			return
		case <-ticker.C:
			start := time.Now()
			g.s.Lock()
			g.tickLocked()
			g.s.Unlock()
			metricTicksTotal.Add(1)
			if elapsed := time.Since(start); elapsed > g.tick {
				metricTickOverruns.Add(1)
				log.Warn().Dur("elapsed", elapsed).Dur("tick", g.tick).Msg("tick_overrun")
			}
		}
	}
}

func (g *Game) tickLocked() {
	if g.s.ClosedLocked() {
		return
	}
	eliminated := g.world.Step()
	if len(eliminated) > 0 {
		byID := map[int]*session.Participant{}
		for _, p := range g.s.ParticipantsLocked() {
			byID[p.ID] = p
		}
		for _, id := range eliminated {
			metricEliminations.Add(1)
			p, ok := byID[id]
			if !ok {
				continue
			}
			log.Info().Int("player_id", id).Str("user", p.Name).Msg("player_eliminated")
			g.s.SendLocked(p, protocol.Dead{Message: "you were eliminated"})
			g.s.RemoveLocked(p)
		}
	}

	if g.joined > 0 && g.s.LenLocked() == 0 {
		log.Info().Msg("arena_empty")
		g.s.CloseLocked()
		return
	}
	g.s.BroadcastLocked(g.world.Snapshot())

	if teams := g.world.LiveTeams(); g.joined >= 2 && len(teams) <= 1 {
		end := protocol.GameEnd{Scores: g.world.Scores()}
		if len(teams) == 1 {
			winner := teams[0]
			end.Winner = &winner
		}
		log.Info().Interface("winner", end.Winner).Msg("arena_match_over")
		g.s.BroadcastLocked(end)
		g.s.CloseLocked()
	}
}

func (g *Game) Admit(_ *session.Session, p *session.Participant) error {
	g.world.AddPlayer(p.ID, p.Name)
	return nil
}

func (g *Game) Joined(_ *session.Session, p *session.Participant) {
	g.joined++
	if wp, ok := g.world.Player(p.ID); ok {
		log.Info().Int("player_id", p.ID).Int("team", wp.Team).Msg("arena_player_spawned")
	}
}

func (g *Game) Message(_ *session.Session, p *session.Participant, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeMove:
		var mv protocol.Move
		if err := env.Decode(&mv); err != nil {
			return
		}
		g.world.Move(p.ID, mv.DX, mv.DY)
	case protocol.TypeShoot:
		var sh protocol.Shoot
		if err := env.Decode(&sh); err != nil {
			return
		}
		if g.world.Shoot(p.ID, sh.MX, sh.MY) {
			metricShotsAccepted.Add(1)
		}
	}
}

func (g *Game) Left(_ *session.Session, p *session.Participant) {
	g.world.RemovePlayer(p.ID)
}
