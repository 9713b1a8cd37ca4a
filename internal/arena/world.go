// Package arena is the continuous-time team combat game: players move and
// fire projectiles on a fixed map while the server advances the world in
// fixed ticks.
package arena

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"peer-arcade/internal/protocol"
)

const (
	MapW = 2000.0
	MapH = 2000.0

	BaseSpeed        = 5.0
	MaxSpeed         = 15.0
	BaseShotInterval = 0.5
	MinShotInterval  = 0.1
	MaxHP            = 100

	// A projectile covers a tenth of the distance to its aim point per tick.
	ProjectileDivisor = 10.0
	Damage            = 10
	PlayerHitbox      = 15.0
	ObstacleHitbox    = 20.0
	KillBonus         = 50
	ObstacleBonus     = 10
	LevelExp          = 100

	ObstacleCount  = 30
	obstacleMargin = 40.0
	spawnMargin    = 50.0
)

type Player struct {
	ID           int
	Name         string
	X, Y         float64
	HP           int
	Team         int
	Exp          int
	Level        int
	Speed        float64
	ShotInterval float64

	lastShot time.Time
}

type Projectile struct {
	X, Y   float64
	DX, DY float64
	Team   int
	Owner  int
}

type Obstacle struct {
	X, Y float64
	HP   int
}

// World holds the authoritative arena state. It is not safe for concurrent
// use; the owning session lock serializes access.
type World struct {
	W, H float64

	rng         *rand.Rand
	now         func() time.Time
	players     map[int]*Player
	projectiles []Projectile
	obstacles   []Obstacle
}

func NewWorld(rng *rand.Rand, now func() time.Time) *World {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	w := &World{W: MapW, H: MapH, rng: rng, now: now, players: map[int]*Player{}}
	w.obstacles = make([]Obstacle, ObstacleCount)
	for i := range w.obstacles {
		w.respawn(&w.obstacles[i])
	}
	return w
}

func (w *World) respawn(o *Obstacle) {
	o.X = w.between(0, w.W-obstacleMargin)
	o.Y = w.between(0, w.H-obstacleMargin)
	o.HP = MaxHP
}

func (w *World) between(lo, hi float64) float64 {
	return lo + float64(w.rng.Intn(int(hi-lo)+1))
}

// AddPlayer spawns a player at a random position. Odd ids play for team 1,
// even ids for team 2.
func (w *World) AddPlayer(id int, name string) *Player {
	team := 2
	if id%2 == 1 {
		team = 1
	}
	p := &Player{
		ID:           id,
		Name:         name,
		X:            w.between(spawnMargin, w.W-spawnMargin),
		Y:            w.between(spawnMargin, w.H-spawnMargin),
		HP:           MaxHP,
		Team:         team,
		Level:        1,
		Speed:        BaseSpeed,
		ShotInterval: BaseShotInterval,
	}
	w.players[id] = p
	return p
}

func (w *World) RemovePlayer(id int) {
	delete(w.players, id)
}

func (w *World) Player(id int) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

func (w *World) Len() int {
	return len(w.players)
}

// Move displaces a player immediately, scaled by its speed and clamped to
// the map.
func (w *World) Move(id int, dx, dy float64) {
	p, ok := w.players[id]
	if !ok {
		return
	}
	p.X = clamp(p.X+dx*p.Speed/BaseSpeed, 0, w.W)
	p.Y = clamp(p.Y+dy*p.Speed/BaseSpeed, 0, w.H)
}

// Shoot fires toward (mx, my) unless the player's cooldown has not elapsed,
// in which case the request is dropped. It reports whether a projectile was
// created.
func (w *World) Shoot(id int, mx, my float64) bool {
	p, ok := w.players[id]
	if !ok {
		return false
	}
	now := w.now()
	if !p.lastShot.IsZero() && now.Sub(p.lastShot).Seconds() < p.ShotInterval {
		return false
	}
	w.projectiles = append(w.projectiles, Projectile{
		X:     p.X,
		Y:     p.Y,
		DX:    (mx - p.X) / ProjectileDivisor,
		DY:    (my - p.Y) / ProjectileDivisor,
		Team:  p.Team,
		Owner: p.ID,
	})
	p.lastShot = now
	return true
}

// Step advances the world by one tick and returns the ids of players
// eliminated during it, in ascending order. They are already off the
// roster when Step returns.
func (w *World) Step() []int {
	ids := w.playerIDs()
	kept := w.projectiles[:0]
	for _, b := range w.projectiles {
		b.X += b.DX
		b.Y += b.DY
		if b.X < 0 || b.X > w.W || b.Y < 0 || b.Y > w.H {
			continue
		}
		if w.hitPlayer(ids, b) || w.hitObstacle(b) {
			continue
		}
		kept = append(kept, b)
	}
	w.projectiles = kept

	for i := range w.obstacles {
		if w.obstacles[i].HP <= 0 {
			w.respawn(&w.obstacles[i])
		}
	}

	var eliminated []int
	for _, id := range ids {
		if w.players[id].HP <= 0 {
			eliminated = append(eliminated, id)
			delete(w.players, id)
		}
	}
	for _, id := range w.playerIDs() {
		w.levelUp(w.players[id])
	}
	return eliminated
}

func (w *World) hitPlayer(ids []int, b Projectile) bool {
	for _, id := range ids {
		p := w.players[id]
		if p.HP <= 0 || p.Team == b.Team {
			continue
		}
		if math.Abs(p.X-b.X) < PlayerHitbox && math.Abs(p.Y-b.Y) < PlayerHitbox {
			p.HP -= Damage
			if p.HP <= 0 {
				w.award(b.Owner, KillBonus)
			}
			return true
		}
	}
	return false
}

func (w *World) hitObstacle(b Projectile) bool {
	for i := range w.obstacles {
		o := &w.obstacles[i]
		if o.HP <= 0 {
			continue
		}
		if math.Abs(o.X-b.X) < ObstacleHitbox && math.Abs(o.Y-b.Y) < ObstacleHitbox {
			o.HP -= Damage
			if o.HP <= 0 {
				w.award(b.Owner, ObstacleBonus)
			}
			return true
		}
	}
	return false
}

func (w *World) award(owner, exp int) {
	if p, ok := w.players[owner]; ok {
		p.Exp += exp
	}
}

// levelUp grants one level and one upgrade per threshold crossed. The
// upgrade is a fair draw between speed and fire rate; drawing a stat that is
// already at its cap leaves it there.
func (w *World) levelUp(p *Player) {
	for p.Exp >= LevelExp*p.Level {
		p.Level++
		if w.rng.Intn(2) == 0 {
			p.Speed = math.Min(MaxSpeed, p.Speed+1)
		} else {
			p.ShotInterval = math.Max(MinShotInterval, p.ShotInterval*0.9)
		}
	}
}

// LiveTeams lists the teams with at least one player left, ascending.
func (w *World) LiveTeams() []int {
	seen := map[int]bool{}
	var teams []int
	for _, id := range w.playerIDs() {
		t := w.players[id].Team
		if !seen[t] {
			seen[t] = true
			teams = append(teams, t)
		}
	}
	sort.Ints(teams)
	return teams
}

func (w *World) Projectiles() []Projectile {
	return append([]Projectile(nil), w.projectiles...)
}

func (w *World) Obstacles() []Obstacle {
	return append([]Obstacle(nil), w.obstacles...)
}

// Snapshot renders the full state as an update message.
func (w *World) Snapshot() protocol.Update {
	u := protocol.Update{
		Players:     make(map[string]protocol.PlayerView, len(w.players)),
		Projectiles: make([]protocol.ProjectileView, 0, len(w.projectiles)),
		Obstacles:   make([]protocol.ObstacleView, 0, len(w.obstacles)),
	}
	for id, p := range w.players {
		u.Players[strconv.Itoa(id)] = protocol.PlayerView{
			Name:         p.Name,
			X:            p.X,
			Y:            p.Y,
			HP:           p.HP,
			Team:         p.Team,
			Exp:          p.Exp,
			Level:        p.Level,
			Speed:        p.Speed,
			ShotInterval: p.ShotInterval,
		}
	}
	for _, b := range w.projectiles {
		u.Projectiles = append(u.Projectiles, protocol.ProjectileView{X: b.X, Y: b.Y, DX: b.DX, DY: b.DY, Team: b.Team, Owner: b.Owner})
	}
	for _, o := range w.obstacles {
		u.Obstacles = append(u.Obstacles, protocol.ObstacleView{X: o.X, Y: o.Y, HP: o.HP})
	}
	return u
}

// Scores maps player id to experience for everyone still on the roster.
func (w *World) Scores() map[string]int {
	out := make(map[string]int, len(w.players))
	for id, p := range w.players {
		out[strconv.Itoa(id)] = p.Exp
	}
	return out
}

func (w *World) playerIDs() []int {
	ids := make([]int, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
