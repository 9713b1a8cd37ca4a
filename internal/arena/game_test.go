package arena

import (
	"context"
	"math/rand"
	"net"
	"testing"
	"time"

	"peer-arcade/internal/protocol"
	"peer-arcade/internal/testutil"
)

func startGame(t *testing.T, maxPlayers int) (*Game, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	g := NewGame(Options{MaxPlayers: maxPlayers, Tick: 10 * time.Millisecond, Rand: rand.New(rand.NewSource(1))})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = g.Session().Serve(ctx, ln) }()
	go g.Run(ctx)
	return g, ln.Addr().String()
}

func join(t *testing.T, addr, name string) (*testutil.WireClient, protocol.Welcome) {
	t.Helper()
	c := testutil.DialWire(t, addr)
	c.Send(t, protocol.Join{Username: name})
	env := c.Expect(t, protocol.TypeWelcome)
	var w protocol.Welcome
	if err := env.Decode(&w); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	return c, w
}

func TestArenaBroadcastsSnapshotsAndAppliesMoves(t *testing.T) {
	_, addr := startGame(t, 4)
	a, wa := join(t, addr, "alice")
	if wa.PlayerID != 1 || wa.MapW != MapW || wa.MapH != MapH {
		t.Fatalf("unexpected welcome %+v", wa)
	}
	b, _ := join(t, addr, "bob")

	var before protocol.PlayerView
	for {
		var u protocol.Update
		if err := a.Expect(t, protocol.TypeUpdate).Decode(&u); err != nil {
			t.Fatalf("decode update: %v", err)
		}
		if len(u.Players) == 2 {
			before = u.Players["1"]
			break
		}
	}
	if len(before.Name) == 0 || before.Team != 1 {
		t.Fatalf("unexpected player view %+v", before)
	}

	a.Send(t, protocol.Move{DX: 5, DY: 0})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var u protocol.Update
		_ = b.Expect(t, protocol.TypeUpdate).Decode(&u)
		if p, ok := u.Players["1"]; ok && p.X != before.X {
			if p.X != before.X+5 && p.X != MapW {
				t.Fatalf("moved to %v from %v", p.X, before.X)
			}
			return
		}
	}
	t.Fatal("move never showed up in a snapshot")
}

func TestArenaEndsWhenOneTeamRemains(t *testing.T) {
	_, addr := startGame(t, 4)
	a, _ := join(t, addr, "alice")
	b, _ := join(t, addr, "bob")
	b.Expect(t, protocol.TypeUpdate)
	_ = b.Conn.Close()

	var end protocol.GameEnd
	if err := a.Expect(t, protocol.TypeGameEnd).Decode(&end); err != nil {
		t.Fatalf("decode game_end: %v", err)
	}
	if end.Winner == nil || *end.Winner != 1 {
		t.Fatalf("winner = %v, want team 1", end.Winner)
	}
	if _, ok := end.Scores["1"]; !ok {
		t.Fatalf("scores missing survivor: %+v", end.Scores)
	}
	a.ExpectClosed(t)
}

func TestArenaContinuesAfterDisconnectWhileTwoTeamsRemain(t *testing.T) {
	g, addr := startGame(t, 4)
	a, _ := join(t, addr, "alice")
	_, _ = join(t, addr, "bob")
	c, _ := join(t, addr, "carol")
	for {
		var u protocol.Update
		_ = a.Expect(t, protocol.TypeUpdate).Decode(&u)
		if len(u.Players) == 3 {
			break
		}
	}
	_ = c.Conn.Close()

	for {
		env, ok := a.Next(t)
		if !ok {
			t.Fatal("connection closed after a single disconnect")
		}
		if env.Type == protocol.TypeGameEnd {
			t.Fatal("match ended while teams 1 and 2 were both live")
		}
		if env.Type != protocol.TypeUpdate {
			continue
		}
		var u protocol.Update
		if err := env.Decode(&u); err != nil {
			t.Fatalf("decode update: %v", err)
		}
		if _, present := u.Players["3"]; !present && len(u.Players) == 2 {
			break
		}
	}
	select {
	case <-g.Session().Done():
		t.Fatal("session closed while two teams remain")
	default:
	}
}

func TestArenaClosesWhenEveryoneLeaves(t *testing.T) {
	g, addr := startGame(t, 4)
	a, _ := join(t, addr, "solo")
	a.Expect(t, protocol.TypeUpdate)
	_ = a.Conn.Close()
	select {
	case <-g.Session().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("empty arena did not close")
	}
}

func TestEliminatedPlayerIsNotifiedAndRemoved(t *testing.T) {
	g, addr := startGame(t, 4)
	a, _ := join(t, addr, "alice")
	c, _ := join(t, addr, "carol")
	a.Expect(t, protocol.TypeUpdate)

	g.Session().Lock()
	target, _ := g.world.Player(2)
	target.HP = 0
	g.Session().Unlock()

	env := c.Expect(t, protocol.TypeDead)
	var d protocol.Dead
	if err := env.Decode(&d); err != nil || d.Message == "" {
		t.Fatalf("dead notice %+v err=%v", d, err)
	}
	c.ExpectClosed(t)

	var end protocol.GameEnd
	if err := a.Expect(t, protocol.TypeGameEnd).Decode(&end); err != nil {
		t.Fatalf("decode game_end: %v", err)
	}
	if end.Winner == nil || *end.Winner != 1 {
		t.Fatalf("winner = %v, want 1", end.Winner)
	}
}
