package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"peer-arcade/internal/gomoku"
	"peer-arcade/internal/protocol"
)

func serveMatch(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	m := gomoku.NewMatch(gomoku.Options{TurnTimeout: 2 * time.Second, JoinWait: 2 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = m.Session().Serve(ctx, ln) }()
	go m.Run(ctx)
	return ln.Addr().String()
}

func nextOfType(t *testing.T, s *Session, typ protocol.Type) protocol.Envelope {
	t.Helper()
	for {
		env, ok := s.Next()
		if !ok {
			t.Fatalf("closed while waiting for %s", typ)
		}
		if env.Type == typ {
			return env
		}
	}
}

func TestSessionDialAndPlay(t *testing.T) {
	addr := serveMatch(t)
	ctx := context.Background()
	a, err := Dial(ctx, addr, "alice")
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer a.Close()
	b, err := Dial(ctx, addr, "bob")
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer b.Close()
	if a.PlayerID() != 1 || b.PlayerID() != 2 {
		t.Fatalf("player ids = %d, %d", a.PlayerID(), b.PlayerID())
	}

	if _, err := Dial(ctx, addr, "carol"); err == nil {
		t.Fatal("third player admitted")
	} else {
		var rej *RejectedError
		if !errors.As(err, &rej) || rej.Code != "session_full" {
			t.Fatalf("expected session_full rejection, got %v", err)
		}
	}

	nextOfType(t, a, protocol.TypePrompt)
	if err := a.Send(protocol.Place{X: 7, Y: 7}); err != nil {
		t.Fatalf("send move: %v", err)
	}
	var up protocol.Update
	if err := nextOfType(t, b, protocol.TypeUpdate).Decode(&up); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if up.Board[7][7] != 1 || up.Turn != 2 {
		t.Fatalf("update after move: turn=%d cell=%d", up.Turn, up.Board[7][7])
	}
}
