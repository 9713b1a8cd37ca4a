package session

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"peer-arcade/internal/protocol"
)

type recorder struct {
	joined   []int
	left     []int
	messages []protocol.Type
	deny     error
}

func (r *recorder) Admit(*Session, *Participant) error { return r.deny }
func (r *recorder) Joined(_ *Session, p *Participant)  { r.joined = append(r.joined, p.ID) }
func (r *recorder) Left(_ *Session, p *Participant)    { r.left = append(r.left, p.ID) }
func (r *recorder) Message(_ *Session, _ *Participant, env protocol.Envelope) {
	r.messages = append(r.messages, env.Type)
}

type client struct {
	conn net.Conn
	msgs chan protocol.Envelope
}

func newClient(conn net.Conn) *client {
	c := &client{conn: conn, msgs: make(chan protocol.Envelope, 64)}
	go func() {
		defer close(c.msgs)
		dec := protocol.NewDecoder(conn, 0)
		for {
			env, ok := dec.Read()
			if !ok {
				return
			}
			c.msgs <- env
		}
	}()
	return c
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return newClient(conn)
}

func (c *client) send(t *testing.T, msg protocol.Message) {
	t.Helper()
	if err := protocol.Write(c.conn, msg); err != nil {
		t.Fatalf("write %s: %v", msg.MessageType(), err)
	}
}

func (c *client) next(t *testing.T) (protocol.Envelope, bool) {
	t.Helper()
	select {
	case env, ok := <-c.msgs:
		return env, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return protocol.Envelope{}, false
	}
}

func (c *client) expect(t *testing.T, typ protocol.Type) protocol.Envelope {
	t.Helper()
	env, ok := c.next(t)
	if !ok {
		t.Fatalf("connection closed, wanted %s", typ)
	}
	if env.Type != typ {
		t.Fatalf("got %s, want %s", env.Type, typ)
	}
	return env
}

func (c *client) expectClosed(t *testing.T) {
	t.Helper()
	for {
		env, ok := c.next(t)
		if !ok {
			return
		}
		if env.Type == protocol.TypeShutdown {
			continue
		}
		t.Fatalf("expected close, got %s", env.Type)
	}
}

func startSession(t *testing.T, opts Options, h Handler) (*Session, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := New(opts, h)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Serve(ctx, ln) }()
	return s, ln.Addr().String()
}

func TestJoinAssignsSequentialIDs(t *testing.T) {
	h := &recorder{}
	_, addr := startSession(t, Options{Mode: ModeStream, MaxPlayers: 4}, h)

	for want := 1; want <= 3; want++ {
		c := dial(t, addr)
		c.send(t, protocol.Join{Username: "p"})
		env := c.expect(t, protocol.TypeWelcome)
		var w protocol.Welcome
		if err := env.Decode(&w); err != nil {
			t.Fatalf("decode welcome: %v", err)
		}
		if w.PlayerID != want {
			t.Fatalf("player_id = %d, want %d", w.PlayerID, want)
		}
	}
}

func TestJoinBeyondCapacityIsRejected(t *testing.T) {
	h := &recorder{}
	s, addr := startSession(t, Options{Mode: ModeStream, MaxPlayers: 2}, h)

	a := dial(t, addr)
	a.send(t, protocol.Join{Username: "a"})
	a.expect(t, protocol.TypeWelcome)
	b := dial(t, addr)
	b.send(t, protocol.Join{Username: "b"})
	b.expect(t, protocol.TypeWelcome)

	c := dial(t, addr)
	c.send(t, protocol.Join{Username: "c"})
	env := c.expect(t, protocol.TypeReject)
	var r protocol.Reject
	_ = env.Decode(&r)
	if r.Code != ErrSessionFull.Error() {
		t.Fatalf("reject code = %q", r.Code)
	}
	c.expectClosed(t)

	s.Lock()
	n := s.LenLocked()
	s.Unlock()
	if n != 2 {
		t.Fatalf("roster size = %d, want 2", n)
	}
}

func TestAdmitErrorBecomesRejectCode(t *testing.T) {
	h := &recorder{deny: errors.New("match_started")}
	_, addr := startSession(t, Options{Mode: ModeTurn, MaxPlayers: 2}, h)
	c := dial(t, addr)
	c.send(t, protocol.Join{Username: "late"})
	env := c.expect(t, protocol.TypeReject)
	var r protocol.Reject
	_ = env.Decode(&r)
	if r.Code != "match_started" {
		t.Fatalf("reject code = %q", r.Code)
	}
}

func TestMalformedFirstFrameClosesSilently(t *testing.T) {
	h := &recorder{}
	_, addr := startSession(t, Options{Mode: ModeStream, MaxPlayers: 2}, h)

	c := dial(t, addr)
	if _, err := c.conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if env, ok := c.next(t); ok {
		t.Fatalf("expected silent close, got %s", env.Type)
	}

	d := dial(t, addr)
	d.send(t, protocol.Move{DX: 1})
	if env, ok := d.next(t); ok {
		t.Fatalf("expected silent close for non-join, got %s", env.Type)
	}
}

func TestStreamModeForwardsMessages(t *testing.T) {
	h := &recorder{}
	s, addr := startSession(t, Options{Mode: ModeStream, MaxPlayers: 2}, h)
	c := dial(t, addr)
	c.send(t, protocol.Join{Username: "a"})
	c.expect(t, protocol.TypeWelcome)
	c.send(t, protocol.Move{DX: 1})
	c.send(t, protocol.Shoot{MX: 10, MY: 10})

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.Lock()
		n := len(h.messages)
		s.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("forwarded %d messages, want 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if h.messages[0] != protocol.TypeMove || h.messages[1] != protocol.TypeShoot {
		t.Fatalf("unexpected order: %v", h.messages)
	}
}

type flakyConn struct {
	net.Conn
	fail atomic.Bool
}

func (c *flakyConn) Write(b []byte) (int, error) {
	if c.fail.Load() {
		return 0, errors.New("broken pipe")
	}
	return c.Conn.Write(b)
}

func TestBroadcastDropsFailingConnection(t *testing.T) {
	h := &recorder{}
	s := New(Options{Mode: ModeStream, MaxPlayers: 4}, h)

	srv1, cli1 := net.Pipe()
	bad := &flakyConn{Conn: srv1}
	go s.Attach(bad)
	c1 := newClient(cli1)
	c1.send(t, protocol.Join{Username: "bad"})
	c1.expect(t, protocol.TypeWelcome)

	srv2, cli2 := net.Pipe()
	go s.Attach(srv2)
	c2 := newClient(cli2)
	c2.send(t, protocol.Join{Username: "good"})
	c2.expect(t, protocol.TypeWelcome)

	bad.fail.Store(true)
	s.Lock()
	s.BroadcastLocked(protocol.Prompt{Msg: "hello"})
	n := s.LenLocked()
	left := append([]int(nil), h.left...)
	s.Unlock()

	if n != 1 {
		t.Fatalf("roster size = %d, want 1", n)
	}
	if len(left) != 1 || left[0] != 1 {
		t.Fatalf("left = %v, want [1]", left)
	}
	c2.expect(t, protocol.TypePrompt)
}

func TestTurnModeDisconnectShutsDownSession(t *testing.T) {
	h := &recorder{}
	s, addr := startSession(t, Options{Mode: ModeTurn, MaxPlayers: 2}, h)
	a := dial(t, addr)
	a.send(t, protocol.Join{Username: "a"})
	a.expect(t, protocol.TypeWelcome)
	b := dial(t, addr)
	b.send(t, protocol.Join{Username: "b"})
	b.expect(t, protocol.TypeWelcome)

	_ = a.conn.Close()

	env := b.expect(t, protocol.TypeShutdown)
	var sd protocol.Shutdown
	_ = env.Decode(&sd)
	if sd.Msg == "" {
		t.Fatal("shutdown without a reason")
	}
	b.expectClosed(t)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session not done after fatal disconnect")
	}
}

func TestTurnModeQueuesMessagesInInbox(t *testing.T) {
	h := &recorder{}
	s, addr := startSession(t, Options{Mode: ModeTurn, MaxPlayers: 2}, h)
	a := dial(t, addr)
	a.send(t, protocol.Join{Username: "a"})
	a.expect(t, protocol.TypeWelcome)
	a.send(t, protocol.Place{X: 3, Y: 4})

	s.Lock()
	p := s.ParticipantsLocked()[0]
	s.Unlock()
	select {
	case env := <-p.Inbox():
		var mv protocol.Place
		if err := env.Decode(&mv); err != nil || mv.X != 3 || mv.Y != 4 {
			t.Fatalf("unexpected move %+v err=%v", mv, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("move never reached the inbox")
	}
	if len(h.messages) != 0 {
		t.Fatalf("turn mode should not call Message, got %v", h.messages)
	}
}

func TestShutdownNotifiesAndClosesEveryone(t *testing.T) {
	h := &recorder{}
	s, addr := startSession(t, Options{Mode: ModeStream, MaxPlayers: 3}, h)
	var clients []*client
	for _, name := range []string{"a", "b"} {
		c := dial(t, addr)
		c.send(t, protocol.Join{Username: name})
		c.expect(t, protocol.TypeWelcome)
		clients = append(clients, c)
	}
	s.Shutdown("maintenance")
	for _, c := range clients {
		c.expect(t, protocol.TypeShutdown)
		c.expectClosed(t)
	}

	late, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		lc := newClient(late)
		_ = protocol.Write(late, protocol.Join{Username: "late"})
		if env, ok := lc.next(t); ok && env.Type == protocol.TypeWelcome {
			t.Fatal("join accepted after shutdown")
		}
		_ = late.Close()
	}
}
