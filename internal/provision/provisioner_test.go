package provision

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"peer-arcade/internal/catalog"
	"peer-arcade/internal/rooms"
	"peer-arcade/internal/store"
)

type fakeProcess struct {
	exit   chan struct{}
	killed bool
	mu     sync.Mutex
}

func (p *fakeProcess) Pid() int    { return 4242 }
func (p *fakeProcess) Wait() error { <-p.exit; return nil }
func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.killed {
		p.killed = true
		close(p.exit)
	}
	return nil
}

type fakeLauncher struct {
	mu    sync.Mutex
	specs []Spec
	procs []*fakeProcess
	err   error
}

func (l *fakeLauncher) Launch(_ context.Context, spec Spec) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	p := &fakeProcess{exit: make(chan struct{})}
	l.specs = append(l.specs, spec)
	l.procs = append(l.procs, p)
	return p, nil
}

type staticResolver struct {
	path string
	err  error
}

func (r staticResolver) Entrypoint(string, string) (string, error) { return r.path, r.err }

func newRegistry(t *testing.T) *rooms.Manager {
	t.Helper()
	docs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	m, err := rooms.NewManager(context.Background(), docs, nil)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestFreePortIsBindable(t *testing.T) {
	port, err := FreePort("127.0.0.1")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	if port <= 0 {
		t.Fatalf("port = %d", port)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("port %d not released: %v", port, err)
	}
	_ = ln.Close()
}

func TestStartLaunchesAndRecordsAddress(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	if _, err := reg.Create(ctx, "r1", "gomoku", "1.0", "alice", 2); err != nil {
		t.Fatalf("create: %v", err)
	}
	launcher := &fakeLauncher{}
	p := New(reg, staticResolver{path: "/games/gomoku/1.0/game-server"}, launcher, Options{BindHost: "127.0.0.1", AdvertiseHost: "10.0.0.5"})

	res, err := p.Start(ctx, "r1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.HostAddr != "10.0.0.5" || res.HostPort <= 0 || res.Version != "1.0" || res.SessionID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(launcher.specs) != 1 {
		t.Fatalf("launches = %d", len(launcher.specs))
	}
	spec := launcher.specs[0]
	if spec.Port != res.HostPort || spec.MaxPlayers != 2 || spec.Path != "/games/gomoku/1.0/game-server" || spec.Host != "127.0.0.1" {
		t.Fatalf("unexpected spec %+v", spec)
	}

	room, _ := reg.Get("r1")
	if room.Status != rooms.StatusRunning || *room.HostPort != res.HostPort || *room.HostAddr != "10.0.0.5" {
		t.Fatalf("room not marked running: %+v", room)
	}

	if _, err := p.Start(ctx, "r1"); !errors.Is(err, rooms.ErrRoomRunning) {
		t.Fatalf("expected ErrRoomRunning, got %v", err)
	}

	_ = launcher.procs[0].Kill()
	p.Wait()
	room, _ = reg.Get("r1")
	if room.Status != rooms.StatusFinished {
		t.Fatalf("status after exit = %s", room.Status)
	}
}

func TestStartFailures(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	_, _ = reg.Create(ctx, "r1", "gomoku", "1.0", "alice", 2)

	p := New(reg, staticResolver{err: catalog.ErrEntrypointNotFound}, &fakeLauncher{}, Options{})
	if _, err := p.Start(ctx, "r1"); !errors.Is(err, catalog.ErrEntrypointNotFound) {
		t.Fatalf("expected ErrEntrypointNotFound, got %v", err)
	}
	if _, err := p.Start(ctx, "missing"); !errors.Is(err, rooms.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	boom := errors.New("exec format error")
	p = New(reg, staticResolver{path: "/bin/false"}, &fakeLauncher{err: boom}, Options{})
	if _, err := p.Start(ctx, "r1"); !errors.Is(err, boom) {
		t.Fatalf("expected launch error, got %v", err)
	}
	if room, _ := reg.Get("r1"); room.Status != rooms.StatusWaiting {
		t.Fatalf("failed launch changed status to %s", room.Status)
	}
}

func TestExecLauncherPassesSessionEnvAndArgs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "env.out")
	script := filepath.Join(dir, "game-server")
	body := "#!/bin/sh\necho \"$SESSION_HOST $SESSION_PORT $SESSION_MAX_PLAYERS $SESSION_ROOM_ID $LOG_SERVICE\" > " + out + "\necho \"$@\" >> " + out + "\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	proc, err := ExecLauncher{Env: []string{"PATH=/usr/bin:/bin", "LOG_SERVICE=lobby"}}.Launch(context.Background(), Spec{
		Path: script, RoomID: "r9", Game: "arena", Host: "127.0.0.1", Port: 40001, MaxPlayers: 4,
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(5 * time.Second):
		_ = proc.Kill()
		t.Fatal("script did not exit")
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "127.0.0.1 40001 4 r9 arena-session\n--host 127.0.0.1 --port 40001 --max_players 4"
	if strings.TrimSpace(string(got)) != want {
		t.Fatalf("env and args seen by process = %q, want %q", got, want)
	}
}

func TestSessionIDsIncrease(t *testing.T) {
	a := newSessionID()
	b := newSessionID()
	if len(a) != 26 || a >= b {
		t.Fatalf("expected increasing ulids, got %q then %q", a, b)
	}
}
