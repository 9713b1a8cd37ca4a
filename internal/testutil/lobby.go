package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"peer-arcade/internal/accounts"
	"peer-arcade/internal/app/lobby"
	"peer-arcade/internal/catalog"
	"peer-arcade/internal/provision"
	"peer-arcade/internal/rooms"
	"peer-arcade/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// FakeStarter records start requests and marks the room running on a fixed
// port instead of launching anything.
type FakeStarter struct {
	Registry *rooms.Manager
	Port     int
	Err      error

	mu      sync.Mutex
	started []string
}

func (f *FakeStarter) Start(ctx context.Context, roomID string) (provision.Result, error) {
	if f.Err != nil {
		return provision.Result{}, f.Err
	}
	room, err := f.Registry.MarkRunning(ctx, roomID, "127.0.0.1", f.Port)
	if err != nil {
		return provision.Result{}, err
	}
	f.mu.Lock()
	f.started = append(f.started, roomID)
	f.mu.Unlock()
	return provision.Result{
		RoomID:    roomID,
		SessionID: "test-session",
		HostAddr:  "127.0.0.1",
		HostPort:  f.Port,
		Version:   room.Version,
	}, nil
}

func (f *FakeStarter) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// WriteGame installs a game with one version "1.0" whose entrypoint is a
// trivial shell script.
func WriteGame(t *testing.T, gamesDir, name string, maxPlayers int) {
	t.Helper()
	dir := filepath.Join(gamesDir, name, "1.0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir game: %v", err)
	}
	meta, _ := json.Marshal(catalog.Meta{Developer: "tests", LatestVersion: "1.0", MaxPlayers: maxPlayers})
	if err := os.WriteFile(filepath.Join(gamesDir, name, catalog.MetaFile), meta, 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	script := filepath.Join(dir, catalog.DefaultEntrypoint)
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write entrypoint: %v", err)
	}
}

type Lobby struct {
	Service  *lobby.Service
	Rooms    *rooms.Manager
	Accounts *accounts.Ledger
	Starter  *FakeStarter
	Docs     store.Documents
	GamesDir string
}

// NewLobby wires a lobby service over a file store in a temp dir with the
// games "gomoku" (2 players) and "arena" (4 players) installed.
func NewLobby(t *testing.T, opts lobby.Options) *Lobby {
	t.Helper()
	ctx := context.Background()
	base := t.TempDir()
	docs, err := store.NewFileStore(filepath.Join(base, "data"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	gamesDir := filepath.Join(base, "games")
	WriteGame(t, gamesDir, "gomoku", 2)
	WriteGame(t, gamesDir, "arena", 4)

	rm, err := rooms.NewManager(ctx, docs, rooms.NewEventBuffer(100))
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	t.Cleanup(rm.Events().Close)
	ledger, err := accounts.NewLedger(ctx, docs, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	starter := &FakeStarter{Registry: rm, Port: 45001}
	svc, err := lobby.NewService(ctx, rm, catalog.New(gamesDir), ledger, starter, docs, opts)
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	return &Lobby{Service: svc, Rooms: rm, Accounts: ledger, Starter: starter, Docs: docs, GamesDir: gamesDir}
}
