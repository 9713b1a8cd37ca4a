package lobby_test

import (
	"context"
	"errors"
	"testing"

	"peer-arcade/internal/accounts"
	"peer-arcade/internal/app/lobby"
	"peer-arcade/internal/catalog"
	"peer-arcade/internal/rooms"
	"peer-arcade/internal/testutil"
)

func TestCreateRoomUsesLatestVersionAndMaxPlayers(t *testing.T) {
	l := testutil.NewLobby(t, lobby.Options{})
	res, err := l.Service.CreateRoom(context.Background(), lobby.CreateRoomRequest{Username: "alice", GameName: "arena"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.RoomID) != 8 {
		t.Fatalf("room id %q, want 8 chars", res.RoomID)
	}
	if res.Room.Version != "1.0" || res.Room.MaxPlayers != 4 || res.Room.Host != "alice" || res.Room.Status != rooms.StatusWaiting {
		t.Fatalf("unexpected room %+v", res.Room)
	}
	if _, err := l.Service.CreateRoom(context.Background(), lobby.CreateRoomRequest{Username: "bob", GameName: "chess"}); !errors.Is(err, catalog.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestCreateRoomRetriesIDCollision(t *testing.T) {
	ids := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	l := testutil.NewLobby(t, lobby.Options{NewRoomID: func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}})
	ctx := context.Background()
	if _, err := l.Service.CreateRoom(ctx, lobby.CreateRoomRequest{Username: "alice", GameName: "gomoku"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	res, err := l.Service.CreateRoom(ctx, lobby.CreateRoomRequest{Username: "bob", GameName: "gomoku"})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if res.RoomID != "bbbbbbbb" {
		t.Fatalf("room id = %q, want bbbbbbbb", res.RoomID)
	}
}

func TestStartRoomRequiresHostAndRecordsPlay(t *testing.T) {
	l := testutil.NewLobby(t, lobby.Options{})
	ctx := context.Background()
	for _, u := range []string{"alice", "bob"} {
		if err := l.Service.Register(ctx, lobby.AccountRequest{Username: u, Password: "pw"}); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}
	created, err := l.Service.CreateRoom(ctx, lobby.CreateRoomRequest{Username: "alice", GameName: "gomoku"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l.Service.JoinRoom(ctx, lobby.JoinRoomRequest{Username: "bob", RoomID: created.RoomID}); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := l.Service.StartRoom(ctx, lobby.StartRoomRequest{Username: "bob", RoomID: created.RoomID}); !errors.Is(err, lobby.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	res, err := l.Service.StartRoom(ctx, lobby.StartRoomRequest{Username: "alice", RoomID: created.RoomID})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.HostPort != 45001 || res.HostAddr != "127.0.0.1" || res.Version != "1.0" {
		t.Fatalf("unexpected start response %+v", res)
	}
	room, _ := l.Service.GetRoom(created.RoomID)
	if room.Status != rooms.StatusRunning {
		t.Fatalf("status = %s", room.Status)
	}
	if !l.Accounts.HasPlayed("alice", "gomoku") || !l.Accounts.HasPlayed("bob", "gomoku") {
		t.Fatal("start did not record play for every member")
	}
	if _, err := l.Service.StartRoom(ctx, lobby.StartRoomRequest{Username: "alice", RoomID: created.RoomID}); !errors.Is(err, rooms.ErrRoomRunning) {
		t.Fatalf("expected ErrRoomRunning, got %v", err)
	}
	if _, err := l.Service.StartRoom(ctx, lobby.StartRoomRequest{Username: "alice", RoomID: "nope"}); !errors.Is(err, rooms.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestJoinAndLeaveFlow(t *testing.T) {
	l := testutil.NewLobby(t, lobby.Options{})
	ctx := context.Background()
	created, _ := l.Service.CreateRoom(ctx, lobby.CreateRoomRequest{Username: "alice", GameName: "gomoku"})
	if _, err := l.Service.JoinRoom(ctx, lobby.JoinRoomRequest{Username: "bob", RoomID: created.RoomID}); err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if _, err := l.Service.JoinRoom(ctx, lobby.JoinRoomRequest{Username: "carol", RoomID: created.RoomID}); !errors.Is(err, rooms.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	left, err := l.Service.LeaveRoom(ctx, lobby.LeaveRoomRequest{Username: "alice"})
	if err != nil {
		t.Fatalf("leave alice: %v", err)
	}
	if left.Deleted || left.Room == nil || left.Room.Host != "bob" {
		t.Fatalf("host not transferred: %+v", left)
	}
	left, err = l.Service.LeaveRoom(ctx, lobby.LeaveRoomRequest{Username: "bob"})
	if err != nil {
		t.Fatalf("leave bob: %v", err)
	}
	if !left.Deleted || left.Room != nil {
		t.Fatalf("room not deleted: %+v", left)
	}
	if got := l.Service.ListRooms().Rooms; len(got) != 0 {
		t.Fatalf("rooms = %+v, want none", got)
	}
	if _, err := l.Service.LeaveRoom(ctx, lobby.LeaveRoomRequest{Username: "bob"}); !errors.Is(err, rooms.ErrNotInRoom) {
		t.Fatalf("expected ErrNotInRoom, got %v", err)
	}
}

func TestRequireLoginGatesMutations(t *testing.T) {
	l := testutil.NewLobby(t, lobby.Options{RequireLogin: true})
	ctx := context.Background()
	if _, err := l.Service.CreateRoom(ctx, lobby.CreateRoomRequest{Username: "alice", GameName: "gomoku"}); !errors.Is(err, lobby.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if err := l.Service.Register(ctx, lobby.AccountRequest{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := l.Service.Login(ctx, lobby.AccountRequest{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := l.Service.CreateRoom(ctx, lobby.CreateRoomRequest{Username: "alice", GameName: "gomoku"}); err != nil {
		t.Fatalf("create after login: %v", err)
	}
	if err := l.Service.Logout(ctx, "alice"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := l.Service.LeaveRoom(ctx, lobby.LeaveRoomRequest{Username: "alice"}); !errors.Is(err, lobby.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn after logout, got %v", err)
	}
}

func TestLoginRejectsSecondLogin(t *testing.T) {
	l := testutil.NewLobby(t, lobby.Options{})
	ctx := context.Background()
	_ = l.Service.Register(ctx, lobby.AccountRequest{Username: "alice", Password: "pw"})
	if err := l.Service.Login(ctx, lobby.AccountRequest{Username: "alice", Password: "wrong"}); !errors.Is(err, accounts.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := l.Service.Login(ctx, lobby.AccountRequest{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := l.Service.Login(ctx, lobby.AccountRequest{Username: "alice", Password: "pw"}); !errors.Is(err, lobby.ErrAlreadyLoggedIn) {
		t.Fatalf("expected ErrAlreadyLoggedIn, got %v", err)
	}
}

func TestReviewRequiresPlay(t *testing.T) {
	l := testutil.NewLobby(t, lobby.Options{})
	ctx := context.Background()
	_ = l.Service.Register(ctx, lobby.AccountRequest{Username: "alice", Password: "pw"})
	review := lobby.ReviewRequest{Username: "alice", Rating: 5, Comment: "fun"}
	if err := l.Service.Review(ctx, "gomoku", review); !errors.Is(err, lobby.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	_ = l.Service.Login(ctx, lobby.AccountRequest{Username: "alice", Password: "pw"})
	if err := l.Service.Review(ctx, "gomoku", review); !errors.Is(err, lobby.ErrNotPlayed) {
		t.Fatalf("expected ErrNotPlayed, got %v", err)
	}
	if err := l.Accounts.RecordPlay(ctx, "alice", "gomoku", "1.0"); err != nil {
		t.Fatalf("record play: %v", err)
	}
	if err := l.Service.Review(ctx, "gomoku", lobby.ReviewRequest{Username: "alice", Rating: 9}); !errors.Is(err, lobby.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for rating 9, got %v", err)
	}
	if err := l.Service.Review(ctx, "gomoku", review); err != nil {
		t.Fatalf("review: %v", err)
	}
	detail, err := l.Service.Game("gomoku")
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	if len(detail.Reviews) != 1 || detail.Reviews[0].User != "alice" || detail.Reviews[0].Rating != 5 {
		t.Fatalf("reviews = %+v", detail.Reviews)
	}
}

func TestGamesListsCatalog(t *testing.T) {
	l := testutil.NewLobby(t, lobby.Options{})
	res, err := l.Service.Games()
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	if len(res.Games) != 2 || res.Games[0].GameName != "arena" || res.Games[1].GameName != "gomoku" {
		t.Fatalf("games = %+v", res.Games)
	}
	if res.Games[0].MaxPlayers != 4 || res.Games[0].Developer != "tests" {
		t.Fatalf("arena summary = %+v", res.Games[0])
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{rooms.ErrRoomNotFound, 404, "room_not_found"},
		{rooms.ErrRoomFull, 409, "room_full"},
		{lobby.ErrNotHost, 403, "not_host"},
		{lobby.ErrInvalidRequest, 400, "invalid_request"},
		{errors.Join(errors.New("ctx"), catalog.ErrEntrypointNotFound), 500, "entrypoint_not_found"},
		{errors.New("disk on fire"), 500, "internal_error"},
	}
	for _, tt := range tests {
		status, code := lobby.MapError(tt.err)
		if status != tt.status || code != tt.code {
			t.Fatalf("MapError(%v) = %d %q, want %d %q", tt.err, status, code, tt.status, tt.code)
		}
	}
}
