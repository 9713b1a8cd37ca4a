// Package client is the player side of the platform: a typed client for the
// lobby HTTP API and a session client for the game wire protocol.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"peer-arcade/internal/app/lobby"
	"peer-arcade/internal/rooms"
)

// APIError is a non-2xx lobby response.
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lobby: %d %s", e.Status, e.Code)
}

type Lobby struct {
	baseURL string
	hc      *http.Client
}

// NewLobby targets the lobby at baseURL. A nil hc uses a client with a 10s
// timeout.
func NewLobby(baseURL string, hc *http.Client) *Lobby {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Lobby{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (c *Lobby) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/accounts/register", lobby.AccountRequest{Username: username, Password: password}, nil)
}

func (c *Lobby) Login(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/accounts/login", lobby.AccountRequest{Username: username, Password: password}, nil)
}

func (c *Lobby) Logout(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodPost, "/api/accounts/logout", map[string]string{"username": username}, nil)
}

func (c *Lobby) CreateRoom(ctx context.Context, username, game string) (lobby.CreateRoomResponse, error) {
	var out lobby.CreateRoomResponse
	err := c.do(ctx, http.MethodPost, "/api/lobby/create_room", lobby.CreateRoomRequest{Username: username, GameName: game}, &out)
	return out, err
}

func (c *Lobby) StartRoom(ctx context.Context, username, roomID string) (lobby.StartRoomResponse, error) {
	var out lobby.StartRoomResponse
	err := c.do(ctx, http.MethodPost, "/api/lobby/start_room", lobby.StartRoomRequest{Username: username, RoomID: roomID}, &out)
	return out, err
}

func (c *Lobby) JoinRoom(ctx context.Context, username, roomID string) (rooms.Room, error) {
	var out struct {
		Room rooms.Room `json:"room"`
	}
	err := c.do(ctx, http.MethodPost, "/api/lobby/join_room", lobby.JoinRoomRequest{Username: username, RoomID: roomID}, &out)
	return out.Room, err
}

func (c *Lobby) LeaveRoom(ctx context.Context, username string) (lobby.LeaveRoomResponse, error) {
	var out lobby.LeaveRoomResponse
	err := c.do(ctx, http.MethodPost, "/api/lobby/leave_room", lobby.LeaveRoomRequest{Username: username}, &out)
	return out, err
}

func (c *Lobby) ListRooms(ctx context.Context) ([]rooms.Room, error) {
	var out lobby.RoomsResponse
	err := c.do(ctx, http.MethodGet, "/api/lobby/list_rooms", nil, &out)
	return out.Rooms, err
}

func (c *Lobby) GetRoom(ctx context.Context, roomID string) (rooms.Room, error) {
	var out rooms.Room
	err := c.do(ctx, http.MethodGet, "/api/lobby/rooms/"+url.PathEscape(roomID), nil, &out)
	return out, err
}

func (c *Lobby) Games(ctx context.Context) ([]lobby.GameSummary, error) {
	var out lobby.GamesResponse
	err := c.do(ctx, http.MethodGet, "/api/games", nil, &out)
	return out.Games, err
}

// WaitRunning polls the room until its session has been started and returns
// the room with its host address filled in.
func (c *Lobby) WaitRunning(ctx context.Context, roomID string, every time.Duration) (rooms.Room, error) {
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		room, err := c.GetRoom(ctx, roomID)
		if err != nil {
			return rooms.Room{}, err
		}
		if room.Status == rooms.StatusRunning && room.HostAddr != nil && room.HostPort != nil {
			return room, nil
		}
		select {
		case <-ctx.Done():
			return rooms.Room{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Lobby) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
